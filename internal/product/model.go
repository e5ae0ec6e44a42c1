package product

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

// Product is a document of the productos collection. codigo, nombre, precio
// and categoria are the fields the API queries on; any other field is stored
// and returned as sent.
type Product map[string]any

const (
	FieldID        = "_id"
	FieldCodigo    = "codigo"
	FieldNombre    = "nombre"
	FieldPrecio    = "precio"
	FieldCategoria = "categoria"
)

// ErrInvalidBody is returned by DecodeBody for an absent, malformed, non-object or empty body.
var ErrInvalidBody = errors.New("invalid product body")

// DecodeBody reads a single non-empty JSON object. Numbers are normalized with
// normalizeNumber. Read errors other than malformed JSON (for example
// *http.MaxBytesError) are returned unwrapped.
func DecodeBody(r io.Reader) (Product, error) {
	if r == nil {
		return nil, ErrInvalidBody
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, ErrInvalidBody
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidBody)
	}
	if len(m) == 0 {
		return nil, ErrInvalidBody
	}
	return Product(normalize(m).(map[string]any)), nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	case json.Number:
		return normalizeNumber(t)
	default:
		return v
	}
}

// normalizeNumber stores integral values that fit in 32 bits as int32 and
// everything else as a double, the shape JavaScript clients produce. codigo
// lookups compare numerically, so either shape matches an int64 filter.
func normalizeNumber(n json.Number) any {
	f, err := n.Float64()
	if err != nil {
		// out of float64 range; keep the literal rather than lose it
		return n.String()
	}
	if f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32 {
		return int32(f)
	}
	return f
}

// Codigo returns the codigo field as an integer when it holds an integral number.
func (p Product) Codigo() (int64, bool) {
	switch v := p[FieldCodigo].(type) {
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int64(v), true
		}
	}
	return 0, false
}

func (p Product) Nombre() string {
	s, _ := p[FieldNombre].(string)
	return s
}

func (p Product) Categoria() string {
	s, _ := p[FieldCategoria].(string)
	return s
}

// Precio returns the precio field as a float when it holds a number.
func (p Product) Precio() (float64, bool) {
	switch v := p[FieldPrecio].(type) {
	case float64:
		return v, true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Clone returns a shallow copy.
func (p Product) Clone() Product {
	out := make(Product, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
