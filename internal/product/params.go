package product

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Path parameters are read the way the existing clients expect: a numeric
// prefix is accepted and the rest ignored ("12abc" is 12), and no prefix at all
// means the value is not a number.

var (
	intPrefix   = regexp.MustCompile(`^[+-]?(0[xX][0-9a-fA-F]+|[0-9]+)`)
	floatPrefix = regexp.MustCompile(`^[+-]?(Infinity|[0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?`)
)

// ParseID parses the :id parameter. ok is false when s has no integer prefix
// or the value overflows int64; IDOutOfRange tells the two apart.
func ParseID(s string) (id int64, ok bool) {
	n, err := parseIntPrefix(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// IDOutOfRange reports whether s is numeric but does not fit in an int64.
// Such an id matches no stored codigo.
func IDOutOfRange(s string) bool {
	_, err := parseIntPrefix(s)
	return errors.Is(err, strconv.ErrRange)
}

func parseIntPrefix(s string) (int64, error) {
	m := intPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, strconv.ErrSyntax
	}

	sign := ""
	switch m[0] {
	case '-', '+':
		sign, m = m[:1], m[1:]
	}

	base := 10
	if len(m) > 2 && (m[:2] == "0x" || m[:2] == "0X") {
		base = 16
		m = m[2:]
	}

	n, err := strconv.ParseInt(sign+m, base, 64)
	if err != nil {
		return 0, err.(*strconv.NumError).Err
	}
	return n, nil
}

// ParsePrice parses the :precio parameter. ok is false when s has no numeric prefix.
func ParsePrice(s string) (price float64, ok bool) {
	m := floatPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return math.NaN(), false
	}
	switch strings.TrimLeft(m, "+-") {
	case "Infinity":
		if m[0] == '-' {
			return math.Inf(-1), true
		}
		return math.Inf(1), true
	}
	// the prefix is always well formed, so the only possible error is a range
	// error, for which ParseFloat already returns ±Inf or 0
	f, _ := strconv.ParseFloat(m, 64)
	return f, true
}
