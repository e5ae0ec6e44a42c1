package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/productos-api/internal/httpx"
	"github.com/MikeMC777/productos-api/internal/logger"
	prod "github.com/MikeMC777/productos-api/internal/product"
)

//
// ===== STUB REPO EN MEMORIA (implementa product.Repository) =====
//

type stubRepo struct {
	items  []prod.Product
	nextID int
	err    error // si no es nil, todas las operaciones fallan con él
}

func newStubRepo(items ...prod.Product) *stubRepo {
	s := &stubRepo{}
	for _, p := range items {
		_, _ = s.Create(context.Background(), p)
	}
	return s
}

func (s *stubRepo) List(ctx context.Context) ([]prod.Product, error) {
	return s.filter(func(prod.Product) bool { return true })
}

func (s *stubRepo) GetByCodigo(ctx context.Context, codigo int64) (prod.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	if i := s.index(codigo); i >= 0 {
		return s.items[i].Clone(), nil
	}
	return nil, prod.ErrNotFound
}

// igual que el $regex con opción "i" del repo real
func (s *stubRepo) FindByNombre(ctx context.Context, pattern string) ([]prod.Product, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	return s.filter(func(p prod.Product) bool { return re.MatchString(p.Nombre()) })
}

func (s *stubRepo) FindByMinPrecio(ctx context.Context, precio float64) ([]prod.Product, error) {
	return s.filter(func(p prod.Product) bool {
		v, ok := p.Precio()
		return ok && v >= precio
	})
}

func (s *stubRepo) FindByCategoria(ctx context.Context, categoria string) ([]prod.Product, error) {
	return s.filter(func(p prod.Product) bool { return p.Categoria() == categoria })
}

func (s *stubRepo) Create(ctx context.Context, p prod.Product) (prod.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.nextID++
	cp := p.Clone()
	cp[prod.FieldID] = fmt.Sprintf("stub-%d", s.nextID)
	s.items = append(s.items, cp)
	return cp.Clone(), nil
}

// merge campo a campo ($set), nunca reemplazo
func (s *stubRepo) Update(ctx context.Context, codigo int64, fields prod.Product) error {
	if s.err != nil {
		return s.err
	}
	if i := s.index(codigo); i >= 0 {
		for k, v := range fields {
			s.items[i][k] = v
		}
	}
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, codigo int64) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	i := s.index(codigo)
	if i < 0 {
		return false, nil
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return true, nil
}

func (s *stubRepo) filter(keep func(prod.Product) bool) ([]prod.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]prod.Product, 0, len(s.items))
	for _, p := range s.items {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (s *stubRepo) index(codigo int64) int {
	for i, p := range s.items {
		if c, ok := p.Codigo(); ok && c == codigo {
			return i
		}
	}
	return -1
}

func producto(codigo int32, nombre string, precio float64, categoria string) prod.Product {
	return prod.Product{
		prod.FieldCodigo:    codigo,
		prod.FieldNombre:    nombre,
		prod.FieldPrecio:    precio,
		prod.FieldCategoria: categoria,
	}
}

func catalogo() *stubRepo {
	return newStubRepo(
		producto(1, "Notebook ABC123", 1500, "Computadoras"),
		producto(2, "Mouse xabcx", 25.5, "Accesorios"),
		producto(3, "Teclado", 100, "Accesorios"),
		producto(4, "Monitor", 99.99, "Monitores"),
	)
}

//
// ===== HELPERS =====
//

func newTestRouter(repo prod.Repository) http.Handler {
	gin.SetMode(gin.TestMode)
	return newRouter(repo, routerConfig{Logger: discardLogger()})
}

func discardLogger() *slog.Logger {
	return logger.NewWithWriter(io.Discard, "error", "text")
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)

	// toda respuesta, éxito o error, sale como JSON
	if ct := w.Header().Get("Content-Type"); ct != httpx.ContentTypeJSON {
		t.Fatalf("%s %s: Content-Type=%q, esperado=%q", method, path, ct, httpx.ContentTypeJSON)
	}
	return w
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var got []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("json inválido: %v body=%s", err, w.Body.String())
	}
	return got
}

func decodeOne(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("json inválido: %v body=%s", err, w.Body.String())
	}
	return got
}

func codigos(items []map[string]any) []float64 {
	out := make([]float64, 0, len(items))
	for _, it := range items {
		c, _ := it[prod.FieldCodigo].(float64)
		out = append(out, c)
	}
	return out
}

//
// ===== TESTS =====
//

func TestWelcome(t *testing.T) {
	r := newTestRouter(newStubRepo())

	w := do(t, r, http.MethodGet, "/", "")
	if w.Code != http.StatusOK || w.Body.String() != msgWelcome {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if w.Header().Get(httpx.RequestIDHeader) == "" {
		t.Fatalf("falta %s en la respuesta", httpx.RequestIDHeader)
	}
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(newStubRepo())

	w := do(t, r, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

// GET /productos
func TestListProducts(t *testing.T) {
	r := newTestRouter(catalogo())

	w := do(t, r, http.MethodGet, "/productos", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if got := decodeList(t, w); len(got) != 4 {
		t.Fatalf("len=%d, esperado=4", len(got))
	}
}

// colección vacía ⇒ 200 con []
func TestListProducts_Empty(t *testing.T) {
	r := newTestRouter(newStubRepo())

	w := do(t, r, http.MethodGet, "/productos", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

// GET /productos/:id
func TestGetProduct_OK_And_NotFound(t *testing.T) {
	r := newTestRouter(catalogo())

	// OK
	{
		w := do(t, r, http.MethodGet, "/productos/3", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
		}
		got := decodeOne(t, w)
		if got[prod.FieldNombre] != "Teclado" || got[prod.FieldCodigo] != float64(3) {
			t.Fatalf("producto inesperado: %+v", got)
		}
	}

	// prefijo numérico como parseInt ⇒ codigo 3
	{
		w := do(t, r, http.MethodGet, "/productos/3abc", "")
		if w.Code != http.StatusOK {
			t.Fatalf("esperaba 200 para 3abc, got %d body=%s", w.Code, w.Body.String())
		}
	}

	// codigo ausente y no numérico ⇒ 404 con el mismo mensaje
	for _, id := range []string{"99", "abc"} {
		w := do(t, r, http.MethodGet, "/productos/"+id, "")
		if w.Code != http.StatusNotFound || w.Body.String() != msgNotFound {
			t.Fatalf("id=%s: esperaba 404, got %d body=%s", id, w.Code, w.Body.String())
		}
	}
}

// GET /productos/nombre/:nombre
func TestSearchByName_CaseInsensitiveSubstring(t *testing.T) {
	r := newTestRouter(catalogo())

	w := do(t, r, http.MethodGet, "/productos/nombre/abc", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	got := codigos(decodeList(t, w))
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("codigos=%v, esperado=[1 2]", got)
	}

	// sin coincidencias ⇒ 404
	w = do(t, r, http.MethodGet, "/productos/nombre/zzz", "")
	if w.Code != http.StatusNotFound || w.Body.String() != msgNotFound {
		t.Fatalf("esperaba 404, got %d body=%s", w.Code, w.Body.String())
	}
}

// GET /productos/precio/:precio
func TestSearchByPrice_GreaterOrEqual(t *testing.T) {
	r := newTestRouter(catalogo())

	w := do(t, r, http.MethodGet, "/productos/precio/100", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	for _, it := range decodeList(t, w) {
		if p, _ := it[prod.FieldPrecio].(float64); p < 100 {
			t.Fatalf("precio %v < 100 en el resultado", p)
		}
	}
	if got := codigos(decodeList(t, w)); len(got) != 2 {
		t.Fatalf("codigos=%v, esperado 2 productos (1500 y 100)", got)
	}

	// nada cumple ⇒ 404
	for _, precio := range []string{"5000", "Infinity", "caro"} {
		w := do(t, r, http.MethodGet, "/productos/precio/"+precio, "")
		if w.Code != http.StatusNotFound || w.Body.String() != msgNotFound {
			t.Fatalf("precio=%s: esperaba 404, got %d body=%s", precio, w.Code, w.Body.String())
		}
	}
}

// GET /productos/categoria/:categoria
func TestSearchByCategory_ExactMatch(t *testing.T) {
	r := newTestRouter(catalogo())

	w := do(t, r, http.MethodGet, "/productos/categoria/Accesorios", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if got := codigos(decodeList(t, w)); len(got) != 2 {
		t.Fatalf("codigos=%v, esperado=[2 3]", got)
	}

	// distinto de mayúsculas ⇒ no coincide
	w = do(t, r, http.MethodGet, "/productos/categoria/accesorios", "")
	if w.Code != http.StatusNotFound || w.Body.String() != msgCategoryEmpty {
		t.Fatalf("esperaba 404, got %d body=%s", w.Code, w.Body.String())
	}
}

// POST /productos
func TestCreateProduct_Valid_ThenRetrievable(t *testing.T) {
	repo := newStubRepo()
	r := newTestRouter(repo)

	body := `{"codigo":10,"nombre":"Webcam","precio":45.5,"categoria":"Accesorios"}`
	w := do(t, r, http.MethodPost, "/productos", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	got := decodeOne(t, w)
	if got[prod.FieldNombre] != "Webcam" || got[prod.FieldPrecio] != 45.5 {
		t.Fatalf("eco inesperado: %+v", got)
	}
	if got[prod.FieldID] == nil {
		t.Fatalf("la respuesta debe incluir %s", prod.FieldID)
	}

	w = do(t, r, http.MethodGet, "/productos/10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("no se pudo recuperar el creado: %d body=%s", w.Code, w.Body.String())
	}
}

func TestCreateProduct_BadBody_NoInsert(t *testing.T) {
	repo := newStubRepo()
	r := newTestRouter(repo)

	for _, body := range []string{"", "{}", "[1,2]", `{"codigo":`, `"texto"`} {
		w := do(t, r, http.MethodPost, "/productos", body)
		if w.Code != http.StatusBadRequest || w.Body.String() != msgBadBody {
			t.Fatalf("body=%q: esperaba 400, got %d body=%s", body, w.Code, w.Body.String())
		}
	}
	if len(repo.items) != 0 {
		t.Fatalf("no debía insertarse nada, hay %d", len(repo.items))
	}
}

func TestCreateProduct_BodyTooLarge(t *testing.T) {
	repo := newStubRepo()
	gin.SetMode(gin.TestMode)
	r := newRouter(repo, routerConfig{BodyLimit: 32, Logger: discardLogger()})

	body := fmt.Sprintf(`{"codigo":1,"nombre":%q}`, strings.Repeat("x", 64))
	w := do(t, r, http.MethodPost, "/productos", body)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("esperaba 413, got %d body=%s", w.Code, w.Body.String())
	}
	if len(repo.items) != 0 {
		t.Fatalf("no debía insertarse nada")
	}
}

// PUT y PATCH: merge, nunca reemplazo
func TestUpdateProduct_MergesFields(t *testing.T) {
	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			r := newTestRouter(catalogo())

			w := do(t, r, method, "/productos/3", `{"precio":50}`)
			if w.Code != http.StatusOK {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			if got := decodeOne(t, w); len(got) != 1 || got[prod.FieldPrecio] != float64(50) {
				t.Fatalf("debe devolver el cuerpo recibido, got %+v", got)
			}

			got := decodeOne(t, do(t, r, http.MethodGet, "/productos/3", ""))
			if got[prod.FieldPrecio] != float64(50) {
				t.Fatalf("precio no actualizado: %+v", got)
			}
			if got[prod.FieldNombre] != "Teclado" || got[prod.FieldCategoria] != "Accesorios" || got[prod.FieldCodigo] != float64(3) {
				t.Fatalf("campos no enviados fueron modificados: %+v", got)
			}
		})
	}
}

// codigo inexistente o no numérico ⇒ 200 con eco y sin cambios
func TestUpdateProduct_NoMatch(t *testing.T) {
	repo := catalogo()
	r := newTestRouter(repo)

	for _, id := range []string{"99", "abc"} {
		w := do(t, r, http.MethodPut, "/productos/"+id, `{"precio":1}`)
		if w.Code != http.StatusOK {
			t.Fatalf("id=%s: status=%d body=%s", id, w.Code, w.Body.String())
		}
	}
	for _, p := range repo.items {
		if v, _ := p.Precio(); v == 1 {
			t.Fatalf("ningún producto debía cambiar: %+v", p)
		}
	}
}

func TestUpdateProduct_BadBody(t *testing.T) {
	r := newTestRouter(catalogo())

	w := do(t, r, http.MethodPatch, "/productos/3", "")
	if w.Code != http.StatusBadRequest || w.Body.String() != msgBadBody {
		t.Fatalf("esperaba 400, got %d body=%s", w.Code, w.Body.String())
	}
}

// DELETE /productos/:id
func TestDeleteProduct_OK_Then_NotFound(t *testing.T) {
	repo := catalogo()
	r := newTestRouter(repo)

	// OK
	{
		w := do(t, r, http.MethodDelete, "/productos/2", "")
		if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
			t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
		}
		if len(repo.items) != 3 {
			t.Fatalf("debía quedar 3, hay %d", len(repo.items))
		}
	}

	// repetir ⇒ 404
	{
		w := do(t, r, http.MethodDelete, "/productos/2", "")
		if w.Code != http.StatusNotFound || w.Body.String() != msgDeleteNotFound {
			t.Fatalf("esperaba 404, got %d body=%s", w.Code, w.Body.String())
		}
	}
}

// 0 y no numéricos se rechazan antes de tocar la base
func TestDeleteProduct_InvalidID(t *testing.T) {
	repo := newStubRepo(producto(0, "Cero", 1, "X"))
	r := newTestRouter(repo)

	for _, id := range []string{"0", "abc"} {
		w := do(t, r, http.MethodDelete, "/productos/"+id, "")
		if w.Code != http.StatusBadRequest || w.Body.String() != msgBadBody {
			t.Fatalf("id=%s: esperaba 400, got %d body=%s", id, w.Code, w.Body.String())
		}
	}
	if len(repo.items) != 1 {
		t.Fatalf("no debía eliminarse nada")
	}
}

// errores del repositorio ⇒ 500 con el mensaje de cada ruta
func TestRepositoryErrors(t *testing.T) {
	connErr := fmt.Errorf("%w: dial tcp: refused", prod.ErrConnection)
	queryErr := errors.New("boom")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		err    error
		want   string
	}{
		{"list conexión", http.MethodGet, "/productos", "", connErr, msgConnection},
		{"list consulta", http.MethodGet, "/productos", "", queryErr, msgListError},
		{"get consulta", http.MethodGet, "/productos/1", "", queryErr, msgGetError},
		{"nombre consulta", http.MethodGet, "/productos/nombre/a", "", queryErr, msgGetError},
		{"precio consulta", http.MethodGet, "/productos/precio/1", "", queryErr, msgGetError},
		{"categoria consulta", http.MethodGet, "/productos/categoria/a", "", queryErr, msgListError},
		{"create consulta", http.MethodPost, "/productos", `{"codigo":1}`, queryErr, msgCreateError},
		{"create conexión", http.MethodPost, "/productos", `{"codigo":1}`, connErr, msgConnection},
		{"put consulta", http.MethodPut, "/productos/1", `{"precio":1}`, queryErr, msgUpdateError},
		{"delete consulta", http.MethodDelete, "/productos/1", "", queryErr, msgDeleteError},
		{"delete conexión", http.MethodDelete, "/productos/1", "", connErr, msgConnection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newStubRepo()
			repo.err = tt.err
			r := newTestRouter(repo)

			w := do(t, r, tt.method, tt.path, tt.body)
			if w.Code != http.StatusInternalServerError || w.Body.String() != tt.want {
				t.Fatalf("esperaba 500 %q, got %d body=%s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

// rutas desconocidas ⇒ 404 con Content-Type JSON
func TestNoRoute(t *testing.T) {
	r := newTestRouter(newStubRepo())

	w := do(t, r, http.MethodGet, "/nada", "")
	if w.Code != http.StatusNotFound || w.Body.String() != "Cannot GET /nada" {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

// barra final: misma respuesta que sin ella, nunca una redirección
func TestTrailingSlash_ServedDirectly(t *testing.T) {
	repo := catalogo()
	r := newTestRouter(repo)

	// GET /productos/ ⇒ 200 con el arreglo
	{
		w := do(t, r, http.MethodGet, "/productos/", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
		}
		if got := decodeList(t, w); len(got) != 4 {
			t.Fatalf("len=%d, esperado=4", len(got))
		}
	}

	// GET /productos/nombre/Teclado/ ⇒ 200
	{
		w := do(t, r, http.MethodGet, "/productos/nombre/Teclado/", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
		}
	}

	// DELETE /productos/3/ ⇒ 204 y el producto desaparece
	{
		w := do(t, r, http.MethodDelete, "/productos/3/", "")
		if w.Code != http.StatusNoContent {
			t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
		}
		if len(repo.items) != 3 {
			t.Fatalf("debía quedar 3, hay %d", len(repo.items))
		}
	}

	// la raíz no se toca
	{
		w := do(t, r, http.MethodGet, "/", "")
		if w.Code != http.StatusOK || w.Body.String() != msgWelcome {
			t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
		}
	}
}

// id numérico fuera de rango ⇒ no coincide con ningún codigo, 404 (no 400)
func TestDeleteProduct_IDOutOfRange(t *testing.T) {
	repo := catalogo()
	r := newTestRouter(repo)

	w := do(t, r, http.MethodDelete, "/productos/99999999999999999999", "")
	if w.Code != http.StatusNotFound || w.Body.String() != msgDeleteNotFound {
		t.Fatalf("esperaba 404, got %d body=%s", w.Code, w.Body.String())
	}
	if len(repo.items) != 4 {
		t.Fatalf("no debía eliminarse nada")
	}
}
