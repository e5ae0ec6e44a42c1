package main

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/productos-api/internal/httpx"
	prod "github.com/MikeMC777/productos-api/internal/product"
)

// Response bodies. Errors go out as plain text under the JSON content type
// because existing clients read them that way.
const (
	msgWelcome        = "Bienvenido a la API de Computacion"
	msgConnection     = "Error al conectarse a MongoDB"
	msgListError      = "Error al obtener los productos de la base de datos"
	msgGetError       = "Error al obtener el producto de la base de datos"
	msgNotFound       = "Producto no encontrado"
	msgCategoryEmpty  = "No se encontraron productos en la categoría especificada"
	msgBadBody        = "Error en el formato de datos a crear."
	msgBodyTooLarge   = "El cuerpo de la solicitud excede el tamaño permitido"
	msgCreateError    = "Error al intentar agregar un nuevo producto"
	msgUpdateError    = "Error al modificar el producto"
	msgDeleteNotFound = "No se encontró ningún producto con el id seleccionado."
	msgDeleteError    = "Error al eliminar el producto"
)

// welcomeHandler godoc
// @Summary  Mensaje de bienvenida
// @Produce  json
// @Success  200 {string} string "Bienvenido a la API de Computacion"
// @Router   / [get]
func welcomeHandler(c *gin.Context) {
	c.String(http.StatusOK, msgWelcome)
}

// listProductsHandler godoc
// @Summary  Lista todos los productos
// @Tags     productos
// @Produce  json
// @Success  200 {array}  object
// @Failure  500 {string} string
// @Router   /productos [get]
func listProductsHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := repo.List(c.Request.Context())
		if err != nil {
			fail(c, err, msgListError)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// getProductHandler godoc
// @Summary  Obtiene un producto por codigo
// @Tags     productos
// @Produce  json
// @Param    id  path     int true "codigo del producto"
// @Success  200 {object} object
// @Failure  404 {string} string
// @Failure  500 {string} string
// @Router   /productos/{id} [get]
func getProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		codigo, ok := prod.ParseID(c.Param("id"))
		if !ok {
			// not a number: no stored codigo can match
			c.String(http.StatusNotFound, msgNotFound)
			return
		}

		p, err := repo.GetByCodigo(c.Request.Context(), codigo)
		if errors.Is(err, prod.ErrNotFound) {
			c.String(http.StatusNotFound, msgNotFound)
			return
		}
		if err != nil {
			fail(c, err, msgGetError)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// searchByNameHandler godoc
// @Summary  Busca productos cuyo nombre coincide (sin distinguir mayúsculas)
// @Tags     productos
// @Produce  json
// @Param    nombre path     string true "patrón del nombre"
// @Success  200    {array}  object
// @Failure  404    {string} string
// @Failure  500    {string} string
// @Router   /productos/nombre/{nombre} [get]
func searchByNameHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := repo.FindByNombre(c.Request.Context(), c.Param("nombre"))
		if err != nil {
			fail(c, err, msgGetError)
			return
		}
		if len(items) == 0 {
			c.String(http.StatusNotFound, msgNotFound)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// searchByPriceHandler godoc
// @Summary  Productos con precio mayor o igual al indicado
// @Tags     productos
// @Produce  json
// @Param    precio path     number true "precio mínimo"
// @Success  200    {array}  object
// @Failure  404    {string} string
// @Failure  500    {string} string
// @Router   /productos/precio/{precio} [get]
func searchByPriceHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		precio, ok := prod.ParsePrice(c.Param("precio"))
		if !ok {
			// NaN compares false against every precio
			c.String(http.StatusNotFound, msgNotFound)
			return
		}

		items, err := repo.FindByMinPrecio(c.Request.Context(), precio)
		if err != nil {
			fail(c, err, msgGetError)
			return
		}
		if len(items) == 0 {
			c.String(http.StatusNotFound, msgNotFound)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// searchByCategoryHandler godoc
// @Summary  Productos de una categoría (coincidencia exacta)
// @Tags     productos
// @Produce  json
// @Param    categoria path     string true "categoría"
// @Success  200       {array}  object
// @Failure  404       {string} string
// @Failure  500       {string} string
// @Router   /productos/categoria/{categoria} [get]
func searchByCategoryHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := repo.FindByCategoria(c.Request.Context(), c.Param("categoria"))
		if err != nil {
			fail(c, err, msgListError)
			return
		}
		if len(items) == 0 {
			c.String(http.StatusNotFound, msgCategoryEmpty)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// createProductHandler godoc
// @Summary  Crea un producto
// @Tags     productos
// @Accept   json
// @Produce  json
// @Param    producto body     object true "documento del producto"
// @Success  201      {object} object
// @Failure  400      {string} string
// @Failure  500      {string} string
// @Router   /productos [post]
func createProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := bindProduct(c)
		if !ok {
			return
		}

		created, err := repo.Create(c.Request.Context(), p)
		if err != nil {
			fail(c, err, msgCreateError)
			return
		}
		codigo, _ := created.Codigo()
		slog.Info("Nuevo producto creado", "rid", httpx.GetRequestID(c), "codigo", codigo)
		c.JSON(http.StatusCreated, created)
	}
}

// updateProductHandler serves both PUT and PATCH: the body is merged field by
// field into the stored document, never replacing it.
//
// @Summary  Modifica campos de un producto (PUT y PATCH)
// @Tags     productos
// @Accept   json
// @Produce  json
// @Param    id       path     int    true "codigo del producto"
// @Param    producto body     object true "campos a modificar"
// @Success  200      {object} object
// @Failure  400      {string} string
// @Failure  500      {string} string
// @Router   /productos/{id} [put]
// @Router   /productos/{id} [patch]
func updateProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields, ok := bindProduct(c)
		if !ok {
			return
		}

		codigo, ok := prod.ParseID(c.Param("id"))
		if !ok {
			// not a number: the update matches no document, which still answers 200
			c.JSON(http.StatusOK, fields)
			return
		}

		if err := repo.Update(c.Request.Context(), codigo, fields); err != nil {
			fail(c, err, msgUpdateError)
			return
		}
		slog.Info("Producto modificado", "rid", httpx.GetRequestID(c), "codigo", codigo, "method", c.Request.Method)
		c.JSON(http.StatusOK, fields)
	}
}

// deleteProductHandler godoc
// @Summary  Elimina un producto
// @Tags     productos
// @Param    id  path     int true "codigo del producto"
// @Success  204
// @Failure  400 {string} string
// @Failure  404 {string} string
// @Failure  500 {string} string
// @Router   /productos/{id} [delete]
func deleteProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		codigo, ok := prod.ParseID(id)
		if !ok && prod.IDOutOfRange(id) {
			// numeric but beyond any stored codigo
			c.String(http.StatusNotFound, msgDeleteNotFound)
			return
		}
		// 0 is rejected along with non-numbers; existing clients rely on it
		if !ok || codigo == 0 {
			c.String(http.StatusBadRequest, msgBadBody)
			return
		}

		deleted, err := repo.Delete(c.Request.Context(), codigo)
		if err != nil {
			fail(c, err, msgDeleteError)
			return
		}
		if !deleted {
			c.String(http.StatusNotFound, msgDeleteNotFound)
			return
		}
		slog.Info("Producto Eliminado", "rid", httpx.GetRequestID(c), "codigo", codigo)
		c.Status(http.StatusNoContent)
	}
}

func healthzHandler(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// bindProduct writes the 400/413 response itself and reports false when the body is unusable.
func bindProduct(c *gin.Context) (prod.Product, bool) {
	p, err := prod.DecodeBody(c.Request.Body)
	if err == nil {
		return p, true
	}

	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		c.String(http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		return nil, false
	}
	slog.Debug("rejected product body", "rid", httpx.GetRequestID(c), "error", err)
	c.String(http.StatusBadRequest, msgBadBody)
	return nil, false
}

// fail answers 500, with the connection message when the store was unreachable.
func fail(c *gin.Context, err error, msg string) {
	if errors.Is(err, prod.ErrConnection) {
		slog.Error(msgConnection, "rid", httpx.GetRequestID(c), "error", err)
		c.String(http.StatusInternalServerError, msgConnection)
		return
	}
	slog.Error(msg, "rid", httpx.GetRequestID(c), "error", err)
	c.String(http.StatusInternalServerError, msg)
}
