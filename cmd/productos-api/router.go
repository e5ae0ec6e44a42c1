package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/MikeMC777/productos-api/docs"
	"github.com/MikeMC777/productos-api/internal/httpx"
	prod "github.com/MikeMC777/productos-api/internal/product"
)

type routerConfig struct {
	BodyLimit int64
	Swagger   bool
	Logger    *slog.Logger
}

func newRouter(repo prod.Repository, cfg routerConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	limit := cfg.BodyLimit
	if limit <= 0 {
		limit = 100 << 10
	}

	r := gin.New()
	// trailing slashes are stripped by trimTrailingSlash instead of answered
	// with a redirect that bypasses the middleware chain
	r.RedirectTrailingSlash = false
	r.Use(httpx.RequestID(), httpx.Logger(log), gin.Recovery())

	// the UI serves HTML and scripts, so it stays outside the JSON group
	if cfg.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/", httpx.JSONContentType(), httpx.BodyLimit(limit))
	api.GET("/", welcomeHandler)
	api.GET("/healthz", healthzHandler)

	api.GET("/productos", listProductsHandler(repo))
	api.GET("/productos/:id", getProductHandler(repo))
	api.GET("/productos/nombre/:nombre", searchByNameHandler(repo))
	api.GET("/productos/precio/:precio", searchByPriceHandler(repo))
	api.GET("/productos/categoria/:categoria", searchByCategoryHandler(repo))
	api.POST("/productos", createProductHandler(repo))
	api.PUT("/productos/:id", updateProductHandler(repo))
	api.PATCH("/productos/:id", updateProductHandler(repo))
	api.DELETE("/productos/:id", deleteProductHandler(repo))

	r.NoRoute(httpx.JSONContentType(), func(c *gin.Context) {
		c.String(http.StatusNotFound, fmt.Sprintf("Cannot %s %s", c.Request.Method, c.Request.URL.Path))
	})
	return trimTrailingSlash(r)
}

// trimTrailingSlash serves "/productos/" and "/productos/3/" as "/productos"
// and "/productos/3". Only one slash is removed and "/" is left alone.
func trimTrailingSlash(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if len(p) < 2 || !strings.HasSuffix(p, "/") {
			h.ServeHTTP(w, r)
			return
		}

		r2 := new(http.Request)
		*r2 = *r
		u := *r.URL
		u.Path = strings.TrimSuffix(p, "/")
		u.RawPath = strings.TrimSuffix(u.RawPath, "/")
		r2.URL = &u
		h.ServeHTTP(w, r2)
	})
}
