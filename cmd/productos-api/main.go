// @title        Productos API
// @version      1.0
// @description  CRUD del catálogo de productos sobre MongoDB.
// @BasePath     /
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/productos-api/internal/config"
	"github.com/MikeMC777/productos-api/internal/health"
	"github.com/MikeMC777/productos-api/internal/logger"
	"github.com/MikeMC777/productos-api/internal/mongodb"
	prod "github.com/MikeMC777/productos-api/internal/product"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)
	gin.SetMode(cfg.GinMode)
	logConfig(log, cfg)

	mgr, err := mongodb.NewManager(cfg.Mongo)
	if err != nil {
		log.Error("invalid mongodb configuration", "error", err)
		os.Exit(1)
	}
	repo := prod.NewMongoRepo(mgr, cfg.Mongo.Database, cfg.Mongo.Collection, log)

	r := newRouter(repo, routerConfig{
		BodyLimit: cfg.BodyLimit,
		Swagger:   cfg.SwaggerEnabled,
		Logger:    log,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Health.GRPCPort != "" {
		if err := startHealth(ctx, cfg.Health, mgr, log); err != nil {
			log.Error("failed to start grpc health service", "error", err)
			os.Exit(1)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(fmt.Sprintf("Servidor escuchando en el puerto %s", cfg.Port),
			"mongodb_pooled", mgr.Pooled(),
			"swagger", cfg.SwaggerEnabled,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	exitCode := 0
	select {
	case err := <-errCh:
		log.Error("http server failed", "error", err)
		exitCode = 1
	case <-ctx.Done():
		log.Info("shutting down server...")
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		exitCode = 1
	}
	if err := mgr.Close(shutdownCtx); err != nil {
		log.Warn("mongodb close error", "error", err)
	}

	log.Info("server stopped")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// logConfig runs once the configured logger is the default, so LOG_LEVEL=debug shows it.
func logConfig(log *slog.Logger, cfg config.Config) {
	log.Debug("configuration loaded",
		"port", cfg.Port,
		"mongodb_database", cfg.Mongo.Database,
		"mongodb_collection", cfg.Mongo.Collection,
		"mongodb_pooled", cfg.Mongo.Pooled,
		"body_limit", cfg.BodyLimit,
	)
}

func startHealth(ctx context.Context, cfg config.HealthConfig, mgr *mongodb.Manager, log *slog.Logger) error {
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return err
	}

	checker := health.NewChecker(mgr.Ping, cfg.Interval, log)
	go checker.Run(ctx)
	go func() {
		log.Info("grpc health service listening", "port", cfg.GRPCPort)
		if err := health.Serve(ctx, lis, checker); err != nil {
			log.Error("grpc health service failed", "error", err)
		}
	}()
	return nil
}
