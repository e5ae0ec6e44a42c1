// Package health publishes the standard gRPC health service for the catalog,
// driven by a periodic probe of the document store.
package health

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the per-service name clients may check besides "".
const ServiceName = "productos.ProductService"

type Probe func(ctx context.Context) error

type Checker struct {
	srv      *health.Server
	probe    Probe
	interval time.Duration
	log      *slog.Logger
}

func NewChecker(probe Probe, interval time.Duration, log *slog.Logger) *Checker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	c := &Checker{srv: health.NewServer(), probe: probe, interval: interval, log: log}
	c.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return c
}

// Check runs the probe once and records the result.
func (c *Checker) Check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.interval)
	defer cancel()

	if err := c.probe(ctx); err != nil {
		c.log.Warn("health probe failed", "error", err)
		c.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	c.set(healthpb.HealthCheckResponse_SERVING)
}

// Run probes immediately and then every interval until ctx is done.
func (c *Checker) Run(ctx context.Context) {
	t := time.NewTicker(c.interval)
	defer t.Stop()

	c.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			c.srv.Shutdown()
			return
		case <-t.C:
			c.Check(ctx)
		}
	}
}

func (c *Checker) set(status healthpb.HealthCheckResponse_ServingStatus) {
	c.srv.SetServingStatus("", status)
	c.srv.SetServingStatus(ServiceName, status)
}

// Serve exposes the health service on lis until ctx is done.
func Serve(ctx context.Context, lis net.Listener, c *Checker) error {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, c.srv)

	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()
	return s.Serve(lis)
}
