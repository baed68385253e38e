package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// PingDB checks the SQL connection behind a gorm handle.
func PingDB(database *gorm.DB) Check {
	return func(ctx context.Context) error {
		sqlDB, err := database.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// Health keeps the gRPC health status in line with dependency checks and
// serves the same result over HTTP on /healthz.
type Health struct {
	srv    *health.Server
	checks map[string]Check
	log    *slog.Logger
}

// NewHealth starts NOT_SERVING until the first successful Probe.
func NewHealth(log *slog.Logger, checks map[string]Check) *Health {
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return &Health{srv: srv, checks: checks, log: log}
}

// Register attaches grpc.health.v1.Health to s.
func (h *Health) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.srv)
}

// Probe runs every check and updates the serving status.
// It returns the first failure in name order.
func (h *Health) Probe(ctx context.Context) error {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.srv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	h.srv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return nil
}

// Run probes every interval until ctx is done, then marks the server as
// shutting down so probes stop routing traffic here.
func (h *Health) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := h.probeWithTimeout(ctx, interval); err != nil {
			h.log.Warn("health check failed", "err", err)
		}
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-ticker.C:
		}
	}
}

func (h *Health) probeWithTimeout(ctx context.Context, timeout time.Duration) error {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return h.Probe(pctx)
}

// Handler serves GET /healthz.
func (h *Health) Handler(c *gin.Context) {
	if err := h.probeWithTimeout(c.Request.Context(), 2*time.Second); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
