package worker

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name the worker reports under.
const ServiceName = "talent-sourcing.worker"

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter mirrors Redis reachability into a gRPC health server.
type HealthReporter struct {
	hs       *health.Server
	redis    Pinger
	interval time.Duration
	log      *slog.Logger
}

func NewHealthReporter(hs *health.Server, redis Pinger, interval time.Duration, logger *slog.Logger) *HealthReporter {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthReporter{hs: hs, redis: redis, interval: interval, log: logger.With("component", "health")}
}

// Check pings Redis once and updates the serving status.
func (h *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.redis.Ping(pctx); err != nil {
		h.log.Warn("health.redis.unreachable", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.hs.SetServingStatus("", status)
	h.hs.SetServingStatus(ServiceName, status)
	return status
}

func (h *HealthReporter) Run(ctx context.Context) {
	h.Check(ctx)
	t := time.NewTicker(h.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.hs.Shutdown()
			return
		case <-t.C:
			h.Check(ctx)
		}
	}
}
