// cmd/api/main.go
//
//	@title			Talent Sourcing API
//	@version		1.0
//	@description	Candidate sourcing: submit a requirement, poll status, read ranked candidates.
//	@BasePath		/
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	_ "talent-sourcing-service/docs"
	"talent-sourcing-service/internal/bootstrap"
	"talent-sourcing-service/internal/config"
	"talent-sourcing-service/internal/metrics"
	"talent-sourcing-service/internal/repository/redisstore"
	"talent-sourcing-service/internal/service"
	httptransport "talent-sourcing-service/internal/transport/http"
	"talent-sourcing-service/internal/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("api.exit", "error", err)
		os.Exit(1)
	}
	logger.Info("api.stopped")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis. A failed ping is not fatal: the store fails open and /health
	// reports the outage.
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("api.redis.unreachable", "addr", cfg.Redis.Addr, "error", err)
	}

	store := redisstore.New(rdb, logger)
	queue := service.NewRedisQueue(rdb, service.QueueKeys{
		QueueKey:      cfg.Redis.QueueKey,
		ProcessingKey: cfg.Redis.ProcessingKey,
		ClaimsKey:     cfg.Redis.ClaimsKey,
	})

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	jobSvc := service.NewJobService(store, queue, collector, service.JobServiceConfig{
		StatusTTL: cfg.TTL.JobStatus,
	}, logger)

	h := httptransport.NewHandler(jobSvc, logger)
	if cfg.SyncSourcing {
		stack, err := bootstrap.BuildPipeline(ctx, cfg, collector, logger)
		if err != nil {
			logger.Warn("api.sourcing.disabled", "error", util.RedactSecrets(err.Error()))
		} else {
			defer stack.Close()
			h.WithSourcing(service.NewSourcingService(stack.Pipeline, service.SourcingServiceConfig{
				Timeout: cfg.Worker.JobTimeout,
			}, logger))
		}
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httptransport.Routes(h, metrics.Handler(reg), logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("api.started", "addr", cfg.HTTPAddr, "redis_addr", cfg.Redis.Addr, "queue_key", cfg.Redis.QueueKey,
		"sync_sourcing", cfg.SyncSourcing)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
