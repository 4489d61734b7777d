// cmd/worker/main.go
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
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"talent-sourcing-service/internal/bootstrap"
	"talent-sourcing-service/internal/config"
	"talent-sourcing-service/internal/metrics"
	"talent-sourcing-service/internal/repository/redisstore"
	"talent-sourcing-service/internal/service"
	"talent-sourcing-service/internal/util"
	"talent-sourcing-service/internal/worker"
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
		logger.Error("worker.exit", "error", util.RedactSecrets(err.Error()))
		os.Exit(1)
	}
	logger.Info("worker.stopped")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	store := redisstore.New(rdb, logger)
	queue := service.NewRedisQueue(rdb, service.QueueKeys{
		QueueKey:      cfg.Redis.QueueKey,
		ProcessingKey: cfg.Redis.ProcessingKey,
		ClaimsKey:     cfg.Redis.ClaimsKey,
	})

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	stack, err := bootstrap.BuildPipeline(ctx, cfg, collector, logger)
	if err != nil {
		return err
	}
	defer stack.Close()

	processor := worker.NewProcessor(store, stack.Pipeline, collector, worker.ProcessorConfig{
		JobTimeout: cfg.Worker.JobTimeout,
		StatusTTL:  cfg.TTL.JobStatus,
		CacheTTL:   cfg.TTL.Cache,
	}, logger)
	pool := worker.NewPool(queue, processor, cfg.Worker.Count, logger)

	reaper := worker.NewReaper(queue, collector, worker.ReaperConfig{
		Interval:   cfg.Worker.ReaperInterval,
		Visibility: cfg.VisibilityWindow(),
		Prune:      stack.Pruner,
		PruneAge:   cfg.Enrich.Freshness,
	}, logger)

	// gRPC health
	lis, err := net.Listen("tcp", cfg.HealthAddr)
	if err != nil {
		return fmt.Errorf("health listen: %w", err)
	}
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	reporter := worker.NewHealthReporter(hs, store, 10*time.Second, logger)

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metrics.Handler(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("worker.health.serve", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker.metrics.serve", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		reporter.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		reaper.Run(ctx)
	}()

	logger.Info("worker.started",
		"workers", cfg.Worker.Count,
		"redis_addr", cfg.Redis.Addr,
		"queue_key", cfg.Redis.QueueKey,
		"processing_key", cfg.Redis.ProcessingKey,
		"job_timeout", cfg.Worker.JobTimeout.String(),
		"llm_provider", cfg.LLM.Provider,
		"enrich_cache", cfg.Enrich.CacheDriver,
		"health_addr", cfg.HealthAddr,
		"metrics_addr", cfg.MetricsAddr,
	)

	pool.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	wg.Wait()
	return nil
}
