package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"talent-sourcing-service/internal/cli"
	"talent-sourcing-service/internal/config"
	"talent-sourcing-service/internal/repository/redisstore"
	"talent-sourcing-service/internal/service"
)

func main() {
	root := cli.BuildCLI(openEnv)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openEnv(ctx context.Context) (*cli.Env, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
	}

	queue := service.NewRedisQueue(rdb, service.QueueKeys{
		QueueKey:      cfg.Redis.QueueKey,
		ProcessingKey: cfg.Redis.ProcessingKey,
		ClaimsKey:     cfg.Redis.ClaimsKey,
	})
	jobs := service.NewJobService(redisstore.New(rdb, logger), queue, nil, service.JobServiceConfig{
		StatusTTL: cfg.TTL.JobStatus,
	}, logger)

	return &cli.Env{
		Jobs:             jobs,
		Queue:            queue,
		VisibilityWindow: cfg.VisibilityWindow(),
	}, func() { _ = rdb.Close() }, nil
}
