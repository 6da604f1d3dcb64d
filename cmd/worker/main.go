package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/balcao-erp/balcao/internal/app"
	"github.com/balcao-erp/balcao/internal/dashboard"
	jobmetrics "github.com/balcao-erp/balcao/internal/jobs"
	"github.com/balcao-erp/balcao/internal/ledger"
	"github.com/balcao-erp/balcao/internal/platform/db"
	"github.com/balcao-erp/balcao/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	dashCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	ledgerRepo := ledger.NewRepository(pool)
	rescanJob := ledger.NewRescanJob(ledgerRepo, dashCache, logger, jobmetrics.NewMetrics(nil))

	rescanTask, err := jobs.NewOverdueRescanTask(jobs.OverdueRescanPayload{Reason: "cron"})
	if err != nil {
		logger.Error("build rescan task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeOverdueRescan, Handler: rescanJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: fmt.Sprintf("@every %s", cfg.RescanInterval), Task: rescanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	// One eager sweep at start so sales that went overdue while the worker was
	// down are reclassified immediately.
	client := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()
	if _, err := client.EnqueueOverdueRescan(ctx, jobs.OverdueRescanPayload{RequestedAt: time.Now(), Reason: "startup"}); err != nil {
		logger.Warn("enqueue startup rescan", slog.Any("error", err))
	}

	logger.Info("worker started", slog.String("rescan_interval", cfg.RescanInterval.String()))
	if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
