package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/b2b-portal/internal/app"
	"github.com/odyssey-erp/b2b-portal/internal/catalog"
	jobmetrics "github.com/odyssey-erp/b2b-portal/internal/jobs"
	"github.com/odyssey-erp/b2b-portal/internal/platform/cache"
	"github.com/odyssey-erp/b2b-portal/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	source, pool, err := app.CatalogSource(ctx, cfg, logger)
	if err != nil {
		logger.Error("open catalog source", slog.Any("error", err))
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}

	store := catalog.NewStore(source, catalog.NewSnapshotCache(redisClient, cfg.CatalogCacheTTL), logger)
	reindexJob := jobs.NewCatalogReindexJob(store, logger, jobmetrics.NewMetrics(nil))

	reindexTask, err := jobs.NewCatalogReindexTask(jobs.CatalogReindexPayload{Reason: "cron"})
	if err != nil {
		logger.Error("build reindex task", slog.Any("error", err))
		os.Exit(1)
	}

	var cron []jobs.CronRegistration
	if cfg.ReindexCron != "" {
		cron = append(cron, jobs.CronRegistration{
			Spec:    cfg.ReindexCron,
			Task:    reindexTask,
			Options: []asynq.Option{asynq.MaxRetry(3), asynq.Queue(jobs.QueueDefault)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cache.QueueOpt(cfg.RedisAddr),
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCatalogReindex, Handler: reindexJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
