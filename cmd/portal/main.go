package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/b2b-portal/internal/app"
	"github.com/odyssey-erp/b2b-portal/internal/cart"
	"github.com/odyssey-erp/b2b-portal/internal/catalog"
	"github.com/odyssey-erp/b2b-portal/internal/catalog/facets"
	"github.com/odyssey-erp/b2b-portal/internal/catalog/lookup"
	"github.com/odyssey-erp/b2b-portal/internal/catalog/query"
	"github.com/odyssey-erp/b2b-portal/internal/observability"
	"github.com/odyssey-erp/b2b-portal/internal/platform/cache"
	"github.com/odyssey-erp/b2b-portal/internal/portal"
	portalhttp "github.com/odyssey-erp/b2b-portal/internal/portal/http"
	"github.com/odyssey-erp/b2b-portal/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	metrics := observability.NewMetrics()

	snapshotCache := catalog.NewSnapshotCache(redisClient, cfg.CatalogCacheTTL)
	store := catalog.NewStore(source, snapshotCache, logger)
	index := lookup.NewCatalogIndex(store, metrics, logger)
	if err := snapshotCache.ListenForInvalidation(ctx, func(version int64) {
		if store.ApplyBump(version) {
			logger.Info("catalog version bumped", slog.Int64("version", version))
		}
	}); err != nil {
		logger.Warn("catalog invalidation listener", slog.Any("error", err))
	}
	if _, err := index.Get(ctx); err != nil {
		logger.Error("initial catalog load", slog.Any("error", err))
		os.Exit(1)
	}

	registry := facets.DefaultRegistry()
	service := portal.NewService(
		store,
		index,
		registry,
		query.NewEngine(registry, cfg.Locale()),
		cart.NewStore(redisClient, cfg.CartTTL),
		metrics,
		logger,
		portal.Options{
			PageSize:    cfg.CatalogPageSize,
			SearchLimit: cfg.CatalogSearchLimit,
			Debounce:    cfg.BulkDebounce,
		},
	)

	queueOpt := cache.QueueOpt(cfg.RedisAddr)
	jobClient, err := jobs.NewClient(queueOpt)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	inspector := asynq.NewInspector(queueOpt)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		PortalHandler: portalhttp.NewHandler(logger, service, portalhttp.WithReindexQueue(jobClient)),
		JobHandler:    jobs.NewHandler(inspector, logger),
		Metrics:       metrics,
		Catalog:       store,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
