package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/b2b-portal/internal/catalog"
	jobmetrics "github.com/odyssey-erp/b2b-portal/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Reloader reloads the catalog from its source.
type Reloader interface {
	Reload(ctx context.Context) (catalog.Snapshot, error)
}

// CatalogReindexJob re-reads the catalog source, validates it and bumps the
// shared snapshot version so portal instances drop their indexes.
type CatalogReindexJob struct {
	Reloader Reloader
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics

	clock func() time.Time
}

// NewCatalogReindexJob constructs the reindex handler.
func NewCatalogReindexJob(reloader Reloader, logger *slog.Logger, metrics *jobmetrics.Metrics) *CatalogReindexJob {
	return &CatalogReindexJob{Reloader: reloader, Logger: logger, Metrics: metrics}
}

// Handle processes TaskCatalogReindex tasks.
func (j *CatalogReindexJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	if j == nil || j.Reloader == nil {
		return errors.New("jobs: catalog reindex not configured")
	}
	var payload CatalogReindexPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	metrics := j.metrics()
	tracker := metrics.Track(TaskCatalogReindex)
	defer func() {
		err = tracker.End(err)
	}()

	started := j.now()
	snapshot, err := j.Reloader.Reload(ctx)
	if err != nil {
		if catalog.IsRejected(err) {
			j.logger().Error("catalog rejected", slog.Any("error", err))
			return fmt.Errorf("jobs: reindex: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("jobs: reindex: %w", err)
	}
	metrics.AddProcessed(TaskCatalogReindex, len(snapshot.Products))

	j.logger().Info("catalog reindexed",
		slog.Int64("version", snapshot.Version),
		slog.Int("products", len(snapshot.Products)),
		slog.String("reason", payload.Reason),
		slog.Duration("took", j.now().Sub(started)),
	)
	return nil
}

func (j *CatalogReindexJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCatalogReindex))
	}
	return slog.Default().With(slog.String("job", TaskCatalogReindex))
}

func (j *CatalogReindexJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *CatalogReindexJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
