package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/atlas-bms/atlas-bms/internal/authz"
	jobmetrics "github.com/atlas-bms/atlas-bms/internal/jobs"
)

// CatalogLister returns the active permission catalog.
type CatalogLister interface {
	ListActivePermissions(ctx context.Context) ([]authz.Permission, error)
}

// CatalogWarmer stores catalog entries in the lookup cache.
type CatalogWarmer interface {
	Warm(ctx context.Context, perms []authz.Permission)
}

// CatalogWarmupJob preloads the permission catalog cache so the first
// authorization checks after a deploy do not all hit the database.
type CatalogWarmupJob struct {
	Catalog CatalogLister
	Cache   CatalogWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewCatalogWarmupJob wires dependencies for the warmup handler.
func NewCatalogWarmupJob(catalog CatalogLister, cache CatalogWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *CatalogWarmupJob {
	return &CatalogWarmupJob{Catalog: catalog, Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle processes catalog warmup tasks.
func (j *CatalogWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Catalog == nil || j.Cache == nil {
		return errors.New("catalog warmup: handler not configured")
	}
	var payload CatalogWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track("catalog_warmup")
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	perms, err := j.Catalog.ListActivePermissions(ctx)
	if err != nil {
		resultErr = err
		j.logger().Error("load permission catalog", slog.Any("error", err))
		return resultErr
	}
	j.Cache.Warm(ctx, perms)
	j.logger().Info("permission catalog warmed", slog.Int("permissions", len(perms)))
	return resultErr
}

func (j *CatalogWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *CatalogWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
