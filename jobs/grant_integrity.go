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

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// OrphanLister reports grants whose permission or user went inactive.
type OrphanLister interface {
	ListOrphanedGrants(ctx context.Context) ([]authz.Grant, error)
}

// GrantRemover deletes a grant by id.
type GrantRemover interface {
	DeleteGrant(ctx context.Context, grantID int64) (bool, error)
}

// GrantIntegrityJob sweeps the grant table for rows referencing inactive
// permissions or users. In report-only mode it just logs and counts them.
type GrantIntegrityJob struct {
	Orphans OrphanLister
	Remover GrantRemover
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewGrantIntegrityJob wires dependencies for the integrity handler.
func NewGrantIntegrityJob(orphans OrphanLister, remover GrantRemover, logger *slog.Logger, metrics *jobmetrics.Metrics) *GrantIntegrityJob {
	return &GrantIntegrityJob{Orphans: orphans, Remover: remover, Logger: logger, Metrics: metrics}
}

// Handle processes grant integrity tasks.
func (j *GrantIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Orphans == nil {
		return errors.New("grant integrity: handler not configured")
	}
	var payload GrantIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track("grant_integrity")
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	orphans, err := j.Orphans.ListOrphanedGrants(ctx)
	if err != nil {
		resultErr = err
		logger.Error("list orphaned grants", slog.Any("error", err))
		return resultErr
	}
	j.metrics().SetOrphanedGrants(len(orphans))
	if len(orphans) == 0 {
		logger.Info("grant integrity sweep clean")
		return resultErr
	}

	for _, grant := range orphans {
		logger.Warn("orphaned grant",
			slog.Int64("grant_id", grant.ID),
			slog.String("user", grant.UserID),
			slog.String("permission", grant.PermissionCode))
		if payload.ReportOnly || j.Remover == nil {
			continue
		}
		if _, err := j.Remover.DeleteGrant(ctx, grant.ID); err != nil {
			resultErr = err
			logger.Error("delete orphaned grant", slog.Int64("grant_id", grant.ID), slog.Any("error", err))
			return resultErr
		}
	}
	logger.Info("grant integrity sweep complete",
		slog.Int("orphans", len(orphans)),
		slog.Bool("report_only", payload.ReportOnly))
	return resultErr
}

func (j *GrantIntegrityJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *GrantIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
