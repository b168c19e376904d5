package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGrantIntegrity sweeps for grants that reference inactive rows.
	TaskGrantIntegrity = "authz:grant_integrity"
	// TaskCatalogWarmup preloads the permission catalog cache.
	TaskCatalogWarmup = "authz:catalog_warmup"
)

// GrantIntegrityPayload configures an integrity sweep run.
type GrantIntegrityPayload struct {
	ReportOnly bool `json:"reportOnly"`
}

// NewGrantIntegrityTask constructs an Asynq task for the integrity sweep.
func NewGrantIntegrityTask(payload GrantIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGrantIntegrity, data), nil
}

// CatalogWarmupPayload configures a warmup run.
type CatalogWarmupPayload struct {
	Scope string `json:"scope"`
}

// NewCatalogWarmupTask constructs an Asynq task for cache warmup.
func NewCatalogWarmupTask(scope string) (*asynq.Task, error) {
	data, err := json.Marshal(CatalogWarmupPayload{Scope: scope})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogWarmup, data), nil
}
