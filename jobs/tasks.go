package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogReindex reloads the catalog source and publishes a new snapshot version.
	TaskCatalogReindex = "catalog:reindex"
)

// CatalogReindexPayload describes a reindex request.
type CatalogReindexPayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewCatalogReindexTask constructs an Asynq task.
func NewCatalogReindexTask(payload CatalogReindexPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogReindex, data), nil
}
