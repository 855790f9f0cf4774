package interfaces

import (
	"encoding/json"

	"github.com/lunahan/aestimo/internal/models"
)

// TaskService tracks background analysis runs for the non-streaming API
// surface. Implementations persist tasks so status survives a restart.
type TaskService interface {
	// Create registers a new pending task and returns it.
	Create(stockCode, endDate string) (*models.AnalysisTask, error)

	// Get returns the task; ok is false for unknown IDs.
	Get(taskID string) (*models.AnalysisTask, bool)

	// MarkRunning transitions the task to running.
	MarkRunning(taskID string) error

	// Complete stores the final result and transitions to completed.
	Complete(taskID string, result json.RawMessage) error

	// Fail stores the failure reason and transitions to failed.
	Fail(taskID string, reason string) error
}
