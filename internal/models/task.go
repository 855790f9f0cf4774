package models

import (
	"encoding/json"
	"time"
)

// Background analysis task states.
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

// AnalysisTask tracks one background pipeline run from submission to its
// final report.
type AnalysisTask struct {
	ID        string          `json:"task_id" badgerhold:"key"`
	StockCode string          `json:"stock_code"`
	EndDate   string          `json:"end_date,omitempty"`
	Status    string          `json:"status"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TaskView is the client-facing status shape: just the state and whatever
// result the run produced so far.
type TaskView struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
}

// View projects the task onto its client-facing shape. A task with no
// result yet reports an explicit null.
func (t AnalysisTask) View() TaskView {
	result := t.Result
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	return TaskView{Status: t.Status, Result: result}
}
