package common

import (
	"github.com/google/uuid"
)

// NewTaskID generates a unique background task ID with the "task_" prefix
// Format: task_<uuid>
func NewTaskID() string {
	return "task_" + uuid.New().String()
}

// NewThreadID generates a unique analysis thread ID with the "thread_" prefix
// Format: thread_<uuid>
func NewThreadID() string {
	return "thread_" + uuid.New().String()
}

// NewRunID generates a unique run ID for a single node or tool execution
// Format: run_<uuid>
func NewRunID() string {
	return "run_" + uuid.New().String()
}
