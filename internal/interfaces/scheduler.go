package interfaces

import (
	"context"
	"time"
)

// SchedulerService runs the periodic static-catalogue refresh on a cron
// schedule (6-field, with seconds).
type SchedulerService interface {
	// Start registers the refresh job and starts the cron loop. No-op when
	// the scheduler is disabled in configuration.
	Start() error

	// Stop halts the cron loop, waiting for a running refresh to finish.
	Stop()

	// IsRunning reports whether the cron loop is active.
	IsRunning() bool

	// NextRun returns the next scheduled refresh time; ok is false when the
	// scheduler is not running.
	NextRun() (next time.Time, ok bool)

	// TriggerNow runs the catalogue refresh immediately, outside the
	// schedule.
	TriggerNow(ctx context.Context) error
}
