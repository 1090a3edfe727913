package domain

import "time"

// ScheduledTask represents a recurring background task.
type ScheduledTask struct {
	// ID is the unique identifier for the task.
	ID string

	// Name is a human-readable name for the task.
	Name string

	// Interval defines how often the task should run.
	Interval time.Duration

	// LastRun is when the task last ran.
	LastRun time.Time

	// NextRun is when the task should run next.
	NextRun time.Time

	// LastError contains the last error message, if any.
	LastError string

	// LastSuccess is when the task last completed successfully.
	LastSuccess time.Time

	// Enabled indicates whether the task is active.
	Enabled bool
}

// Due reports whether the task should run at the given time.
func (t ScheduledTask) Due(now time.Time) bool {
	if !t.Enabled {
		return false
	}
	return !t.NextRun.After(now)
}

// SchedulerConfig holds scheduler configuration.
type SchedulerConfig struct {
	// Enabled is the master switch for the scheduler.
	Enabled bool

	// RefreshInterval is how often the dataset-refresh task runs.
	RefreshInterval time.Duration

	// HistoryKeep is how many run reports to retain when pruning.
	HistoryKeep int
}

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:         true,
		RefreshInterval: 24 * time.Hour,
		HistoryKeep:     100,
	}
}

// Task IDs for built-in tasks.
const (
	TaskIDDatasetRefresh = "dataset-refresh"
)
