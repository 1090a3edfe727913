package driving

import (
	"context"
	"time"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
)

// Pipeline runs the load → diff → enrich → publish cycle.
type Pipeline interface {
	// Run executes one pipeline run and returns its report. The report
	// is returned for failed runs too, alongside the error. A second
	// Run while one is active fails with domain.ErrRunInProgress.
	Run(ctx context.Context, opts RunOptions) (domain.RunReport, error)

	// Status returns live progress of the active run. When no run is
	// active it reports the terminal state of the last run in this
	// process, with Running false.
	Status() RunStatus
}

// RunOptions configures a single run.
type RunOptions struct {
	// DryRun stops after diff and reports what would be enriched,
	// without calling the classifier or publishing.
	DryRun bool
}

// RunStatus is a point-in-time view of a run's progress.
type RunStatus struct {
	// RunID identifies the run, empty if none has started.
	RunID string

	// Running indicates a run is currently in progress.
	Running bool

	// Stage is the step the run is in, or its terminal stage.
	Stage domain.RunStage

	// TotalRows is the number of source rows loaded.
	TotalRows int

	// NewRows is the diff set size.
	NewRows int

	// EnrichedRows counts records the classifier has labelled so far.
	EnrichedRows int

	// SentinelRows counts records that fell back to the sentinel so far.
	SentinelRows int

	// StartedAt is when the run began.
	StartedAt time.Time
}

// Done counts records whose enrichment is settled.
func (s RunStatus) Done() int {
	return s.EnrichedRows + s.SentinelRows
}
