package domain

import "time"

// RunStage is a step in the pipeline state machine:
// load → diff → enrich → publish → done, with failed reachable from
// any step.
type RunStage string

// Pipeline stages.
const (
	// StageLoad reads the source into records and computes hashes.
	StageLoad RunStage = "load"

	// StageDiff compares hashes against the persisted ledger.
	StageDiff RunStage = "diff"

	// StageEnrich classifies the new or changed records.
	StageEnrich RunStage = "enrich"

	// StagePublish atomically replaces the dataset and ledger.
	StagePublish RunStage = "publish"

	// StageDone is the successful terminal stage.
	StageDone RunStage = "done"

	// StageFailed is the failure terminal stage.
	StageFailed RunStage = "failed"
)

// IsValid returns true if the stage is recognised.
func (s RunStage) IsValid() bool {
	switch s {
	case StageLoad, StageDiff, StageEnrich, StagePublish, StageDone, StageFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true for the done and failed stages.
func (s RunStage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// String returns the string representation.
func (s RunStage) String() string {
	return string(s)
}

// RunReport is the persisted outcome of one pipeline run.
type RunReport struct {
	// ID is the run's unique identifier.
	ID string

	// StartedAt is when the run began.
	StartedAt time.Time

	// EndedAt is when the run reached a terminal stage.
	EndedAt time.Time

	// Stage is the terminal stage: StageDone or StageFailed.
	Stage RunStage

	// TotalRows is the number of data rows parsed from the source,
	// counted before duplicate collapse.
	TotalRows int

	// DuplicateRows is the number of source rows collapsed because an
	// identical row (same hash) appeared earlier in the file.
	DuplicateRows int

	// NewRows is the size of the diff set: records absent from the ledger.
	NewRows int

	// EnrichedRows is the number of new records the classifier labelled.
	EnrichedRows int

	// SentinelRows is the number of new records that fell back to the
	// Uncategorized sentinel.
	SentinelRows int

	// PublishedRows is the size of the published snapshot.
	PublishedRows int

	// DryRun marks a run that stopped after diff without enriching or
	// publishing.
	DryRun bool

	// Error is the failure description when Stage is StageFailed.
	Error string
}

// Succeeded returns true if the run reached StageDone.
func (r RunReport) Succeeded() bool {
	return r.Stage == StageDone
}

// Duration returns the wall-clock time the run took.
func (r RunReport) Duration() time.Duration {
	if r.EndedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}
