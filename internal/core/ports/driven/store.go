package driven

import (
	"context"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
)

// DatasetStore persists the published dataset together with its hash
// ledger.
type DatasetStore interface {
	// Publish atomically replaces the entire dataset and ledger with
	// the snapshot: both are removed and reinserted inside one
	// transaction. On any error the previous dataset and ledger are
	// left exactly as they were. Readers never observe an empty or
	// mixed dataset, nor a dataset without its matching ledger.
	Publish(ctx context.Context, snapshot domain.Snapshot) error

	// Enrichments returns the currently published enrichment for every
	// hash, used to merge unchanged records into the next snapshot.
	Enrichments(ctx context.Context) (map[domain.ContentHash]domain.PriorEnrichment, error)

	// Records returns the published dataset.
	Records(ctx context.Context) ([]domain.EnrichedRecord, error)

	// Count returns the number of published records.
	Count(ctx context.Context) (int, error)
}

// LedgerStore reads the persisted hash ledger. The ledger is only ever
// written inside DatasetStore.Publish; there is no standalone write.
type LedgerStore interface {
	// Hashes loads the full ledger into a set for diffing.
	Hashes(ctx context.Context) (domain.HashSet, error)
}

// RunStore persists run reports.
type RunStore interface {
	// SaveRun records a finished run, whether done or failed.
	SaveRun(ctx context.Context, report *domain.RunReport) error

	// LastRun returns the most recent run report.
	// Returns nil and no error if no run has been recorded.
	LastRun(ctx context.Context) (*domain.RunReport, error)

	// ListRuns returns recent run reports, most recent first.
	ListRuns(ctx context.Context, limit int) ([]domain.RunReport, error)

	// PruneRuns removes old reports, keeping the most recent 'keep'.
	PruneRuns(ctx context.Context, keep int) error
}
