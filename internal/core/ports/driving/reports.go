package driving

import (
	"context"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
)

// ReportService answers questions about past runs and the published
// dataset. It backs the status and history commands.
type ReportService interface {
	// LastRun returns the most recent run report, or nil if no run has
	// been recorded yet.
	LastRun(ctx context.Context) (*domain.RunReport, error)

	// History returns run reports, most recent first. A limit <= 0
	// returns all of them.
	History(ctx context.Context, limit int) ([]domain.RunReport, error)

	// DatasetSize returns the number of published records.
	DatasetSize(ctx context.Context) (int, error)

	// LedgerSize returns the number of hashes in the persisted ledger.
	LedgerSize(ctx context.Context) (int, error)
}
