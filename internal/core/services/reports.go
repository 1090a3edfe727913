package services

import (
	"context"
	"fmt"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driven"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driving"
)

// Ensure ReportService implements the interface.
var _ driving.ReportService = (*ReportService)(nil)

// ReportService reads run history and dataset figures for the status
// and history commands.
type ReportService struct {
	runs    driven.RunStore
	dataset driven.DatasetStore
	ledger  driven.LedgerStore
}

// NewReportService creates a report service.
func NewReportService(
	runs driven.RunStore,
	dataset driven.DatasetStore,
	ledger driven.LedgerStore,
) *ReportService {
	return &ReportService{
		runs:    runs,
		dataset: dataset,
		ledger:  ledger,
	}
}

// LastRun returns the most recent run report, or nil if no run has
// been recorded yet.
func (r *ReportService) LastRun(ctx context.Context) (*domain.RunReport, error) {
	report, err := r.runs.LastRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading last run: %w", err)
	}
	return report, nil
}

// History returns run reports, most recent first.
func (r *ReportService) History(ctx context.Context, limit int) ([]domain.RunReport, error) {
	reports, err := r.runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return reports, nil
}

// DatasetSize returns the number of published records.
func (r *ReportService) DatasetSize(ctx context.Context) (int, error) {
	count, err := r.dataset.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting dataset: %w", err)
	}
	return count, nil
}

// LedgerSize returns the number of hashes in the persisted ledger.
func (r *ReportService) LedgerSize(ctx context.Context) (int, error) {
	hashes, err := r.ledger.Hashes(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading ledger: %w", err)
	}
	return hashes.Len(), nil
}
