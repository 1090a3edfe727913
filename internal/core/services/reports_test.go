package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sher213/GrantsInvestments/internal/adapters/driven/storage/memory"
	"github.com/Sher213/GrantsInvestments/internal/core/domain"
)

func newTestReports(t *testing.T) (*ReportService, *memory.DatasetStore, *memory.RunStore) {
	t.Helper()

	dataset := memory.NewDatasetStore()
	runs := memory.NewRunStore()
	return NewReportService(runs, dataset, dataset), dataset, runs
}

func reportFixture(id string, started time.Time) *domain.RunReport {
	return &domain.RunReport{
		ID:            id,
		StartedAt:     started,
		EndedAt:       started.Add(time.Minute),
		Stage:         domain.StageDone,
		TotalRows:     10,
		NewRows:       4,
		EnrichedRows:  4,
		PublishedRows: 10,
	}
}

// ==================== ReportService Tests ====================

func TestNewReportService(t *testing.T) {
	reports, _, _ := newTestReports(t)
	require.NotNil(t, reports)
}

func TestReportService_LastRun(t *testing.T) {
	reports, _, runs := newTestReports(t)
	ctx := context.Background()

	base := time.Now()
	require.NoError(t, runs.SaveRun(ctx, reportFixture("run-old", base.Add(-2*time.Hour))))
	require.NoError(t, runs.SaveRun(ctx, reportFixture("run-new", base.Add(-time.Hour))))

	last, err := reports.LastRun(ctx)

	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "run-new", last.ID)
}

func TestReportService_LastRun_Empty(t *testing.T) {
	reports, _, _ := newTestReports(t)

	last, err := reports.LastRun(context.Background())

	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestReportService_History(t *testing.T) {
	reports, _, runs := newTestReports(t)
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, runs.SaveRun(ctx, reportFixture(id, base.Add(time.Duration(i)*time.Minute))))
	}

	limited, err := reports.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "run-c", limited[0].ID)
	assert.Equal(t, "run-b", limited[1].ID)

	all, err := reports.History(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestReportService_DatasetAndLedgerSize(t *testing.T) {
	reports, dataset, _ := newTestReports(t)
	ctx := context.Background()

	recA, recB := grantA(), grantB()
	snapshot := domain.Snapshot{
		RunID:       "run-1",
		PublishedAt: time.Now(),
		Records: []domain.EnrichedRecord{
			{Record: recA, Hash: mustHash(t, recA), Enrichment: domain.EnrichmentResult{Label: "Environment & Energy"}},
			{Record: recB, Hash: mustHash(t, recB), Enrichment: domain.EnrichmentResult{Label: "Arts, Culture & Heritage"}},
		},
	}
	require.NoError(t, dataset.Publish(ctx, snapshot))

	size, err := reports.DatasetSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, size)

	ledger, err := reports.LedgerSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, ledger)
}

func TestReportService_EmptySizes(t *testing.T) {
	reports, _, _ := newTestReports(t)
	ctx := context.Background()

	size, err := reports.DatasetSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, size)

	ledger, err := reports.LedgerSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, ledger)
}
