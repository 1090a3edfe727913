package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore is an in-memory implementation of driven.RunStore.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]domain.RunReport
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]domain.RunReport),
	}
}

// SaveRun stores or updates a run report.
func (s *RunStore) SaveRun(_ context.Context, report *domain.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[report.ID] = *report
	return nil
}

// LastRun returns the most recent run report, or nil when none exists.
func (s *RunStore) LastRun(_ context.Context) (*domain.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := s.sorted()
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// ListRuns returns recent run reports, most recent first.
func (s *RunStore) ListRuns(_ context.Context, limit int) ([]domain.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := s.sorted()
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// PruneRuns removes old reports, keeping the most recent 'keep'.
func (s *RunStore) PruneRuns(_ context.Context, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	runs := s.sorted()
	for _, run := range runs[min(keep, len(runs)):] {
		delete(s.runs, run.ID)
	}
	return nil
}

// sorted returns all runs ordered by start time, most recent first.
// Callers must hold at least the read lock.
func (s *RunStore) sorted() []domain.RunReport {
	runs := make([]domain.RunReport, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs
}
