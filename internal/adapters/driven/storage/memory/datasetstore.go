package memory

import (
	"context"
	"sync"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driven"
)

// Ensure DatasetStore implements the interfaces.
var (
	_ driven.DatasetStore = (*DatasetStore)(nil)
	_ driven.LedgerStore  = (*DatasetStore)(nil)
)

// DatasetStore is an in-memory implementation of driven.DatasetStore
// and driven.LedgerStore. Publish swaps the dataset and the ledger
// together under one lock, matching the transactional behaviour of
// the sqlite store.
type DatasetStore struct {
	mu      sync.RWMutex
	records []domain.EnrichedRecord
	hashes  domain.HashSet
}

// NewDatasetStore creates a new in-memory dataset store.
func NewDatasetStore() *DatasetStore {
	return &DatasetStore{
		hashes: domain.NewHashSet(),
	}
}

// Publish replaces the dataset and ledger with the snapshot.
func (s *DatasetStore) Publish(_ context.Context, snapshot domain.Snapshot) error {
	records := make([]domain.EnrichedRecord, len(snapshot.Records))
	copy(records, snapshot.Records)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.hashes = domain.NewHashSet(snapshot.Hashes()...)
	return nil
}

// Enrichments returns the published enrichment for every hash.
func (s *DatasetStore) Enrichments(_ context.Context) (map[domain.ContentHash]domain.PriorEnrichment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prior := make(map[domain.ContentHash]domain.PriorEnrichment, len(s.records))
	for _, rec := range s.records {
		prior[rec.Hash] = domain.PriorEnrichment{
			Result:     rec.Enrichment,
			EnrichedAt: rec.EnrichedAt,
		}
	}
	return prior, nil
}

// Records returns the published dataset.
func (s *DatasetStore) Records(_ context.Context) ([]domain.EnrichedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]domain.EnrichedRecord, len(s.records))
	copy(records, s.records)
	return records, nil
}

// Count returns the number of published records.
func (s *DatasetStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Hashes returns a copy of the hash ledger.
func (s *DatasetStore) Hashes(_ context.Context) (domain.HashSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hashes := domain.NewHashSet()
	for h := range s.hashes {
		hashes.Add(h)
	}
	return hashes, nil
}
