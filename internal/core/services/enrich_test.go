package services

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driven"
)

// --- Mock implementations for enricher testing ---

// enrichMockClassifier implements driven.Classifier for testing.
// Also used by pipeline_test.go.
type enrichMockClassifier struct {
	mu        stdsync.Mutex
	calls     int
	pings     int
	callTimes []time.Time
	requests  []driven.ClassifyRequest

	// classifyFn, when set, decides each call's outcome. calls is the
	// 1-based call number at the time of the call.
	classifyFn func(req driven.ClassifyRequest, call int) (domain.EnrichmentResult, error)

	pingErr error
}

func (m *enrichMockClassifier) Classify(_ context.Context, req driven.ClassifyRequest) (domain.EnrichmentResult, error) {
	m.mu.Lock()
	m.calls++
	call := m.calls
	m.callTimes = append(m.callTimes, time.Now())
	m.requests = append(m.requests, req)
	fn := m.classifyFn
	m.mu.Unlock()

	if fn != nil {
		return fn(req, call)
	}
	return domain.EnrichmentResult{Label: "Health & Medical Research", Confidence: 0.9}, nil
}

func (m *enrichMockClassifier) ModelName() string { return "mock-classifier" }

func (m *enrichMockClassifier) Ping(_ context.Context) error {
	m.mu.Lock()
	m.pings++
	m.mu.Unlock()
	return m.pingErr
}

func (m *enrichMockClassifier) Close() error { return nil }

func (m *enrichMockClassifier) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *enrichMockClassifier) pingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pings
}

func enrichTestRecords(n int) []domain.Record {
	records := make([]domain.Record, n)
	for i := range records {
		records[i] = domain.Record{
			Title:     fmt.Sprintf("Programme %d", i),
			Recipient: fmt.Sprintf("Recipient %d", i),
			SourceRow: i + 1,
		}
	}
	return records
}

// --- Tests ---

func TestNewEnricher_Defaults(t *testing.T) {
	enricher := NewEnricher(&enrichMockClassifier{}, EnricherConfig{}, zap.NewNop())

	require.NotNil(t, enricher)
	assert.Equal(t, 4, enricher.config.Workers)
	assert.Equal(t, 2000, enricher.config.RatePerMinute)
	assert.Equal(t, 1, enricher.config.Burst)
	assert.Equal(t, 30*time.Second, enricher.config.CallTimeout)
	assert.Equal(t, 1, enricher.config.Retry.MaxAttempts)
	assert.NotNil(t, enricher.limiter)
}

func TestEnricher_EnrichAll_Empty(t *testing.T) {
	classifier := &enrichMockClassifier{}
	enricher := NewEnricher(classifier, EnricherConfig{}, zap.NewNop())

	batch, err := enricher.EnrichAll(context.Background(), nil, nil)

	require.NoError(t, err)
	assert.Empty(t, batch.Results)
	assert.Equal(t, 0, batch.Enriched)
	assert.Equal(t, 0, batch.Sentinel)
	assert.Equal(t, 0, classifier.callCount())
}

func TestEnricher_EnrichAll_ResultsByInputIndex(t *testing.T) {
	classifier := &enrichMockClassifier{
		classifyFn: func(req driven.ClassifyRequest, _ int) (domain.EnrichmentResult, error) {
			// Derive the label from the input so ordering is observable
			return domain.EnrichmentResult{Label: "label for " + req.Title, Confidence: 1}, nil
		},
	}
	enricher := NewEnricher(classifier, EnricherConfig{Workers: 4, RatePerMinute: 600000}, zap.NewNop())

	records := enrichTestRecords(20)
	batch, err := enricher.EnrichAll(context.Background(), records, nil)

	require.NoError(t, err)
	require.Len(t, batch.Results, 20)
	for i, rec := range records {
		assert.Equal(t, "label for "+rec.Title, batch.Results[i].Label)
	}
	assert.Equal(t, 20, batch.Enriched)
	assert.Equal(t, 0, batch.Sentinel)
	assert.Equal(t, 20, classifier.callCount())
}

func TestEnricher_EnrichAll_SentinelIsolation(t *testing.T) {
	classifier := &enrichMockClassifier{
		classifyFn: func(req driven.ClassifyRequest, _ int) (domain.EnrichmentResult, error) {
			if req.Title == "Programme 1" {
				return domain.EnrichmentResult{}, errors.New("transient upstream failure")
			}
			return domain.EnrichmentResult{Label: "Arts & Culture", Confidence: 0.8}, nil
		},
	}
	enricher := NewEnricher(classifier, EnricherConfig{Workers: 2, RatePerMinute: 600000}, zap.NewNop())

	records := enrichTestRecords(3)
	batch, err := enricher.EnrichAll(context.Background(), records, nil)

	require.NoError(t, err)
	require.Len(t, batch.Results, 3)
	assert.Equal(t, "Arts & Culture", batch.Results[0].Label)
	assert.True(t, batch.Results[1].IsSentinel())
	assert.Equal(t, "Arts & Culture", batch.Results[2].Label)
	assert.Equal(t, 2, batch.Enriched)
	assert.Equal(t, 1, batch.Sentinel)
}

func TestEnricher_EnrichAll_SystemicAborts(t *testing.T) {
	classifier := &enrichMockClassifier{
		classifyFn: func(_ driven.ClassifyRequest, _ int) (domain.EnrichmentResult, error) {
			return domain.EnrichmentResult{}, fmt.Errorf("calling classifier: %w", domain.ErrClassifierAuth)
		},
	}
	enricher := NewEnricher(classifier, EnricherConfig{Workers: 2, RatePerMinute: 600000, Retry: domain.RetryPolicy{MaxAttempts: 3}}, zap.NewNop())

	records := enrichTestRecords(50)
	batch, err := enricher.EnrichAll(context.Background(), records, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrClassifierAuth)
	assert.Nil(t, batch.Results)

	// Systemic failures are never retried and cancel the pool, so far
	// fewer calls happen than records were queued.
	assert.Less(t, classifier.callCount(), 50)
}

func TestEnricher_EnrichAll_RateCeiling(t *testing.T) {
	classifier := &enrichMockClassifier{}
	// 600 rpm = 10 calls/second with no burst headroom, so 3 calls
	// need at least ~200ms.
	enricher := NewEnricher(classifier, EnricherConfig{Workers: 3, RatePerMinute: 600, Burst: 1}, zap.NewNop())

	start := time.Now()
	batch, err := enricher.EnrichAll(context.Background(), enrichTestRecords(3), nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 3, batch.Enriched)
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
}

func TestEnricher_EnrichAll_RetryThenSuccess(t *testing.T) {
	classifier := &enrichMockClassifier{
		classifyFn: func(_ driven.ClassifyRequest, call int) (domain.EnrichmentResult, error) {
			if call == 1 {
				return domain.EnrichmentResult{}, errors.New("temporarily unavailable")
			}
			return domain.EnrichmentResult{Label: "Environment & Conservation", Confidence: 0.7}, nil
		},
	}
	enricher := NewEnricher(classifier, EnricherConfig{
		Workers:       1,
		RatePerMinute: 600000,
		Retry:         domain.RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond},
	}, zap.NewNop())

	batch, err := enricher.EnrichAll(context.Background(), enrichTestRecords(1), nil)

	require.NoError(t, err)
	assert.Equal(t, 1, batch.Enriched)
	assert.Equal(t, 0, batch.Sentinel)
	assert.Equal(t, "Environment & Conservation", batch.Results[0].Label)
	assert.Equal(t, 2, classifier.callCount())
}

func TestEnricher_EnrichAll_RetryBudgetExhausted(t *testing.T) {
	classifier := &enrichMockClassifier{
		classifyFn: func(_ driven.ClassifyRequest, _ int) (domain.EnrichmentResult, error) {
			return domain.EnrichmentResult{}, errors.New("temporarily unavailable")
		},
	}
	enricher := NewEnricher(classifier, EnricherConfig{
		Workers:       1,
		RatePerMinute: 600000,
		Retry:         domain.RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond},
	}, zap.NewNop())

	batch, err := enricher.EnrichAll(context.Background(), enrichTestRecords(1), nil)

	require.NoError(t, err)
	assert.Equal(t, 0, batch.Enriched)
	assert.Equal(t, 1, batch.Sentinel)
	assert.True(t, batch.Results[0].IsSentinel())
	assert.Equal(t, 3, classifier.callCount())
}

func TestEnricher_EnrichAll_ContextCancelled(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	classifier := &enrichMockClassifier{
		classifyFn: func(_ driven.ClassifyRequest, call int) (domain.EnrichmentResult, error) {
			if call == 1 {
				close(started)
				<-release
			}
			return domain.EnrichmentResult{Label: "Arts & Culture", Confidence: 1}, nil
		},
	}
	enricher := NewEnricher(classifier, EnricherConfig{Workers: 1, RatePerMinute: 600000}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
		close(release)
	}()

	_, err := enricher.EnrichAll(ctx, enrichTestRecords(5), nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnricher_EnrichAll_ProgressCallback(t *testing.T) {
	classifier := &enrichMockClassifier{
		classifyFn: func(req driven.ClassifyRequest, _ int) (domain.EnrichmentResult, error) {
			if req.Title == "Programme 2" {
				return domain.EnrichmentResult{}, errors.New("transient upstream failure")
			}
			return domain.EnrichmentResult{Label: "Arts & Culture", Confidence: 1}, nil
		},
	}
	enricher := NewEnricher(classifier, EnricherConfig{Workers: 1, RatePerMinute: 600000}, zap.NewNop())

	var mu stdsync.Mutex
	var lastDone int
	calls := 0
	batch, err := enricher.EnrichAll(context.Background(), enrichTestRecords(4), func(enriched, sentinel int) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		done := enriched + sentinel
		assert.GreaterOrEqual(t, done, lastDone)
		lastDone = done
	})

	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, 4, lastDone)
	assert.Equal(t, 3, batch.Enriched)
	assert.Equal(t, 1, batch.Sentinel)
}

func TestEnricher_EnrichAll_ClassifyRequestFields(t *testing.T) {
	classifier := &enrichMockClassifier{}
	enricher := NewEnricher(classifier, EnricherConfig{Workers: 1, RatePerMinute: 600000}, zap.NewNop())

	record := domain.Record{
		Title:          "Community Housing Fund",
		AgreementTitle: "CHF-2024-001",
		Description:    "Affordable housing construction",
		Recipient:      "Habitat Society",
		Value:          "125000.00",
		SourceRow:      7,
	}
	_, err := enricher.EnrichAll(context.Background(), []domain.Record{record}, nil)

	require.NoError(t, err)
	require.Len(t, classifier.requests, 1)
	req := classifier.requests[0]
	assert.Equal(t, "Community Housing Fund", req.Title)
	assert.Equal(t, "Habitat Society", req.Recipient)
	assert.Equal(t, "CHF-2024-001", req.Agreement)
	assert.Equal(t, "Affordable housing construction", req.Description)
}

func TestEnricher_Ping(t *testing.T) {
	classifier := &enrichMockClassifier{pingErr: domain.ErrClassifierAuth}
	enricher := NewEnricher(classifier, EnricherConfig{}, zap.NewNop())

	err := enricher.Ping(context.Background())
	assert.ErrorIs(t, err, domain.ErrClassifierAuth)

	classifier.pingErr = nil
	assert.NoError(t, enricher.Ping(context.Background()))
}

func TestEnricher_ModelName(t *testing.T) {
	enricher := NewEnricher(&enrichMockClassifier{}, EnricherConfig{}, zap.NewNop())
	assert.Equal(t, "mock-classifier", enricher.ModelName())
}
