package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driven"
)

// EnricherConfig bounds the enrichment pool.
type EnricherConfig struct {
	// Workers is the number of concurrent classifier calls.
	Workers int

	// RatePerMinute caps aggregate calls across all workers.
	RatePerMinute int

	// Burst is the token bucket burst size.
	Burst int

	// CallTimeout bounds each classifier call, retries included.
	CallTimeout time.Duration

	// Retry bounds per-record retries. Systemic failures are never
	// retried.
	Retry domain.RetryPolicy
}

// DefaultEnricherConfig returns the default pool bounds.
func DefaultEnricherConfig() EnricherConfig {
	return EnricherConfig{
		Workers:       4,
		RatePerMinute: 2000,
		Burst:         1,
		CallTimeout:   30 * time.Second,
		Retry:         domain.RetryPolicy{MaxAttempts: 1},
	}
}

// withDefaults fills unset fields so a zero config is usable.
func (c EnricherConfig) withDefaults() EnricherConfig {
	def := DefaultEnricherConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.RatePerMinute <= 0 {
		c.RatePerMinute = def.RatePerMinute
	}
	if c.Burst <= 0 {
		c.Burst = def.Burst
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = def.CallTimeout
	}
	if c.Retry.MaxAttempts < 1 {
		c.Retry.MaxAttempts = 1
	}
	return c
}

// EnrichmentBatch is the outcome of enriching a set of records.
type EnrichmentBatch struct {
	// Results holds one result per input record, by input index.
	Results []domain.EnrichmentResult

	// Enriched counts classifier successes.
	Enriched int

	// Sentinel counts records that fell back to the sentinel.
	Sentinel int
}

// Enricher drives bounded-concurrency, rate-limited classifier calls.
// A fixed pool of workers pulls pending records from a queue; every
// call first waits on a shared token bucket so the aggregate rate
// never exceeds the configured ceiling.
type Enricher struct {
	classifier driven.Classifier
	config     EnricherConfig
	limiter    *rate.Limiter
	log        *zap.Logger
}

// NewEnricher creates an enricher over the given classifier.
func NewEnricher(classifier driven.Classifier, config EnricherConfig, log *zap.Logger) *Enricher {
	config = config.withDefaults()
	return &Enricher{
		classifier: classifier,
		config:     config,
		limiter:    rate.NewLimiter(rate.Limit(float64(config.RatePerMinute)/60.0), config.Burst),
		log:        log,
	}
}

// Ping validates the classifier is reachable.
func (e *Enricher) Ping(ctx context.Context) error {
	return e.classifier.Ping(ctx)
}

// ModelName returns the classifier's model name.
func (e *Enricher) ModelName() string {
	return e.classifier.ModelName()
}

// EnrichAll classifies every record. Results are written by input
// index, never by completion order. Per-record failures become the
// sentinel result and the batch continues; a systemic failure cancels
// the pool, stops issuing new calls, and is returned as the error.
// onProgress, when non-nil, is invoked after each settled record with
// the running success and sentinel counts.
func (e *Enricher) EnrichAll(ctx context.Context, records []domain.Record, onProgress func(enriched, sentinel int)) (EnrichmentBatch, error) {
	batch := EnrichmentBatch{Results: make([]domain.EnrichmentResult, len(records))}
	if len(records) == 0 {
		return batch, nil
	}

	workers := e.config.Workers
	if workers > len(records) {
		workers = len(records)
	}

	var mu sync.Mutex
	jobs := make(chan int)
	group, gctx := errgroup.WithContext(ctx)

	for w := 0; w < workers; w++ {
		group.Go(func() error {
			for i := range jobs {
				result, classified, err := e.enrichOne(gctx, records[i])
				if err != nil {
					return err
				}
				batch.Results[i] = result

				mu.Lock()
				if classified {
					batch.Enriched++
				} else {
					batch.Sentinel++
				}
				enriched, sentinel := batch.Enriched, batch.Sentinel
				mu.Unlock()

				if onProgress != nil {
					onProgress(enriched, sentinel)
				}
			}
			return nil
		})
	}

	group.Go(func() error {
		defer close(jobs)
		for i := range records {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return EnrichmentBatch{}, err
	}
	return batch, nil
}

// enrichOne classifies a single record. Per-record failures are
// absorbed: after the retry budget is spent the record gets the
// sentinel result, the failure is logged, and no error is returned.
// Only systemic failures and context cancellation propagate.
func (e *Enricher) enrichOne(ctx context.Context, rec domain.Record) (domain.EnrichmentResult, bool, error) {
	req := driven.ClassifyRequest{
		Title:       rec.Title,
		Recipient:   rec.Recipient,
		Agreement:   rec.AgreementTitle,
		Description: rec.Description,
	}

	var lastErr error
	for attempt := 1; attempt <= e.config.Retry.MaxAttempts; attempt++ {
		// Retries consult the limiter too, so retried calls still count
		// against the rate ceiling.
		if err := e.limiter.Wait(ctx); err != nil {
			return domain.EnrichmentResult{}, false, err
		}

		callCtx, cancel := context.WithTimeout(ctx, e.config.CallTimeout)
		result, err := e.classifier.Classify(callCtx, req)
		cancel()

		if err == nil {
			return result, true, nil
		}
		if domain.IsSystemic(err) {
			return domain.EnrichmentResult{}, false, err
		}
		if ctx.Err() != nil {
			return domain.EnrichmentResult{}, false, ctx.Err()
		}
		lastErr = err

		if attempt < e.config.Retry.MaxAttempts && e.config.Retry.Backoff > 0 {
			timer := time.NewTimer(e.config.Retry.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return domain.EnrichmentResult{}, false, ctx.Err()
			case <-timer.C:
			}
		}
	}

	e.log.Error("classifying record failed, using sentinel",
		zap.Int("source_row", rec.SourceRow),
		zap.String("recipient", rec.Recipient),
		zap.Int("attempts", e.config.Retry.MaxAttempts),
		zap.Error(lastErr))

	return domain.SentinelResult(), false, nil
}
