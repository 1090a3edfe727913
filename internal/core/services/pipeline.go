package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driven"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driving"
)

// Ensure Pipeline implements the interface.
var _ driving.Pipeline = (*Pipeline)(nil)

// Pipeline coordinates one run of the dataset refresh:
// load → diff → enrich → publish. Any stage error is caught here,
// logged with full context, and ends the run in the failed stage
// without touching the published dataset.
type Pipeline struct {
	source   driven.GrantSource
	parser   driven.RecordParser
	ledger   driven.LedgerStore
	dataset  driven.DatasetStore
	runs     driven.RunStore
	enricher *Enricher
	log      *zap.Logger

	// Status tracking
	mu      sync.RWMutex
	running bool
	status  driving.RunStatus
}

// NewPipeline creates a new pipeline over the given ports.
func NewPipeline(
	source driven.GrantSource,
	parser driven.RecordParser,
	ledger driven.LedgerStore,
	dataset driven.DatasetStore,
	runs driven.RunStore,
	enricher *Enricher,
	log *zap.Logger,
) *Pipeline {
	return &Pipeline{
		source:   source,
		parser:   parser,
		ledger:   ledger,
		dataset:  dataset,
		runs:     runs,
		enricher: enricher,
		log:      log,
	}
}

// Run executes one pipeline run. The report is persisted and returned
// whether the run succeeds or fails; the error is non-nil only for
// failed runs. A second Run while one is active fails with
// domain.ErrRunInProgress.
func (p *Pipeline) Run(ctx context.Context, opts driving.RunOptions) (domain.RunReport, error) {
	runID := uuid.New().String()
	started := time.Now()

	if !p.tryStart(runID, started) {
		return domain.RunReport{}, domain.ErrRunInProgress
	}

	report := domain.RunReport{
		ID:        runID,
		StartedAt: started,
		DryRun:    opts.DryRun,
	}

	p.log.Info("run starting",
		zap.String("run_id", runID),
		zap.String("source", p.source.Describe()),
		zap.Bool("dry_run", opts.DryRun))

	err := p.execute(ctx, opts, &report)
	report.EndedAt = time.Now()

	if err != nil {
		report.Stage = domain.StageFailed
		report.Error = err.Error()
		p.log.Error("run failed",
			zap.String("run_id", runID),
			zap.Duration("duration", report.Duration()),
			zap.Error(err))
	} else {
		report.Stage = domain.StageDone
		p.log.Info("run complete",
			zap.String("run_id", runID),
			zap.Int("total_rows", report.TotalRows),
			zap.Int("new_rows", report.NewRows),
			zap.Int("enriched_rows", report.EnrichedRows),
			zap.Int("sentinel_rows", report.SentinelRows),
			zap.Int("published_rows", report.PublishedRows),
			zap.Duration("duration", report.Duration()))
	}

	p.finish(report.Stage)

	// The report must survive run cancellation, so saving ignores the
	// caller's cancel signal.
	if saveErr := p.runs.SaveRun(context.WithoutCancel(ctx), &report); saveErr != nil {
		p.log.Error("saving run report",
			zap.String("run_id", runID),
			zap.Error(saveErr))
		if err == nil {
			err = fmt.Errorf("saving run report: %w", saveErr)
		}
	}

	return report, err
}

// Status returns live progress of the active run, or the terminal
// state of the last run in this process.
func (p *Pipeline) Status() driving.RunStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// loadResult indexes the source records by hash in first-occurrence
// order. total counts parsed rows before duplicate collapse.
type loadResult struct {
	hashes     []domain.ContentHash
	byHash     map[domain.ContentHash]domain.Record
	total      int
	duplicates int
}

// execute walks the run's stages, filling the report as it goes.
func (p *Pipeline) execute(ctx context.Context, opts driving.RunOptions, report *domain.RunReport) error {
	// LOAD
	loaded, err := p.load(ctx)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	report.TotalRows = loaded.total
	report.DuplicateRows = loaded.duplicates
	p.updateStatus(func(s *driving.RunStatus) {
		s.Stage = domain.StageDiff
		s.TotalRows = report.TotalRows
	})
	p.log.Info("source loaded",
		zap.String("run_id", report.ID),
		zap.Int("total_rows", report.TotalRows),
		zap.Int("duplicate_rows", report.DuplicateRows))

	// DIFF
	ledger, err := p.ledger.Hashes(ctx)
	if err != nil {
		return fmt.Errorf("diff: loading ledger: %w", err)
	}
	newHashes := ledger.Diff(loaded.hashes)
	report.NewRows = len(newHashes)
	p.updateStatus(func(s *driving.RunStatus) {
		s.Stage = domain.StageEnrich
		s.NewRows = report.NewRows
	})
	p.log.Info("diff complete",
		zap.String("run_id", report.ID),
		zap.Int("ledger_size", ledger.Len()),
		zap.Int("new_rows", report.NewRows))

	if opts.DryRun {
		return nil
	}

	// ENRICH. Skipped entirely when nothing changed; the classifier is
	// pinged once before a non-empty batch so a dead service fails the
	// run instead of degrading every record one call at a time.
	fresh := make(map[domain.ContentHash]domain.EnrichmentResult, len(newHashes))
	if len(newHashes) > 0 {
		if err := p.enricher.Ping(ctx); err != nil {
			return fmt.Errorf("enrich: pinging classifier: %w", err)
		}

		newRecords := make([]domain.Record, len(newHashes))
		for i, h := range newHashes {
			newRecords[i] = loaded.byHash[h]
		}

		batch, err := p.enricher.EnrichAll(ctx, newRecords, func(enriched, sentinel int) {
			p.updateStatus(func(s *driving.RunStatus) {
				s.EnrichedRows = enriched
				s.SentinelRows = sentinel
			})
		})
		if err != nil {
			return fmt.Errorf("enrich: %w", err)
		}

		for i, h := range newHashes {
			fresh[h] = batch.Results[i]
		}
		report.EnrichedRows = batch.Enriched
		report.SentinelRows = batch.Sentinel
		p.log.Info("enrichment complete",
			zap.String("run_id", report.ID),
			zap.String("model", p.enricher.ModelName()),
			zap.Int("enriched_rows", batch.Enriched),
			zap.Int("sentinel_rows", batch.Sentinel))
	}

	// PUBLISH. Always executed, even with zero new records, so the
	// published dataset tracks the full current source snapshot.
	p.updateStatus(func(s *driving.RunStatus) {
		s.Stage = domain.StagePublish
	})

	snapshot, missingPrior, err := p.assemble(ctx, report.ID, loaded, fresh)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	if missingPrior > 0 {
		p.log.Warn("ledger entries had no published enrichment, using sentinel",
			zap.String("run_id", report.ID),
			zap.Int("rows", missingPrior))
	}

	if err := p.dataset.Publish(ctx, snapshot); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	report.PublishedRows = len(snapshot.Records)

	return nil
}

// load opens the source, parses it, and fingerprints every record.
// Source rows whose hash already appeared earlier in the file are
// collapsed; the first occurrence wins.
func (p *Pipeline) load(ctx context.Context) (*loadResult, error) {
	raw, err := p.source.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	defer raw.Close()

	records, err := p.parser.Parse(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("parsing source: %w", err)
	}

	loaded := &loadResult{
		byHash: make(map[domain.ContentHash]domain.Record, len(records)),
		total:  len(records),
	}
	for _, rec := range records {
		hash, err := rec.ContentHash()
		if err != nil {
			return nil, fmt.Errorf("hashing row %d: %w", rec.SourceRow, err)
		}
		if _, seen := loaded.byHash[hash]; seen {
			loaded.duplicates++
			continue
		}
		loaded.byHash[hash] = rec
		loaded.hashes = append(loaded.hashes, hash)
	}

	if loaded.duplicates > 0 {
		p.log.Warn("collapsed duplicate source rows",
			zap.Int("duplicate_rows", loaded.duplicates))
	}
	return loaded, nil
}

// assemble builds the full next snapshot: fresh enrichment for new
// records, the previously published label for unchanged ones. Returns
// how many unchanged records had no published enrichment to merge
// back; those get the sentinel.
func (p *Pipeline) assemble(
	ctx context.Context,
	runID string,
	loaded *loadResult,
	fresh map[domain.ContentHash]domain.EnrichmentResult,
) (domain.Snapshot, int, error) {
	prior, err := p.dataset.Enrichments(ctx)
	if err != nil {
		return domain.Snapshot{}, 0, fmt.Errorf("loading prior enrichments: %w", err)
	}

	now := time.Now()
	snapshot := domain.Snapshot{
		RunID:       runID,
		PublishedAt: now,
		Records:     make([]domain.EnrichedRecord, 0, len(loaded.hashes)),
	}

	missingPrior := 0
	for _, h := range loaded.hashes {
		enriched := domain.EnrichedRecord{
			Record: loaded.byHash[h],
			Hash:   h,
		}
		if result, ok := fresh[h]; ok {
			enriched.Enrichment = result
			enriched.EnrichedAt = now
		} else if pe, ok := prior[h]; ok {
			enriched.Enrichment = pe.Result
			enriched.EnrichedAt = pe.EnrichedAt
		} else {
			enriched.Enrichment = domain.SentinelResult()
			enriched.EnrichedAt = now
			missingPrior++
		}
		snapshot.Records = append(snapshot.Records, enriched)
	}

	return snapshot, missingPrior, nil
}

// tryStart claims the single run slot.
func (p *Pipeline) tryStart(runID string, started time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return false
	}
	p.running = true
	p.status = driving.RunStatus{
		RunID:     runID,
		Running:   true,
		Stage:     domain.StageLoad,
		StartedAt: started,
	}
	return true
}

// finish releases the run slot, leaving the terminal status readable.
func (p *Pipeline) finish(stage domain.RunStage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.running = false
	p.status.Running = false
	p.status.Stage = stage
}

// updateStatus mutates the live status under the write lock.
func (p *Pipeline) updateStatus(mutate func(*driving.RunStatus)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	mutate(&p.status)
}
