package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Sher213/GrantsInvestments/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/Sher213/GrantsInvestments/internal/core/domain"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all pipeline store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.grants/data/grants.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".grants", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return NewStoreAt(filepath.Join(dataDir, "grants.db"))
}

// NewStoreAt opens a store at an explicit database file path.
func NewStoreAt(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DatasetStore returns a DatasetStore interface backed by this store.
func (s *Store) DatasetStore() driven.DatasetStore {
	return &datasetStore{store: s}
}

// LedgerStore returns a LedgerStore interface backed by this store.
func (s *Store) LedgerStore() driven.LedgerStore {
	return &ledgerStore{store: s}
}

// RunStore returns a RunStore interface backed by this store.
func (s *Store) RunStore() driven.RunStore {
	return &runStore{store: s}
}

// SchedulerStore returns a SchedulerStore interface backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Dataset Store ====================

// datasetStore implements driven.DatasetStore.
type datasetStore struct {
	store *Store
}

var _ driven.DatasetStore = (*datasetStore)(nil)

// Publish atomically replaces the dataset and the hash ledger with the
// snapshot. Both tables are rewritten inside one transaction; on any
// error the transaction rolls back and the prior state stays published.
func (s *datasetStore) Publish(ctx context.Context, snapshot domain.Snapshot) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM grants"); err != nil {
		return fmt.Errorf("clearing dataset: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM grant_hashes"); err != nil {
		return fmt.Errorf("clearing ledger: %w", err)
	}

	recordStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO grants
			(row_hash, title, agreement_title, description, recipient, value,
			 source_category, source_row, predicted_label, predicted_score,
			 enriched_at, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing record insert: %w", err)
	}
	defer recordStmt.Close()

	hashStmt, err := tx.PrepareContext(ctx, "INSERT INTO grant_hashes (hash) VALUES (?)")
	if err != nil {
		return fmt.Errorf("preparing hash insert: %w", err)
	}
	defer hashStmt.Close()

	for _, rec := range snapshot.Records {
		if _, err := recordStmt.ExecContext(ctx,
			string(rec.Hash), rec.Title, rec.AgreementTitle, rec.Description,
			rec.Recipient, rec.Value, rec.SourceCategory, rec.SourceRow,
			rec.Enrichment.Label, rec.Enrichment.Confidence,
			formatNullableTime(rec.EnrichedAt), snapshot.RunID); err != nil {
			return fmt.Errorf("inserting record row %d: %w", rec.SourceRow, err)
		}
		if _, err := hashStmt.ExecContext(ctx, string(rec.Hash)); err != nil {
			return fmt.Errorf("inserting ledger hash: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing publish: %w", err)
	}
	return nil
}

// Enrichments returns the published enrichment for every hash.
func (s *datasetStore) Enrichments(ctx context.Context) (map[domain.ContentHash]domain.PriorEnrichment, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT row_hash, predicted_label, predicted_score, enriched_at
		FROM grants
	`)
	if err != nil {
		return nil, fmt.Errorf("querying enrichments: %w", err)
	}
	defer rows.Close()

	enrichments := make(map[domain.ContentHash]domain.PriorEnrichment)
	for rows.Next() {
		var hash, label string
		var score float64
		var enrichedAt sql.NullString
		if err := rows.Scan(&hash, &label, &score, &enrichedAt); err != nil {
			return nil, fmt.Errorf("scanning enrichment: %w", err)
		}
		enrichments[domain.ContentHash(hash)] = domain.PriorEnrichment{
			Result:     domain.EnrichmentResult{Label: label, Confidence: score},
			EnrichedAt: parseNullableTime(enrichedAt),
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating enrichments: %w", err)
	}

	return enrichments, nil
}

// Records returns the published dataset in source row order.
func (s *datasetStore) Records(ctx context.Context) ([]domain.EnrichedRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT row_hash, title, agreement_title, description, recipient, value,
		       source_category, source_row, predicted_label, predicted_score,
		       enriched_at
		FROM grants
		ORDER BY source_row
	`)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.EnrichedRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		var rec domain.EnrichedRecord
		var hash string
		var enrichedAt sql.NullString
		if err := rows.Scan(&hash, &rec.Title, &rec.AgreementTitle, &rec.Description,
			&rec.Recipient, &rec.Value, &rec.SourceCategory, &rec.SourceRow,
			&rec.Enrichment.Label, &rec.Enrichment.Confidence, &enrichedAt); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec.Hash = domain.ContentHash(hash)
		rec.EnrichedAt = parseNullableTime(enrichedAt)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return records, nil
}

// Count returns the number of published records.
func (s *datasetStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM grants").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return count, nil
}

// ==================== Ledger Store ====================

// ledgerStore implements driven.LedgerStore.
type ledgerStore struct {
	store *Store
}

var _ driven.LedgerStore = (*ledgerStore)(nil)

// Hashes loads the full ledger into a set.
func (s *ledgerStore) Hashes(ctx context.Context) (domain.HashSet, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT hash FROM grant_hashes")
	if err != nil {
		return nil, fmt.Errorf("querying ledger: %w", err)
	}
	defer rows.Close()

	set := make(domain.HashSet)
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, fmt.Errorf("scanning ledger hash: %w", err)
		}
		set.Add(domain.ContentHash(hash))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger: %w", err)
	}

	return set, nil
}

// ==================== Run Store ====================

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// SaveRun records a finished run.
func (s *runStore) SaveRun(ctx context.Context, report *domain.RunReport) error {
	if report == nil || report.ID == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO runs
			(id, started_at, ended_at, stage, total_rows, duplicate_rows,
			 new_rows, enriched_rows, sentinel_rows, published_rows, dry_run, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			stage = excluded.stage,
			total_rows = excluded.total_rows,
			duplicate_rows = excluded.duplicate_rows,
			new_rows = excluded.new_rows,
			enriched_rows = excluded.enriched_rows,
			sentinel_rows = excluded.sentinel_rows,
			published_rows = excluded.published_rows,
			dry_run = excluded.dry_run,
			error = excluded.error
	`, report.ID,
		report.StartedAt.UTC().Format(time.RFC3339),
		report.EndedAt.UTC().Format(time.RFC3339),
		report.Stage.String(),
		report.TotalRows, report.DuplicateRows, report.NewRows,
		report.EnrichedRows, report.SentinelRows, report.PublishedRows,
		boolToInt(report.DryRun), nullString(report.Error))

	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// LastRun returns the most recent run report, or nil if none exist.
func (s *runStore) LastRun(ctx context.Context) (*domain.RunReport, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, started_at, ended_at, stage, total_rows, duplicate_rows,
		       new_rows, enriched_rows, sentinel_rows, published_rows, dry_run, error
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`)

	report, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ListRuns returns recent run reports, most recent first. A limit of
// zero or less returns all.
func (s *runStore) ListRuns(ctx context.Context, limit int) ([]domain.RunReport, error) {
	// SQLite treats a negative LIMIT as unbounded.
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, started_at, ended_at, stage, total_rows, duplicate_rows,
		       new_rows, enriched_rows, sentinel_rows, published_rows, dry_run, error
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var reports []domain.RunReport //nolint:prealloc // size unknown from query
	for rows.Next() {
		report, err := scanRunRows(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return reports, nil
}

// PruneRuns removes old reports, keeping the most recent 'keep'.
func (s *runStore) PruneRuns(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}

	_, err := s.store.db.ExecContext(ctx, `
		DELETE FROM runs
		WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("pruning runs: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// runScanner abstracts *sql.Row and *sql.Rows for run report scanning.
type runScanner interface {
	Scan(dest ...any) error
}

// scanRunFrom scans one run report row.
func scanRunFrom(sc runScanner) (*domain.RunReport, error) {
	var report domain.RunReport
	var startedAt, endedAt, stage string
	var dryRun int
	var errMsg sql.NullString

	if err := sc.Scan(&report.ID, &startedAt, &endedAt, &stage,
		&report.TotalRows, &report.DuplicateRows, &report.NewRows,
		&report.EnrichedRows, &report.SentinelRows, &report.PublishedRows,
		&dryRun, &errMsg); err != nil {
		return nil, err
	}

	if t, err := time.Parse(time.RFC3339, startedAt); err == nil {
		report.StartedAt = t
	}
	if t, err := time.Parse(time.RFC3339, endedAt); err == nil {
		report.EndedAt = t
	}
	report.Stage = domain.RunStage(stage)
	report.DryRun = dryRun == 1
	if errMsg.Valid {
		report.Error = errMsg.String
	}

	return &report, nil
}

// scanRun scans a run report from *sql.Row.
func scanRun(row *sql.Row) (*domain.RunReport, error) {
	report, err := scanRunFrom(row)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	return report, nil
}

// scanRunRows scans a run report from *sql.Rows.
func scanRunRows(rows *sql.Rows) (*domain.RunReport, error) {
	report, err := scanRunFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	return report, nil
}
