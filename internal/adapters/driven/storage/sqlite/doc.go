// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - DatasetStore: published dataset persistence, including the hash ledger
//   - LedgerStore: read access to the hash ledger for diffing
//   - RunStore: run report persistence
//   - SchedulerStore: scheduled task state persistence
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory.
//
// # Data Location
//
// By default, the database is stored at ~/.grants/data/grants.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. Publish replaces the dataset and ledger in a single
// transaction, so readers always observe a complete prior or complete next state.
package sqlite
