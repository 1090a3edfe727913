// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - GrantSource: Produces the raw grants table for a run
//   - RecordParser: Decodes the raw table into records
//   - Classifier: Labels new or changed records
//   - DatasetStore: Published dataset and ledger persistence (atomic publish)
//   - LedgerStore: Read access to the persisted hash ledger
//   - RunStore: Run report persistence
//   - SchedulerStore: Scheduled task persistence
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
