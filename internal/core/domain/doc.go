// Package domain defines the core business entities for the grants
// pipeline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Record: One normalised grant row, immutable for a run
//   - ContentHash: Deterministic fingerprint of a record's fields
//   - HashSet: In-memory ledger index with set-difference
//   - EnrichmentResult: Label and confidence attached by a classifier
//   - Snapshot: The full next published dataset
//   - RunReport: Persisted outcome of one pipeline run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
