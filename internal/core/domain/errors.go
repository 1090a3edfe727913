package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown source or classifier type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrRunInProgress indicates a pipeline run is already executing.
	ErrRunInProgress = errors.New("run in progress")

	// ErrMissingColumn indicates the source file lacks a required
	// canonical column after the rename table is applied.
	ErrMissingColumn = errors.New("missing required column")

	// ErrNotHashable indicates a record with no identity fields set,
	// which cannot be fingerprinted.
	ErrNotHashable = errors.New("record has no hashable fields")

	// Classifier Errors. Auth and config failures are systemic: the
	// enrichment pool stops issuing calls and the run fails before
	// publish. Everything else is a per-record failure absorbed into
	// the sentinel result.

	// ErrClassifierAuth indicates the classifier rejected our credentials.
	ErrClassifierAuth = errors.New("classifier authentication failed")

	// ErrClassifierConfig indicates the classifier is misconfigured
	// (missing key, unreachable endpoint, bad label file).
	ErrClassifierConfig = errors.New("classifier misconfigured")

	// ErrPartialStream indicates a streaming classifier response ended
	// before completion; the partial text is discarded.
	ErrPartialStream = errors.New("classifier stream ended early")

	// ErrRateLimited indicates the classifier API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// IsSystemic reports whether a classifier error should fail the whole
// run rather than degrade a single record to the sentinel.
func IsSystemic(err error) bool {
	return errors.Is(err, ErrClassifierAuth) || errors.Is(err, ErrClassifierConfig)
}
