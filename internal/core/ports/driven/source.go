package driven

import (
	"context"
	"io"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
)

// GrantSource produces the raw grants table for a run.
//
// Implementations may include:
//   - CKAN portal download (resource_show, then CSV fetch)
//   - Local CSV file
type GrantSource interface {
	// Open returns the raw CSV stream. The caller must close it.
	Open(ctx context.Context) (io.ReadCloser, error)

	// Describe identifies the source for logging, e.g. a file path or
	// a CKAN resource ID.
	Describe() string
}

// WatchableSource is a GrantSource that can report writes to the
// underlying data as they happen. Only file-backed sources support
// this.
type WatchableSource interface {
	GrantSource

	// Watch emits an event for every write to the source until ctx
	// ends. The channel is closed on cancellation. Events may be
	// coalesced; callers debounce before acting.
	Watch(ctx context.Context) (<-chan struct{}, error)
}

// RecordParser decodes a raw source stream into records with canonical
// field names.
type RecordParser interface {
	// Parse reads the whole stream. A missing required column fails
	// with an error wrapping domain.ErrMissingColumn.
	Parse(ctx context.Context, r io.Reader) ([]domain.Record, error)
}
