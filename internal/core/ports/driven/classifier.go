package driven

import (
	"context"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
)

// ClassifyRequest carries the text fields of one record. Each
// implementation composes the fields it needs; none of them may see
// the record's hash or prior enrichment.
type ClassifyRequest struct {
	// Title is the programme name.
	Title string

	// Recipient is the recipient's legal name.
	Recipient string

	// Agreement is the funding agreement title.
	Agreement string

	// Description is the agreement description.
	Description string
}

// Classifier labels grant records through an external service.
//
// Implementations may include:
//   - Gemini (generative categorization over a fixed label set)
//   - Model server (trained-model inference with a sidecar label file)
//
// Error contract: errors wrapping domain.ErrClassifierAuth or
// domain.ErrClassifierConfig are systemic and fail the whole run; any
// other error is a per-record failure the caller absorbs into the
// sentinel result.
type Classifier interface {
	// Classify labels one record. Implementations that stream their
	// response must fully drain it before returning; a partial stream
	// is an error, never a partial result.
	Classify(ctx context.Context, req ClassifyRequest) (domain.EnrichmentResult, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight
	// test request. Run before a batch so a dead or misconfigured
	// service fails the run instead of degrading every record.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
