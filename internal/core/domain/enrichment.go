package domain

import "time"

// Uncategorized is the sentinel label attached to a record when
// enrichment fails for that record.
const Uncategorized = "Uncategorized"

// Categories returns the fixed label set for the generative
// categorization path. The sentinel label is not part of the set.
func Categories() []string {
	return []string{
		"Housing & Shelter",
		"Education & Training",
		"Employment & Entrepreneurship",
		"Business & Innovation",
		"Health & Wellness",
		"Environment & Energy",
		"Community & Nonprofits",
		"Research & Academia",
		"Indigenous Programs",
		"Public Safety & Emergency Services",
		"Agriculture & Rural Development",
		"Arts, Culture & Heritage",
		"Civic & Democratic Engagement",
	}
}

// EnrichmentResult is the label a classifier attached to a record.
// Confidence is 0 on classifier paths that do not report one.
type EnrichmentResult struct {
	// Label is the category name.
	Label string

	// Confidence is the classifier's score in [0, 1], when available.
	Confidence float64
}

// SentinelResult returns the fallback result recorded when enrichment
// fails for a single record.
func SentinelResult() EnrichmentResult {
	return EnrichmentResult{Label: Uncategorized, Confidence: 0}
}

// IsSentinel reports whether the result is the enrichment-failure
// fallback.
func (r EnrichmentResult) IsSentinel() bool {
	return r.Label == Uncategorized && r.Confidence == 0
}

// EnrichedRecord is a record together with its fingerprint and the
// enrichment attached to it for publishing.
type EnrichedRecord struct {
	Record

	// Hash is the record's content fingerprint.
	Hash ContentHash

	// Enrichment is the label attached to the record.
	Enrichment EnrichmentResult

	// EnrichedAt is when the enrichment was produced. For unchanged
	// records merged back into a snapshot this is the original time.
	EnrichedAt time.Time
}

// PriorEnrichment is the enrichment already published for a hash. When
// an unchanged record is merged into the next snapshot it keeps this
// label, confidence, and timestamp instead of being re-classified.
type PriorEnrichment struct {
	// Result is the published label and confidence.
	Result EnrichmentResult

	// EnrichedAt is when the label was originally produced.
	EnrichedAt time.Time
}

// Snapshot is the full next published dataset for a run: every record
// of the current source, enriched. The ledger written at publish is
// derived from the snapshot's hashes, so dataset and ledger cannot
// drift apart.
type Snapshot struct {
	// RunID identifies the run that produced the snapshot.
	RunID string

	// PublishedAt is when the snapshot was assembled.
	PublishedAt time.Time

	// Records is the complete dataset, one entry per distinct hash.
	Records []EnrichedRecord
}

// Hashes returns the content hashes of every record in the snapshot,
// in record order.
func (s Snapshot) Hashes() []ContentHash {
	hashes := make([]ContentHash, len(s.Records))
	for i, rec := range s.Records {
		hashes[i] = rec.Hash
	}
	return hashes
}
