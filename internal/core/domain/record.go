package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// CanonicalColumns is the fixed field order used when fingerprinting a
// record. Reordering or changing this list changes every hash, which
// makes the next run treat the entire source as new.
var CanonicalColumns = []string{
	"title",
	"agreement_title",
	"description",
	"recipient",
	"value",
}

// Record is one grant row after normalisation. Field values hold the
// exact source text; Value in particular is never parsed to a number so
// its string representation stays stable across runs.
// A Record is immutable once loaded for a run.
type Record struct {
	// Title is the programme name.
	Title string

	// AgreementTitle is the title of the funding agreement.
	AgreementTitle string

	// Description is the agreement description text.
	Description string

	// Recipient is the legal name of the recipient.
	Recipient string

	// Value is the monetary value as source text.
	Value string

	// SourceCategory is a pre-existing category column, if the source
	// carries one. Not part of the record's identity.
	SourceCategory string

	// SourceRow is the 1-based data row number in the source file.
	// Diagnostics only; not part of the record's identity.
	SourceRow int
}

// canonicalValues returns the identity field values in CanonicalColumns
// order.
func (r Record) canonicalValues() []string {
	return []string{r.Title, r.AgreementTitle, r.Description, r.Recipient, r.Value}
}

// ContentHash fingerprints the record: SHA-256 over the canonical field
// values joined by "|", rendered as lowercase hex. Deterministic for
// identical field values; any field change yields a different hash.
// Returns ErrNotHashable for a record whose identity fields are all
// empty, which can only happen when the normaliser was bypassed.
func (r Record) ContentHash() (ContentHash, error) {
	values := r.canonicalValues()

	empty := true
	for _, v := range values {
		if v != "" {
			empty = false
			break
		}
	}
	if empty {
		return "", ErrNotHashable
	}

	sum := sha256.Sum256([]byte(strings.Join(values, "|")))
	return ContentHash(hex.EncodeToString(sum[:])), nil
}

// ContentHash is the lowercase hex SHA-256 fingerprint of a record's
// canonical field values, used for change detection against the ledger.
type ContentHash string

// String returns the hex digest.
func (h ContentHash) String() string {
	return string(h)
}

// IsValid returns true if the hash is a well-formed SHA-256 hex digest.
func (h ContentHash) IsValid() bool {
	if len(h) != 64 {
		return false
	}
	for _, c := range h {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return true
}
