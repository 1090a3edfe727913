// Package grantcsv decodes the tabular grants export into records.
package grantcsv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.RecordParser = (*Normaliser)(nil)

// renameTable maps source column headers to canonical field names.
// Headers are matched case-insensitively after trimming. The bulk
// export uses the *_en names; the daily pull uses the short names.
var renameTable = map[string]string{
	"prog_name_en":         "title",
	"agreement_title_en":   "agreement_title",
	"description_en":       "description",
	"recipient_legal_name": "recipient",
	"agreement_value":      "value",

	"title":           "title",
	"agreement":       "agreement_title",
	"agreement_title": "agreement_title",
	"description":     "description",
	"recipient":       "recipient",
	"value":           "value",
	"category":        "category",
}

// requiredColumns must all be present after renaming.
var requiredColumns = []string{"title", "description", "recipient"}

// Normaliser decodes the grants CSV into records.
type Normaliser struct{}

// New creates a new grants CSV normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Parse reads the whole stream. The first row is the header; unknown
// columns are ignored, duplicate headers keep their first occurrence.
// A missing required column fails with domain.ErrMissingColumn naming
// the column. Rows with a field count different from the header are
// malformed and fail the parse.
func (n *Normaliser) Parse(ctx context.Context, r io.Reader) ([]domain.Record, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty source: %w", domain.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	indexOf := make(map[string]int, len(header))
	for i, raw := range header {
		name := strings.TrimSpace(raw)
		if i == 0 {
			name = strings.TrimPrefix(name, "\uFEFF")
		}
		canonical, ok := renameTable[strings.ToLower(name)]
		if !ok {
			continue
		}
		if _, seen := indexOf[canonical]; !seen {
			indexOf[canonical] = i
		}
	}

	for _, col := range requiredColumns {
		if _, ok := indexOf[col]; !ok {
			return nil, fmt.Errorf("column %q: %w", col, domain.ErrMissingColumn)
		}
	}

	cell := func(row []string, col string) string {
		i, ok := indexOf[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []domain.Record
	rowNum := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", rowNum+1, err)
		}
		rowNum++

		records = append(records, domain.Record{
			Title:          cell(row, "title"),
			AgreementTitle: cell(row, "agreement_title"),
			Description:    cell(row, "description"),
			Recipient:      cell(row, "recipient"),
			Value:          cell(row, "value"),
			SourceCategory: cell(row, "category"),
			SourceRow:      rowNum,
		})
	}

	return records, nil
}
