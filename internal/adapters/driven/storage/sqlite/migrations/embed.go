// Package migrations carries the schema history for the grants
// database. Files are applied in version order on every open; see
// the store's migrate routine.
package migrations

import "embed"

// FS holds the numbered .sql files compiled into the binary.
//
//go:embed *.sql
var FS embed.FS
