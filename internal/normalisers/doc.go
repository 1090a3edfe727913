// Package normalisers provides implementations of the RecordParser
// interface. A normaliser knows how to decode one raw source format
// into records with canonical field names.
package normalisers
