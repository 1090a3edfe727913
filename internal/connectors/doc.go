// Package connectors provides implementations of the GrantSource
// interface. Each connector knows how to fetch the grants table from a
// specific source type (CKAN portal, local CSV file).
package connectors
