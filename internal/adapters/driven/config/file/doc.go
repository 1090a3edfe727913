// Package file provides the TOML-backed ConfigStore adapter.
// Configuration lives in a single config.toml under the grants config
// directory and is persisted on every Set.
package file
