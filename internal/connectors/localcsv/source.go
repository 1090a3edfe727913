// Package localcsv reads the grants table from a file on disk.
package localcsv

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/Sher213/GrantsInvestments/internal/core/ports/driven"
)

// Ensure Source implements the interfaces.
var _ driven.GrantSource = (*Source)(nil)
var _ driven.WatchableSource = (*Source)(nil)

// Source reads the dataset from a local CSV file.
type Source struct {
	path string
}

// New creates a local file source.
func New(path string) *Source {
	return &Source{path: path}
}

// Open returns the file stream.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("localcsv: opening %s: %w", s.path, err)
	}
	return file, nil
}

// Describe identifies the source for logging.
func (s *Source) Describe() string {
	return s.path
}

// Watch emits an event each time the file is written, until ctx ends.
// The parent directory is watched rather than the file itself: editors
// that replace the file on save would otherwise detach the watch, and
// their Create events count as writes here.
func (s *Source) Watch(ctx context.Context) (<-chan struct{}, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, fmt.Errorf("localcsv: watch target: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("localcsv: creating watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("localcsv: watching directory: %w", err)
	}

	events := make(chan struct{}, 1)
	target := filepath.Clean(s.path)

	go func() {
		defer close(events)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				// Coalesce: one pending event is enough, the caller
				// debounces before re-reading anyway.
				select {
				case events <- struct{}{}:
				default:
				}

			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return events, nil
}
