// Package ckan fetches the grants table from a CKAN data portal.
//
// The portal's action API resolves a resource ID to the current file
// URL, which is then downloaded. An optional cache path serves repeat
// runs without the network.
package ckan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sher213/GrantsInvestments/internal/core/ports/driven"
)

// Ensure Source implements the interface.
var _ driven.GrantSource = (*Source)(nil)

const (
	// DefaultBaseURL is the open.canada.ca action API.
	DefaultBaseURL = "https://open.canada.ca/data/api/3/action"

	// DefaultResourceID is the federal grants and contributions dataset.
	DefaultResourceID = "1d15a62f-5656-49ad-8c88-f40ce689d831"

	// DefaultTimeout is the per-request timeout. Portal downloads run
	// to hundreds of megabytes.
	DefaultTimeout = 10 * time.Minute

	// MaxRetries is the maximum number of attempts for transient errors.
	MaxRetries = 3

	// RetryDelay is the delay between attempts.
	RetryDelay = time.Second
)

// Config holds configuration for the CKAN source.
type Config struct {
	// BaseURL is the CKAN action API base (default: open.canada.ca).
	BaseURL string

	// ResourceID is the dataset resource to resolve (default: the
	// federal grants dataset).
	ResourceID string

	// CachePath, when set and present, is read instead of the network.
	// Downloads are copied there for the next run.
	CachePath string

	// Timeout is the per-request timeout (default: 10m).
	Timeout time.Duration
}

// Source downloads the grants CSV published on a CKAN portal.
type Source struct {
	client     *http.Client
	baseURL    string
	resourceID string
	cachePath  string
}

// resourceShowResponse is the CKAN action API envelope.
type resourceShowResponse struct {
	Success bool `json:"success"`
	Result  struct {
		URL    string `json:"url"`
		Format string `json:"format"`
	} `json:"result"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// New creates a CKAN source.
func New(cfg Config) *Source {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ResourceID == "" {
		cfg.ResourceID = DefaultResourceID
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Source{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		resourceID: cfg.ResourceID,
		cachePath:  cfg.CachePath,
	}
}

// Open returns the dataset stream. A present cache file wins over the
// network; otherwise the resource URL is resolved and downloaded.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.cachePath != "" {
		if file, err := os.Open(s.cachePath); err == nil {
			return file, nil
		}
	}

	csvURL, err := s.resolveCSVURL(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.getWithRetry(ctx, csvURL)
	if err != nil {
		return nil, fmt.Errorf("downloading dataset: %w", err)
	}

	if s.cachePath == "" {
		return resp.Body, nil
	}
	return s.cacheAndReopen(resp.Body)
}

// Describe identifies the source for logging.
func (s *Source) Describe() string {
	return "ckan:" + s.resourceID
}

// resolveCSVURL asks the portal where the resource's current file
// lives. Anything other than a CSV URL is rejected before download.
func (s *Source) resolveCSVURL(ctx context.Context) (string, error) {
	showURL := fmt.Sprintf("%s/resource_show?id=%s", s.baseURL, url.QueryEscape(s.resourceID))

	resp, err := s.getWithRetry(ctx, showURL)
	if err != nil {
		return "", fmt.Errorf("resolving resource: %w", err)
	}
	defer resp.Body.Close()

	var show resourceShowResponse
	if err := json.NewDecoder(resp.Body).Decode(&show); err != nil {
		return "", fmt.Errorf("ckan: decoding resource_show response: %w", err)
	}
	if !show.Success {
		return "", fmt.Errorf("ckan: resource_show failed for %s: %s", s.resourceID, show.Error.Message)
	}
	if !strings.HasSuffix(strings.ToLower(show.Result.URL), ".csv") {
		return "", fmt.Errorf("ckan: resource %s does not point at a CSV file: %s", s.resourceID, show.Result.URL)
	}

	return show.Result.URL, nil
}

// getWithRetry issues a GET, retrying network errors and 5xx responses
// up to MaxRetries attempts. Other statuses fail immediately.
func (s *Source) getWithRetry(ctx context.Context, rawURL string) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= MaxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(RetryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("ckan: creating request: %w", err)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			resp.Body.Close()
			lastErr = fmt.Errorf("ckan: server returned status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("ckan: server returned status %d", resp.StatusCode)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("ckan: giving up after %d attempts: %w", MaxRetries, lastErr)
}

// cacheAndReopen copies the download into the cache file and serves
// the run from the cached copy. The copy lands under a temporary name
// first so an interrupted download never leaves a truncated cache.
func (s *Source) cacheAndReopen(body io.ReadCloser) (io.ReadCloser, error) {
	defer body.Close()

	dir := filepath.Dir(s.cachePath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".grants-download-*")
	if err != nil {
		return nil, fmt.Errorf("creating cache file: %w", err)
	}
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("closing cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.cachePath); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("moving cache file into place: %w", err)
	}

	file, err := os.Open(s.cachePath)
	if err != nil {
		return nil, fmt.Errorf("reopening cache file: %w", err)
	}
	return file, nil
}
