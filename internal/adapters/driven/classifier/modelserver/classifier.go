// Package modelserver provides a Classifier adapter backed by a local
// inference server running a trained categorization model.
package modelserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driven"
)

// Ensure Classifier implements the interface.
var _ driven.Classifier = (*Classifier)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8500"
	DefaultModel   = "grants-categoriser"
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the model-server classifier.
type Config struct {
	// BaseURL is the inference server base URL (default: http://localhost:8500).
	BaseURL string

	// LabelsPath is the sidecar label file, one label per line, in the
	// model's output order (required).
	LabelsPath string

	// Model is the model name reported by ModelName (default: grants-categoriser).
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Classifier labels grant records through a local inference server.
// The server returns a label index and a score; the ordered label list
// comes from a sidecar file loaded at construction.
type Classifier struct {
	client  *http.Client
	baseURL string
	model   string
	labels  []string
}

// classifyRequest is the inference request format.
type classifyRequest struct {
	Text string `json:"text"`
}

// classifyResponse is the inference response format.
type classifyResponse struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// NewClassifier creates a new model-server classifier. The labels file
// is read once here; a missing or empty file is a configuration error.
func NewClassifier(cfg Config) (*Classifier, error) {
	if cfg.LabelsPath == "" {
		return nil, fmt.Errorf("modelserver: %w: labels file path is required", domain.ErrClassifierConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	labels, err := loadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	return &Classifier{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
		labels:  labels,
	}, nil
}

// loadLabels reads the sidecar label file, one label per line in the
// model's output order. Blank lines are skipped.
func loadLabels(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("modelserver: %w: opening labels file: %v", domain.ErrClassifierConfig, err)
	}
	defer file.Close()

	var labels []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		label := strings.TrimSpace(scanner.Text())
		if label == "" {
			continue
		}
		labels = append(labels, label)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("modelserver: reading labels file: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("modelserver: %w: labels file %s contains no labels", domain.ErrClassifierConfig, path)
	}

	return labels, nil
}

// Classify labels one record. The model was trained on the recipient,
// agreement title, and description joined into one text, so the same
// combination is sent here.
func (c *Classifier) Classify(ctx context.Context, req driven.ClassifyRequest) (domain.EnrichmentResult, error) {
	text := strings.TrimSpace(strings.Join([]string{req.Recipient, req.Agreement, req.Description}, " "))

	jsonBody, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return domain.EnrichmentResult{}, fmt.Errorf("modelserver: marshalling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/classify", bytes.NewReader(jsonBody))
	if err != nil {
		return domain.EnrichmentResult{}, fmt.Errorf("modelserver: creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return domain.EnrichmentResult{}, fmt.Errorf("modelserver: sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.EnrichmentResult{}, c.statusError(resp)
	}

	var result classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.EnrichmentResult{}, fmt.Errorf("modelserver: decoding response: %w", err)
	}

	if result.Index < 0 || result.Index >= len(c.labels) {
		return domain.EnrichmentResult{}, fmt.Errorf("modelserver: label index %d out of range (%d labels)", result.Index, len(c.labels))
	}

	return domain.EnrichmentResult{
		Label:      c.labels[result.Index],
		Confidence: result.Score,
	}, nil
}

// statusError maps a non-2xx response to the error contract.
func (c *Classifier) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	message := strings.TrimSpace(string(body))

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("modelserver: %w: %s", domain.ErrClassifierAuth, message)
	}
	return fmt.Errorf("modelserver: API returned status %d: %s", resp.StatusCode, message)
}

// ModelName returns the name of the model being used.
func (c *Classifier) ModelName() string {
	return c.model
}

// Labels returns the ordered label list loaded from the sidecar file.
func (c *Classifier) Labels() []string {
	labels := make([]string, len(c.labels))
	copy(labels, c.labels)
	return labels
}

// Ping checks that the inference server is reachable.
func (c *Classifier) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return fmt.Errorf("modelserver: creating ping request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("modelserver: %w: %v", domain.ErrClassifierConfig, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}
	return nil
}

// Close releases resources.
func (c *Classifier) Close() error {
	// HTTP client doesn't need explicit cleanup
	return nil
}
