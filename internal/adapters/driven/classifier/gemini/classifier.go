// Package gemini provides a Classifier adapter using the Generative Language API.
package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driven"
)

// Ensure Classifier implements the interface.
var _ driven.Classifier = (*Classifier)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.0-flash"
	DefaultTimeout = 30 * time.Second

	// systemInstruction frames every categorization call.
	systemInstruction = "Categorize Canadian government grants into citizen-friendly labels."
)

// promptTemplate carries the title, description, and the category list.
// The model must answer with a category name and nothing else.
const promptTemplate = `You are a helpful assistant that categorizes government grants for citizens.
Grant Title: %s
Description: %s

Choose exactly one category from the list below:
%s
Respond with the category name only.`

// Config holds configuration for the Gemini classifier.
type Config struct {
	// APIKey is the Generative Language API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://generativelanguage.googleapis.com).
	BaseURL string

	// Model is the model to use (default: gemini-2.0-flash).
	Model string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Classifier labels grant records through the Generative Language API.
// Responses stream over SSE and are fully drained before the reply is
// matched against the category list.
type Classifier struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string

	// categories maps the normalised form of each category to its
	// canonical name, so model replies snap to the exact label.
	categories map[string]string
}

// generateRequest is the streamGenerateContent request format.
type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

// content is one conversation turn.
type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

// part is a text fragment of a turn.
type part struct {
	Text string `json:"text"`
}

// generationConfig holds response format options.
type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

// generateChunk is one SSE event of the streamed response.
type generateChunk struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

// apiError is the Generative Language API error envelope.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// NewClassifier creates a new Gemini classifier.
func NewClassifier(cfg Config) (*Classifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w: API key is required", domain.ErrClassifierConfig)
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

	categories := make(map[string]string, len(domain.Categories()))
	for _, name := range domain.Categories() {
		categories[normaliseReply(name)] = name
	}

	return &Classifier{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		categories: categories,
	}, nil
}

// Classify labels one record. The streamed reply is drained to the
// finish marker before being matched; a reply outside the category list
// is an error, never a made-up label.
func (c *Classifier) Classify(ctx context.Context, req driven.ClassifyRequest) (domain.EnrichmentResult, error) {
	prompt := fmt.Sprintf(promptTemplate, req.Title, req.Description,
		strings.Join(domain.Categories(), "\n"))

	reqBody := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
		SystemInstruction: &content{
			Parts: []part{{Text: systemInstruction}},
		},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "text/plain",
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return domain.EnrichmentResult{}, fmt.Errorf("gemini: marshalling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return domain.EnrichmentResult{}, fmt.Errorf("gemini: creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return domain.EnrichmentResult{}, fmt.Errorf("gemini: sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.EnrichmentResult{}, c.statusError(resp)
	}

	reply, err := drainStream(resp.Body)
	if err != nil {
		return domain.EnrichmentResult{}, err
	}

	label, ok := c.categories[normaliseReply(reply)]
	if !ok {
		return domain.EnrichmentResult{}, fmt.Errorf("gemini: reply %q is not a known category", strings.TrimSpace(reply))
	}

	// The generative path reports no confidence score.
	return domain.EnrichmentResult{Label: label, Confidence: 0}, nil
}

// drainStream consumes the SSE stream to its end and concatenates the
// candidate text parts. A stream that ends without a finish marker is
// discarded: a truncated label must not be matched.
func drainStream(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var reply strings.Builder
	finished := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var chunk generateChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return "", fmt.Errorf("gemini: decoding stream chunk: %w", err)
		}

		for _, candidate := range chunk.Candidates {
			for _, p := range candidate.Content.Parts {
				reply.WriteString(p.Text)
			}
			if candidate.FinishReason != "" {
				finished = true
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("gemini: reading stream: %w", err)
	}
	if !finished {
		return "", fmt.Errorf("gemini: %w", domain.ErrPartialStream)
	}

	return reply.String(), nil
}

// statusError maps a non-2xx response to the error contract. Credential
// rejections are systemic; everything else stays a per-call failure.
func (c *Classifier) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	message := strings.TrimSpace(string(body))

	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("gemini: %w: %s", domain.ErrClassifierAuth, message)
	case resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(message), "api key"):
		// The API reports an invalid key as a 400, not a 401.
		return fmt.Errorf("gemini: %w: %s", domain.ErrClassifierAuth, message)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("gemini: %w: %s", domain.ErrRateLimited, message)
	default:
		return fmt.Errorf("gemini: API returned status %d: %s", resp.StatusCode, message)
	}
}

// normaliseReply strips the decoration models wrap around a label:
// surrounding whitespace, quotes, and a trailing period. Matching is
// case-insensitive.
func normaliseReply(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	s = strings.TrimSuffix(s, ".")
	s = strings.TrimSpace(s)
	return strings.ToLower(s)
}

// ModelName returns the name of the model being used.
func (c *Classifier) ModelName() string {
	return c.model
}

// Ping validates the API key by listing models, without running inference.
func (c *Classifier) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1beta/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("gemini: creating ping request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gemini: %w: %v", domain.ErrClassifierConfig, err)
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
