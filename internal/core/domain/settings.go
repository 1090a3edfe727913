package domain

import "time"

const unknownDescription = "Unknown"

// SourceType identifies where the raw grants table comes from.
type SourceType string

// Available source types.
const (
	// SourceTypeFile reads a CSV file from the local filesystem.
	SourceTypeFile SourceType = "file"

	// SourceTypeCKAN resolves and downloads the CSV from a CKAN portal.
	SourceTypeCKAN SourceType = "ckan"
)

// IsValid returns true if the source type is recognised.
func (t SourceType) IsValid() bool {
	switch t {
	case SourceTypeFile, SourceTypeCKAN:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (t SourceType) String() string {
	return string(t)
}

// Description returns a human-readable description of the source type.
func (t SourceType) Description() string {
	switch t {
	case SourceTypeFile:
		return "Local CSV file"
	case SourceTypeCKAN:
		return "CKAN open-data portal"
	default:
		return unknownDescription
	}
}

// ClassifierProvider identifies the enrichment service implementation.
type ClassifierProvider string

// Available classifier providers.
const (
	// ClassifierGemini is the generative categorization path over the
	// Generative Language API.
	ClassifierGemini ClassifierProvider = "gemini"

	// ClassifierModelServer is a trained-model inference endpoint with
	// a sidecar label file.
	ClassifierModelServer ClassifierProvider = "modelserver"
)

// IsValid returns true if the provider is recognised.
func (p ClassifierProvider) IsValid() bool {
	switch p {
	case ClassifierGemini, ClassifierModelServer:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p ClassifierProvider) RequiresAPIKey() bool {
	return p == ClassifierGemini
}

// String returns the string representation.
func (p ClassifierProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p ClassifierProvider) Description() string {
	switch p {
	case ClassifierGemini:
		return "Gemini (generative categorization)"
	case ClassifierModelServer:
		return "Model server (trained-model inference)"
	default:
		return unknownDescription
	}
}

// SourceSettings holds raw dataset source configuration.
type SourceSettings struct {
	// Type selects the source implementation.
	Type SourceType

	// Path is the CSV file path for file sources.
	Path string

	// CKANBaseURL is the portal action API base for CKAN sources.
	CKANBaseURL string

	// CKANResourceID is the dataset resource to resolve.
	CKANResourceID string

	// CachePath, when set, stores the downloaded CSV and is preferred
	// over the network on later runs.
	CachePath string
}

// IsConfigured returns true if the source can be opened.
func (s SourceSettings) IsConfigured() bool {
	switch s.Type {
	case SourceTypeFile:
		return s.Path != ""
	case SourceTypeCKAN:
		return s.CKANResourceID != ""
	default:
		return false
	}
}

// ClassifierSettings holds enrichment service configuration.
type ClassifierSettings struct {
	// Provider selects the classifier implementation.
	Provider ClassifierProvider

	// APIKey authenticates to the provider, where required.
	APIKey string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// Model is the model name (generative path).
	Model string

	// LabelsPath is the sidecar label file (model-server path).
	LabelsPath string

	// Timeout bounds each classification call.
	Timeout time.Duration
}

// IsConfigured returns true if the classifier is set up.
func (c ClassifierSettings) IsConfigured() bool {
	if !c.Provider.IsValid() {
		return false
	}
	if c.Provider.RequiresAPIKey() && c.APIKey == "" {
		return false
	}
	if c.Provider == ClassifierModelServer && c.LabelsPath == "" {
		return false
	}
	return true
}

// RetryPolicy bounds retries of per-record classifier failures.
// MaxAttempts of 1 means no retry. Systemic failures are never retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries per record, including
	// the first.
	MaxAttempts int

	// Backoff is the pause between attempts, on top of rate-limiter
	// pacing.
	Backoff time.Duration
}

// EnrichSettings holds enrichment scheduling configuration.
type EnrichSettings struct {
	// Workers is the enrichment pool size.
	Workers int

	// RatePerMinute caps aggregate classifier calls across all workers.
	RatePerMinute int

	// Burst is the token bucket burst size.
	Burst int

	// Retry bounds per-record retries.
	Retry RetryPolicy
}

// SchedulerSettings holds the periodic refresh configuration.
type SchedulerSettings struct {
	// Interval is how often the dataset-refresh task runs.
	Interval time.Duration
}

// AppSettings holds all application settings.
type AppSettings struct {
	// DataDir is where the database, logs, and cache live.
	DataDir string

	// Source holds dataset source settings.
	Source SourceSettings

	// Classifier holds enrichment service settings.
	Classifier ClassifierSettings

	// Enrich holds enrichment scheduling settings.
	Enrich EnrichSettings

	// Scheduler holds periodic refresh settings.
	Scheduler SchedulerSettings

	// Verbose enables debug-level console logging.
	Verbose bool
}

// DefaultAppSettings returns settings with sensible defaults.
// The classifier API key is left empty; it must be supplied via
// configuration or environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Source: SourceSettings{
			Type:           SourceTypeCKAN,
			CKANBaseURL:    "https://open.canada.ca/data/api/3/action",
			CKANResourceID: "1d15a62f-5656-49ad-8c88-f40ce689d831",
		},
		Classifier: ClassifierSettings{
			Provider: ClassifierGemini,
			Model:    "gemini-2.0-flash",
			Timeout:  30 * time.Second,
		},
		Enrich: EnrichSettings{
			Workers:       4,
			RatePerMinute: 2000,
			Burst:         1,
			Retry:         RetryPolicy{MaxAttempts: 1},
		},
		Scheduler: SchedulerSettings{
			Interval: 24 * time.Hour,
		},
	}
}

// AllSourceTypes returns all available source types.
func AllSourceTypes() []SourceType {
	return []SourceType{SourceTypeFile, SourceTypeCKAN}
}

// AllClassifierProviders returns all available classifier providers.
func AllClassifierProviders() []ClassifierProvider {
	return []ClassifierProvider{ClassifierGemini, ClassifierModelServer}
}
