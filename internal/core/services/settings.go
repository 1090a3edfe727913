package services

import (
	"fmt"
	"os"
	"time"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driven"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDataDir            = "data_dir"
	keySourceType         = "source.type"
	keySourcePath         = "source.path"
	keySourceCKANBaseURL  = "source.ckan_base_url"
	keySourceCKANResource = "source.ckan_resource_id"
	keySourceCachePath    = "source.cache_path"
	keyClassifierProvider = "classifier.provider"
	keyClassifierAPIKey   = "classifier.api_key"
	keyClassifierBaseURL  = "classifier.base_url"
	keyClassifierModel    = "classifier.model"
	keyClassifierLabels   = "classifier.labels_path"
	keyClassifierTimeout  = "classifier.timeout"
	keyEnrichWorkers      = "enrich.workers"
	keyEnrichRate         = "enrich.rate_per_minute"
	keyEnrichBurst        = "enrich.burst"
	keyEnrichRetries      = "enrich.retry_attempts"
	keyEnrichBackoff      = "enrich.retry_backoff"
	keySchedulerEnabled   = "scheduler.enabled"
	keySchedulerInterval  = "scheduler.interval"
	keySchedulerHistory   = "scheduler.history_keep"
)

// Environment overrides, applied on top of the config file.
const (
	envDataDir    = "GRANTS_DATA_DIR"
	envSourcePath = "GRANTS_SOURCE_PATH"
	envAPIKey     = "GRANTS_CLASSIFIER_API_KEY"

	// envAPIKeyFallback is honoured for compatibility with the wider
	// Gemini tooling ecosystem.
	envAPIKeyFallback = "GEMINI_API_KEY"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
	}
}

// Get retrieves current application settings. Unset keys fall back to
// defaults; environment variables override both.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()
	provider := s.getProvider(defaults.Classifier.Provider)

	settings := &domain.AppSettings{
		DataDir: s.getString(keyDataDir, defaults.DataDir),
		Source: domain.SourceSettings{
			Type:           s.getSourceType(defaults.Source.Type),
			Path:           s.configStore.GetString(keySourcePath),
			CKANBaseURL:    s.getString(keySourceCKANBaseURL, defaults.Source.CKANBaseURL),
			CKANResourceID: s.getString(keySourceCKANResource, defaults.Source.CKANResourceID),
			CachePath:      s.configStore.GetString(keySourceCachePath),
		},
		Classifier: domain.ClassifierSettings{
			Provider:   provider,
			APIKey:     s.configStore.GetString(keyClassifierAPIKey),
			BaseURL:    s.configStore.GetString(keyClassifierBaseURL), // No default - adapters fall back to their endpoint
			Model:      s.configStore.GetString(keyClassifierModel),
			LabelsPath: s.configStore.GetString(keyClassifierLabels),
			Timeout:    s.getDuration(keyClassifierTimeout, defaults.Classifier.Timeout),
		},
		Enrich: domain.EnrichSettings{
			Workers:       s.getInt(keyEnrichWorkers, defaults.Enrich.Workers),
			RatePerMinute: s.getInt(keyEnrichRate, defaults.Enrich.RatePerMinute),
			Burst:         s.getInt(keyEnrichBurst, defaults.Enrich.Burst),
			Retry: domain.RetryPolicy{
				MaxAttempts: s.getInt(keyEnrichRetries, defaults.Enrich.Retry.MaxAttempts),
				Backoff:     s.getDuration(keyEnrichBackoff, defaults.Enrich.Retry.Backoff),
			},
		},
		Scheduler: domain.SchedulerSettings{
			Interval: s.getDuration(keySchedulerInterval, defaults.Scheduler.Interval),
		},
	}

	// The model default belongs to the generative path; other providers
	// apply their own when the key is unset.
	if settings.Classifier.Model == "" && provider == domain.ClassifierGemini {
		settings.Classifier.Model = defaults.Classifier.Model
	}

	applyEnvOverrides(settings)

	return settings, nil
}

// applyEnvOverrides layers environment variables over the settings.
func applyEnvOverrides(settings *domain.AppSettings) {
	if dir := os.Getenv(envDataDir); dir != "" {
		settings.DataDir = dir
	}
	// A source path override also selects the file source, so a local
	// snapshot can be forced without touching the config file.
	if path := os.Getenv(envSourcePath); path != "" {
		settings.Source.Type = domain.SourceTypeFile
		settings.Source.Path = path
	}
	if key := os.Getenv(envAPIKey); key != "" {
		settings.Classifier.APIKey = key
	} else if key := os.Getenv(envAPIKeyFallback); key != "" && settings.Classifier.APIKey == "" {
		settings.Classifier.APIKey = key
	}
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := s.configStore.Set(keyDataDir, settings.DataDir); err != nil {
		return fmt.Errorf("save data dir: %w", err)
	}

	// Save source settings
	if err := s.configStore.Set(keySourceType, settings.Source.Type.String()); err != nil {
		return fmt.Errorf("save source type: %w", err)
	}
	if err := s.configStore.Set(keySourcePath, settings.Source.Path); err != nil {
		return fmt.Errorf("save source path: %w", err)
	}
	if err := s.configStore.Set(keySourceCKANBaseURL, settings.Source.CKANBaseURL); err != nil {
		return fmt.Errorf("save ckan base_url: %w", err)
	}
	if err := s.configStore.Set(keySourceCKANResource, settings.Source.CKANResourceID); err != nil {
		return fmt.Errorf("save ckan resource_id: %w", err)
	}
	if err := s.configStore.Set(keySourceCachePath, settings.Source.CachePath); err != nil {
		return fmt.Errorf("save cache path: %w", err)
	}

	// Save classifier settings
	if err := s.configStore.Set(keyClassifierProvider, settings.Classifier.Provider.String()); err != nil {
		return fmt.Errorf("save classifier provider: %w", err)
	}
	if settings.Classifier.APIKey != "" {
		if err := s.configStore.Set(keyClassifierAPIKey, settings.Classifier.APIKey); err != nil {
			return fmt.Errorf("save classifier api_key: %w", err)
		}
	}
	if err := s.configStore.Set(keyClassifierBaseURL, settings.Classifier.BaseURL); err != nil {
		return fmt.Errorf("save classifier base_url: %w", err)
	}
	if err := s.configStore.Set(keyClassifierModel, settings.Classifier.Model); err != nil {
		return fmt.Errorf("save classifier model: %w", err)
	}
	if err := s.configStore.Set(keyClassifierLabels, settings.Classifier.LabelsPath); err != nil {
		return fmt.Errorf("save classifier labels_path: %w", err)
	}
	if err := s.configStore.Set(keyClassifierTimeout, settings.Classifier.Timeout.String()); err != nil {
		return fmt.Errorf("save classifier timeout: %w", err)
	}

	// Save enrichment settings
	if err := s.configStore.Set(keyEnrichWorkers, settings.Enrich.Workers); err != nil {
		return fmt.Errorf("save enrich workers: %w", err)
	}
	if err := s.configStore.Set(keyEnrichRate, settings.Enrich.RatePerMinute); err != nil {
		return fmt.Errorf("save enrich rate: %w", err)
	}
	if err := s.configStore.Set(keyEnrichBurst, settings.Enrich.Burst); err != nil {
		return fmt.Errorf("save enrich burst: %w", err)
	}
	if err := s.configStore.Set(keyEnrichRetries, settings.Enrich.Retry.MaxAttempts); err != nil {
		return fmt.Errorf("save enrich retries: %w", err)
	}
	if err := s.configStore.Set(keyEnrichBackoff, settings.Enrich.Retry.Backoff.String()); err != nil {
		return fmt.Errorf("save enrich backoff: %w", err)
	}

	// Save scheduler settings
	if err := s.configStore.Set(keySchedulerInterval, settings.Scheduler.Interval.String()); err != nil {
		return fmt.Errorf("save scheduler interval: %w", err)
	}

	return nil
}

// SetSourceType updates the dataset source type.
func (s *SettingsService) SetSourceType(t domain.SourceType) error {
	if !t.IsValid() {
		return fmt.Errorf("invalid source type: %s", t)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Source.Type = t

	return s.Save(settings)
}

// SetClassifierProvider configures the classifier provider.
func (s *SettingsService) SetClassifierProvider(provider domain.ClassifierProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid classifier provider: %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" && settings.Classifier.APIKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings.Classifier.Provider = provider

	// Set model - use provided or the provider default
	if model != "" {
		settings.Classifier.Model = model
	} else if provider == domain.ClassifierGemini {
		settings.Classifier.Model = domain.DefaultAppSettings().Classifier.Model
	}

	if apiKey != "" {
		settings.Classifier.APIKey = apiKey
	}

	return s.Save(settings)
}

// SetAPIKey updates the classifier API key.
func (s *SettingsService) SetAPIKey(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("api key: %w", domain.ErrInvalidInput)
	}
	if err := s.configStore.Set(keyClassifierAPIKey, apiKey); err != nil {
		return fmt.Errorf("save classifier api_key: %w", err)
	}
	return nil
}

// Validate checks if current settings can drive a run.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Source.Type.IsValid() {
		return fmt.Errorf("invalid source type: %s", settings.Source.Type)
	}
	if !settings.Source.IsConfigured() {
		return fmt.Errorf("source %q is not configured", settings.Source.Type.Description())
	}
	if !settings.Classifier.Provider.IsValid() {
		return fmt.Errorf("invalid classifier provider: %s", settings.Classifier.Provider)
	}
	if !settings.Classifier.IsConfigured() {
		return fmt.Errorf(
			"classifier %q is not configured",
			settings.Classifier.Provider.Description(),
		)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// GetSchedulerConfig returns the scheduler configuration.
// Returns default configuration if nothing is configured.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	defaults := domain.DefaultSchedulerConfig()

	// Master switch
	if _, exists := s.configStore.Get(keySchedulerEnabled); exists {
		defaults.Enabled = s.configStore.GetBool(keySchedulerEnabled)
	}

	defaults.RefreshInterval = s.getDuration(keySchedulerInterval, defaults.RefreshInterval)

	if keep := s.configStore.GetInt(keySchedulerHistory); keep > 0 {
		defaults.HistoryKeep = keep
	}

	return defaults
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

// getDuration reads a duration string like "45m" or "1h".
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getSourceType(defaultVal domain.SourceType) domain.SourceType {
	val := s.configStore.GetString(keySourceType)
	if val == "" {
		return defaultVal
	}
	t := domain.SourceType(val)
	if !t.IsValid() {
		return defaultVal
	}
	return t
}

func (s *SettingsService) getProvider(defaultVal domain.ClassifierProvider) domain.ClassifierProvider {
	val := s.configStore.GetString(keyClassifierProvider)
	if val == "" {
		return defaultVal
	}
	provider := domain.ClassifierProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
