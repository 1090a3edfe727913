package driving

import "github.com/Sher213/GrantsInvestments/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with environment
	// overrides applied.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetSourceType updates the dataset source type.
	SetSourceType(t domain.SourceType) error

	// SetClassifierProvider configures the classifier provider.
	SetClassifierProvider(provider domain.ClassifierProvider, model, apiKey string) error

	// SetAPIKey updates the classifier API key.
	SetAPIKey(apiKey string) error

	// Validate checks if current settings can drive a run.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// GetSchedulerConfig returns the scheduler configuration.
	GetSchedulerConfig() domain.SchedulerConfig
}
