// Package classifier provides factory functions for creating classifier adapters.
package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/Sher213/GrantsInvestments/internal/adapters/driven/classifier/gemini"
	"github.com/Sher213/GrantsInvestments/internal/adapters/driven/classifier/modelserver"
	"github.com/Sher213/GrantsInvestments/internal/core/domain"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for provider connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateClassifier creates a classifier and validates connectivity.
// Returns the classifier if successful, or an error with guidance.
func CreateAndValidateClassifier(settings domain.ClassifierSettings) (driven.Classifier, error) {
	classifier, err := CreateClassifier(settings)
	if err != nil {
		return nil, fmt.Errorf("%w. Run 'grants config' to fix", err)
	}

	// Validate connectivity.
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := classifier.Ping(ctx); err != nil {
		classifier.Close()
		return nil, fmt.Errorf("classifier unreachable (%w). Run 'grants config' to fix", err)
	}

	return classifier, nil
}

// ValidateClassifierConfig validates a classifier configuration by creating
// a classifier and pinging it. This is intended for use by configuration
// commands so bad credentials surface at set time, not at the next run.
func ValidateClassifierConfig(settings domain.ClassifierSettings) error {
	if !settings.IsConfigured() {
		return nil
	}

	classifier, err := CreateClassifier(settings)
	if err != nil {
		return err
	}
	defer classifier.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return classifier.Ping(ctx)
}

// CreateClassifier creates the appropriate classifier based on settings.
func CreateClassifier(settings domain.ClassifierSettings) (driven.Classifier, error) {
	switch settings.Provider {
	case domain.ClassifierGemini:
		return createGeminiClassifier(settings)

	case domain.ClassifierModelServer:
		return createModelServerClassifier(settings)

	default:
		return nil, fmt.Errorf("%w: classifier provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}

// createGeminiClassifier creates a Gemini classifier. The nil check is
// load-bearing: returning a nil *gemini.Classifier through the interface
// would give callers a non-nil value.
func createGeminiClassifier(settings domain.ClassifierSettings) (driven.Classifier, error) {
	c, err := gemini.NewClassifier(gemini.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
		Timeout: settings.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// createModelServerClassifier creates a model-server classifier.
func createModelServerClassifier(settings domain.ClassifierSettings) (driven.Classifier, error) {
	c, err := modelserver.NewClassifier(modelserver.Config{
		BaseURL:    settings.BaseURL,
		LabelsPath: settings.LabelsPath,
		Model:      settings.Model,
		Timeout:    settings.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
