package connectors

import (
	"fmt"

	"github.com/Sher213/GrantsInvestments/internal/connectors/ckan"
	"github.com/Sher213/GrantsInvestments/internal/connectors/localcsv"
	"github.com/Sher213/GrantsInvestments/internal/core/domain"
	"github.com/Sher213/GrantsInvestments/internal/core/ports/driven"
)

// CreateSource creates the appropriate grant source based on settings.
func CreateSource(settings domain.SourceSettings) (driven.GrantSource, error) {
	switch settings.Type {
	case domain.SourceTypeFile:
		if settings.Path == "" {
			return nil, fmt.Errorf("%w: file source needs source.path", domain.ErrInvalidInput)
		}
		return localcsv.New(settings.Path), nil

	case domain.SourceTypeCKAN:
		return ckan.New(ckan.Config{
			BaseURL:    settings.CKANBaseURL,
			ResourceID: settings.CKANResourceID,
			CachePath:  settings.CachePath,
		}), nil

	default:
		return nil, fmt.Errorf("%w: source type %q", domain.ErrUnsupportedType, settings.Type)
	}
}
