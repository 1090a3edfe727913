package connectors

import (
	"errors"
	"testing"

	"github.com/Sher213/GrantsInvestments/internal/core/domain"
)

func TestCreateSource(t *testing.T) {
	tests := []struct {
		name         string
		settings     domain.SourceSettings
		wantDescribe string
		wantErr      error
	}{
		{
			name: "file source",
			settings: domain.SourceSettings{
				Type: domain.SourceTypeFile,
				Path: "/data/grants.csv",
			},
			wantDescribe: "/data/grants.csv",
		},
		{
			name: "file source without path",
			settings: domain.SourceSettings{
				Type: domain.SourceTypeFile,
			},
			wantErr: domain.ErrInvalidInput,
		},
		{
			name: "ckan source",
			settings: domain.SourceSettings{
				Type:           domain.SourceTypeCKAN,
				CKANResourceID: "res-123",
			},
			wantDescribe: "ckan:res-123",
		},
		{
			name:     "unknown source type",
			settings: domain.SourceSettings{Type: "sftp"},
			wantErr:  domain.ErrUnsupportedType,
		},
		{
			name:     "empty source type",
			settings: domain.SourceSettings{},
			wantErr:  domain.ErrUnsupportedType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source, err := CreateSource(tt.settings)

			if tt.wantErr != nil {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error %v should wrap %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if source == nil {
				t.Fatal("expected non-nil source")
			}
			if got := source.Describe(); got != tt.wantDescribe {
				t.Errorf("describe = %q, want %q", got, tt.wantDescribe)
			}
		})
	}
}
