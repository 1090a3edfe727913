package cli

import (
	"bytes"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockConfigStore implements driven.ConfigStore for testing.
type mockConfigStore struct {
	mu   sync.Mutex
	data map[string]any
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{data: make(map[string]any)}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	return val, ok
}

func (m *mockConfigStore) GetString(key string) string {
	val, _ := m.Get(key)
	s, _ := val.(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	val, _ := m.Get(key)
	switch v := val.(type) {
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

func (m *mockConfigStore) GetBool(key string) bool {
	val, _ := m.Get(key)
	b, _ := val.(bool)
	return b
}

func (m *mockConfigStore) Set(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockConfigStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *mockConfigStore) Save() error { return nil }
func (m *mockConfigStore) Load() error { return nil }
func (m *mockConfigStore) Path() string {
	return "/tmp/config.toml"
}

func setupConfigTest(store *mockConfigStore) func() {
	oldStore := configStore
	if store == nil {
		configStore = nil
	} else {
		configStore = store
	}
	return func() {
		configStore = oldStore
	}
}

func TestConfigCmd_Use(t *testing.T) {
	assert.Equal(t, "config", configCmd.Use)
}

func TestConfigList_Empty(t *testing.T) {
	cleanup := setupConfigTest(newMockConfigStore())
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"config", "list"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "No configuration set. Defaults are in effect.")
}

func TestConfigList_ShowsKeysAndMasksAPIKey(t *testing.T) {
	store := newMockConfigStore()
	require.NoError(t, store.Set("source.type", "file"))
	require.NoError(t, store.Set("classifier.api_key", "sk-1234567890abcdef"))
	cleanup := setupConfigTest(store)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"config", "list"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "source.type = file")
	assert.Contains(t, out, "classifier.api_key = sk-1...cdef")
	assert.NotContains(t, out, "sk-1234567890abcdef")
}

func TestConfigGet(t *testing.T) {
	store := newMockConfigStore()
	require.NoError(t, store.Set("enrich.workers", int64(8)))
	cleanup := setupConfigTest(store)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"config", "get", "enrich.workers"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "8")
}

func TestConfigGet_MissingKey(t *testing.T) {
	cleanup := setupConfigTest(newMockConfigStore())
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"config", "get", "no.such.key"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), `key "no.such.key" is not set`)
}

func TestConfigSet_StoresTypedValues(t *testing.T) {
	store := newMockConfigStore()
	cleanup := setupConfigTest(store)
	defer cleanup()

	tests := []struct {
		key      string
		value    string
		expected any
	}{
		{"scheduler.enabled", "true", true},
		{"enrich.workers", "8", int64(8)},
		{"scheduler.interval", "15m", "15m"},
		{"source.path", "/data/grants.csv", "/data/grants.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			buf := new(bytes.Buffer)
			rootCmd.SetOut(buf)
			rootCmd.SetArgs([]string{"config", "set", tt.key, tt.value})
			defer func() {
				rootCmd.SetArgs(nil)
			}()

			err := rootCmd.Execute()

			assert.NoError(t, err)
			stored, ok := store.Get(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.expected, stored)
		})
	}
}

func TestConfigSetKey_ServiceNotConfigured(t *testing.T) {
	oldSettings := settingsService
	settingsService = nil
	defer func() {
		settingsService = oldSettings
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"config", "set-key"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "settings service not configured")
}

func TestParseConfigValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected any
	}{
		{"True literal", "true", true},
		{"False literal", "false", false},
		{"Integer", "42", int64(42)},
		{"Negative integer", "-3", int64(-3)},
		{"Float", "0.75", 0.75},
		{"Duration stays string", "24h", "24h"},
		{"Plain string", "file", "file"},
		{"Mixed case bool stays string", "True", "True"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseConfigValue(tt.input))
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}
