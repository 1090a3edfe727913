package driven

// ConfigStore is the persistence behind the settings layer: a flat
// key/value view of the grants configuration file with dotted keys
// such as "source.type" or "classifier.api_key". Typed defaults and
// env overrides live in the settings service, not here.
type ConfigStore interface {
	// Get returns the raw stored value and whether the key is set.
	Get(key string) (any, bool)

	// GetString returns the value as a string, or "" when the key is
	// unset or holds another type.
	GetString(key string) string

	// GetInt returns the value as an int, or 0 when the key is unset
	// or holds another type.
	GetInt(key string) int

	// GetBool returns the value as a bool, or false when the key is
	// unset or holds another type.
	GetBool(key string) bool

	// Set stores a value under key and persists it immediately.
	Set(key string, value any) error

	// Keys returns every key currently set, sorted.
	Keys() []string

	// Save writes the current state to the backing file.
	Save() error

	// Load re-reads the backing file, replacing the current state.
	Load() error

	// Path returns the backing file's location, for display.
	Path() string
}
