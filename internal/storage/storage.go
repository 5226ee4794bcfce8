package storage

// Store is a string key-value capability.
//
// Get reports absence with its second return value; implementations that
// cannot read their backing medium report absent rather than failing.
type Store interface {
	Set(key, value string) error
	Get(key string) (string, bool)
	Remove(key string) error
}

// Well-known keys shared by the session machine and the developer tools.
const (
	SessionKey        = "session"
	SessionStateKey   = "session-state"
	DevSettingsKey    = "dev-settings"
	DevCredentialsKey = "dev-credentials"
)
