package session

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/senseilabs/harmonyctl/internal/models"
	"github.com/senseilabs/harmonyctl/internal/shared"
	"github.com/senseilabs/harmonyctl/internal/storage"
)

// DevSettings are the developer-tools toggles, persisted best-effort.
type DevSettings struct {
	EnableMockLatency    bool `json:"enableMockLatency"`
	MockLatencyMs        int  `json:"mockLatencyMs"`
	EnableNetworkLogging bool `json:"enableNetworkLogging"`
	QRBypassEnabled      bool `json:"qrBypassEnabled"`
}

// DefaultDevSettings returns the settings used before anything is persisted.
func DefaultDevSettings() DevSettings {
	return DevSettings{MockLatencyMs: 120}
}

// DevStore manages developer settings and the QR bypass credentials.
//
// Settings live in the best-effort store; the credentials, which carry a real
// token, live in the durable store under their own key. Loading is lazy and
// idempotent, mirroring [Machine].
type DevStore struct {
	mu        sync.Mutex
	settings  DevSettings
	creds     *models.DeveloperCredentials
	loaded    bool
	listeners []devListenerEntry
	nextID    int

	durable storage.Store
	flags   storage.Store
	logger  *log.Logger
}

type devListenerEntry struct {
	id int
	fn func(DevSettings)
}

// NewDevStore creates a DevStore over the given stores.
func NewDevStore(durable, flags storage.Store, logger *log.Logger) *DevStore {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &DevStore{
		settings: DefaultDevSettings(),
		durable:  durable,
		flags:    flags,
		logger:   logger,
	}
}

func (d *DevStore) ensureLoaded() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.loaded {
		return
	}
	d.loaded = true

	if raw, ok := d.flags.Get(storage.DevSettingsKey); ok {
		settings := DefaultDevSettings()
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			d.logger.Warnf("developer settings are unreadable, using defaults: %v", err)
		} else {
			d.settings = settings
		}
	}

	if raw, ok := d.durable.Get(storage.DevCredentialsKey); ok {
		var creds models.DeveloperCredentials
		if err := json.Unmarshal([]byte(raw), &creds); err != nil {
			d.logger.Warnf("developer credentials are unreadable, removing: %v", err)
			if err := d.durable.Remove(storage.DevCredentialsKey); err != nil {
				d.logger.Warnf("failed to remove developer credentials: %v", err)
			}
		} else {
			d.creds = &creds
		}
	}
}

// Settings returns a copy of the current settings.
func (d *DevStore) Settings() DevSettings {
	d.ensureLoaded()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings
}

// BypassCredentials returns a copy of the stored credentials, if any.
func (d *DevStore) BypassCredentials() (models.DeveloperCredentials, bool) {
	d.ensureLoaded()
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.creds == nil {
		return models.DeveloperCredentials{}, false
	}
	return *d.creds, true
}

// Update applies mutate to the settings, persists them best-effort, and
// notifies subscribers.
func (d *DevStore) Update(mutate func(*DevSettings)) DevSettings {
	d.ensureLoaded()

	d.mu.Lock()
	mutate(&d.settings)
	settings := d.settings
	notify := d.notifyLocked()
	d.mu.Unlock()

	d.persistSettings(settings)
	notify()
	return settings
}

// SetBypassCredentials stores (or, with nil, clears) the QR bypass
// credentials and flips the bypass flag to match.
func (d *DevStore) SetBypassCredentials(creds *models.DeveloperCredentials) error {
	d.ensureLoaded()

	if creds == nil {
		if err := d.durable.Remove(storage.DevCredentialsKey); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrStorage, err)
		}
	} else {
		data, err := json.Marshal(creds)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrStorage, err)
		}
		if err := d.durable.Set(storage.DevCredentialsKey, string(data)); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrStorage, err)
		}
	}

	d.mu.Lock()
	if creds == nil {
		d.creds = nil
		d.settings.QRBypassEnabled = false
	} else {
		copied := *creds
		d.creds = &copied
		d.settings.QRBypassEnabled = true
	}
	settings := d.settings
	notify := d.notifyLocked()
	d.mu.Unlock()

	d.persistSettings(settings)
	notify()
	return nil
}

// Clear resets settings to defaults and removes both persisted records.
func (d *DevStore) Clear() {
	d.ensureLoaded()

	d.mu.Lock()
	d.settings = DefaultDevSettings()
	d.creds = nil
	notify := d.notifyLocked()
	d.mu.Unlock()

	if err := d.flags.Remove(storage.DevSettingsKey); err != nil {
		d.logger.Warnf("failed to clear developer settings: %v", err)
	}
	if err := d.durable.Remove(storage.DevCredentialsKey); err != nil {
		d.logger.Warnf("failed to clear developer credentials: %v", err)
	}
	notify()
}

// Subscribe registers a settings listener and returns its unsubscribe function.
func (d *DevStore) Subscribe(fn func(DevSettings)) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.listeners = append(d.listeners, devListenerEntry{id: id, fn: fn})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, entry := range d.listeners {
			if entry.id == id {
				d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
				return
			}
		}
	}
}

func (d *DevStore) persistSettings(settings DevSettings) {
	data, err := json.Marshal(settings)
	if err != nil {
		d.logger.Warnf("failed to encode developer settings: %v", err)
		return
	}
	if err := d.flags.Set(storage.DevSettingsKey, string(data)); err != nil {
		d.logger.Warnf("failed to persist developer settings: %v", err)
	}
}

func (d *DevStore) notifyLocked() func() {
	entries := make([]devListenerEntry, len(d.listeners))
	copy(entries, d.listeners)
	settings := d.settings
	return func() {
		for _, entry := range entries {
			entry.fn(settings)
		}
	}
}
