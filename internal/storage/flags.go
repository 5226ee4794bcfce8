package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
)

// FlagStore is a best-effort [Store] holding advisory flags in a JSON file.
//
// The flags are never load-bearing, so every failure is logged and swallowed:
// Set and Remove always return nil and Get reads as absent when the file is
// missing or unreadable.
type FlagStore struct {
	mu     sync.Mutex
	path   string
	logger *log.Logger
}

// NewFlagStore creates a FlagStore persisting to the JSON file at path.
func NewFlagStore(path string, logger *log.Logger) *FlagStore {
	return &FlagStore{path: path, logger: logger}
}

// Set writes value under key. Failures are logged, never returned.
func (f *FlagStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	flags := f.read()
	flags[key] = value
	f.write(flags)
	return nil
}

// Get returns the value for key, reading absent on any failure.
func (f *FlagStore) Get(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	value, ok := f.read()[key]
	return value, ok
}

// Remove deletes key. Failures are logged, never returned.
func (f *FlagStore) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	flags := f.read()
	if _, ok := flags[key]; !ok {
		return nil
	}
	delete(flags, key)
	f.write(flags)
	return nil
}

func (f *FlagStore) read() map[string]string {
	flags := map[string]string{}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.logger.Warnf("flag store read failed: %v", err)
		}
		return flags
	}

	if err := json.Unmarshal(data, &flags); err != nil {
		f.logger.Warnf("flag store is corrupt, starting fresh: %v", err)
		return map[string]string{}
	}

	return flags
}

func (f *FlagStore) write(flags map[string]string) {
	data, err := json.Marshal(flags)
	if err != nil {
		f.logger.Warnf("flag store encode failed: %v", err)
		return
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		f.logger.Warnf("flag store directory create failed: %v", err)
		return
	}

	if err := os.WriteFile(f.path, data, 0644); err != nil {
		f.logger.Warnf("flag store write failed: %v", err)
	}
}
