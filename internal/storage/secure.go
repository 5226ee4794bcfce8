package storage

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

// SecureStore is a durable [Store] backed by the credentials table.
//
// Values are sealed with [secretbox] using a key generated on first use and
// kept next to the database with 0600 permissions, so the session token is
// protected at rest without any user-supplied passphrase.
type SecureStore struct {
	db     *sql.DB
	key    [keySize]byte
	logger *log.Logger
}

// NewSecureStore creates a SecureStore over db, loading or creating the
// sealing key at keyPath.
func NewSecureStore(db *sql.DB, keyPath string, logger *log.Logger) (*SecureStore, error) {
	key, err := loadOrCreateKey(keyPath)
	if err != nil {
		return nil, err
	}

	s := &SecureStore{db: db, logger: logger}
	copy(s.key[:], key)
	return s, nil
}

// loadOrCreateKey reads a raw 32-byte key file, generating one if absent.
func loadOrCreateKey(path string) ([]byte, error) {
	if data, err := os.ReadFile(path); err == nil {
		if len(data) != keySize {
			return nil, fmt.Errorf("key file %s is malformed", path)
		}
		return data, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := os.WriteFile(path, key, 0600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}

	return key, nil
}

// Set seals value and upserts it under key.
func (s *SecureStore) Set(key, value string) error {
	sealed, err := s.seal([]byte(value))
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		"INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP) ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP",
		key, sealed,
	)
	if err != nil {
		return fmt.Errorf("failed to store credential %s: %w", key, err)
	}
	return nil
}

// Get returns the unsealed value for key. Any failure, including an
// undecryptable row, reads as absent; undecryptable rows are removed so a
// broken record is not re-attempted on the next start.
func (s *SecureStore) Get(key string) (string, bool) {
	var sealed []byte
	err := s.db.QueryRow("SELECT value FROM credentials WHERE key = ?", key).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		s.logger.Warnf("credential read failed for %s: %v", key, err)
		return "", false
	}

	value, ok := s.open(sealed)
	if !ok {
		s.logger.Warnf("credential %s could not be unsealed, removing", key)
		if err := s.Remove(key); err != nil {
			s.logger.Warnf("failed to remove credential %s: %v", key, err)
		}
		return "", false
	}

	return string(value), true
}

// Remove deletes the row for key.
func (s *SecureStore) Remove(key string) error {
	if _, err := s.db.Exec("DELETE FROM credentials WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to remove credential %s: %w", key, err)
	}
	return nil
}

func (s *SecureStore) seal(plain []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, &s.key), nil
}

func (s *SecureStore) open(sealed []byte) ([]byte, bool) {
	if len(sealed) < nonceSize {
		return nil, false
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	return secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
}
