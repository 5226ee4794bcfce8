package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Pairing  PairingConfig  `toml:"pairing"`
	Storage  StorageConfig  `toml:"storage"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
}

// PairingConfig contains settings for the connection-code exchange.
type PairingConfig struct {
	ShorthandSuffix string `toml:"shorthand_suffix" env:"HARMONYCTL_SHORTHAND_SUFFIX"`
	TimeoutMs       int    `toml:"timeout_ms" env:"HARMONYCTL_TIMEOUT_MS"`
	DefaultSite     string `toml:"default_site" env:"HARMONYCTL_DEFAULT_SITE"`
}

// StorageConfig contains credential storage locations.
type StorageConfig struct {
	Path string `toml:"path" env:"HARMONYCTL_STORAGE_PATH"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"HARMONYCTL_DATABASE_PATH"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the stub desktop backend.
type ServerConfig struct {
	Host                 string `toml:"host" env:"HARMONYCTL_SERVER_HOST"`
	Port                 int    `toml:"port" env:"HARMONYCTL_SERVER_PORT"`
	ConnectRatePerMinute int    `toml:"connect_rate_per_minute"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path,
// then applies any HARMONYCTL_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	if err := env.Parse(&config); err != nil {
		panic(fmt.Sprintf("failed to apply environment overrides: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidConfig)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
