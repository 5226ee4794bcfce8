package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Pairing.ShorthandSuffix != "senseilabs.com" {
			t.Errorf("expected shorthand suffix senseilabs.com, got %s", config.Pairing.ShorthandSuffix)
		}

		if config.Pairing.TimeoutMs != 10000 {
			t.Errorf("expected pairing timeout 10000, got %d", config.Pairing.TimeoutMs)
		}

		if config.Storage.Path != "./.harmonyctl" {
			t.Errorf("expected storage path ./.harmonyctl, got %s", config.Storage.Path)
		}

		if config.Database.Path != "./.harmonyctl/credentials.db" {
			t.Errorf("expected database path ./.harmonyctl/credentials.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 4632 {
			t.Errorf("expected server port 4632, got %d", config.Server.Port)
		}

		if config.Server.ConnectRatePerMinute != 12 {
			t.Errorf("expected connect rate 12, got %d", config.Server.ConnectRatePerMinute)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Pairing.ShorthandSuffix != defaultConfig.Pairing.ShorthandSuffix {
			t.Errorf("created config suffix doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[pairing]
shorthand_suffix = "example.test"
timeout_ms = 2500
default_site = "acme"

[storage]
path = "/custom/store"

[database]
path = "/custom/store/creds.db"
max_open_conns = 20
max_idle_conns = 10

[server]
host = "0.0.0.0"
port = 8080
connect_rate_per_minute = 3
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Pairing.ShorthandSuffix != "example.test" {
			t.Errorf("expected suffix example.test, got %s", config.Pairing.ShorthandSuffix)
		}

		if config.Pairing.DefaultSite != "acme" {
			t.Errorf("expected default site acme, got %s", config.Pairing.DefaultSite)
		}

		if config.Database.Path != "/custom/store/creds.db" {
			t.Errorf("expected database path /custom/store/creds.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}
	})

	t.Run("LoadConfig with missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
		if err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("HARMONYCTL_SHORTHAND_SUFFIX", "override.test")
		t.Setenv("HARMONYCTL_SERVER_PORT", "9999")

		config := DefaultConfig()

		if config.Pairing.ShorthandSuffix != "override.test" {
			t.Errorf("expected env override override.test, got %s", config.Pairing.ShorthandSuffix)
		}

		if config.Server.Port != 9999 {
			t.Errorf("expected env override port 9999, got %d", config.Server.Port)
		}
	})
}
