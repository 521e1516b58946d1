// This test file verifies the configuration loading logic using Viper.

package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults when no config file", func(t *testing.T) {
		// Ensure no config file exists for this test
		os.Remove("config.yml")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() returned an error: %v", err)
		}

		if cfg.Port != 8080 {
			t.Errorf("Expected default port 8080, got %d", cfg.Port)
		}
		if cfg.Database.Path != "./intake.db" {
			t.Errorf("Expected default db path './intake.db', got '%s'", cfg.Database.Path)
		}
		if cfg.Relay.URL != "ws://localhost:8080" {
			t.Errorf("Expected default relay url, got '%s'", cfg.Relay.URL)
		}
		if cfg.ReconnectDelay() != time.Second {
			t.Errorf("Expected reconnect delay 1s, got %v", cfg.ReconnectDelay())
		}
		if cfg.KeepAlive() != 50*time.Second {
			t.Errorf("Expected keep-alive 50s, got %v", cfg.KeepAlive())
		}
		if cfg.Debounce() != 300*time.Millisecond {
			t.Errorf("Expected debounce 300ms, got %v", cfg.Debounce())
		}
	})

	t.Run("Loads from config file", func(t *testing.T) {
		configContent := `
port: 9999
database:
  path: "/tmp/test.db"
relay:
  url: "ws://relay.internal:9000"
tracker:
  debounce_ms: 50
unknown_setting: "should be ignored"
`
		// Create the config file in the current directory so Viper can find it.
		// Note: `t.TempDir()` is not used here because Viper looks in the CWD.
		configPath := "config.yml"
		if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
			t.Fatalf("Failed to write test config file: %v", err)
		}
		defer os.Remove(configPath)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() returned an error: %v", err)
		}

		if cfg.Port != 9999 {
			t.Errorf("Expected port 9999, got %d", cfg.Port)
		}
		if cfg.Database.Path != "/tmp/test.db" {
			t.Errorf("Expected db path '/tmp/test.db', got '%s'", cfg.Database.Path)
		}
		if cfg.Relay.URL != "ws://relay.internal:9000" {
			t.Errorf("Expected relay url from file, got '%s'", cfg.Relay.URL)
		}
		if cfg.Debounce() != 50*time.Millisecond {
			t.Errorf("Expected debounce 50ms, got %v", cfg.Debounce())
		}
		if cfg.Jobs.NotificationRetentionDays != 30 {
			t.Errorf("Expected default retention of 30 days, got %d", cfg.Jobs.NotificationRetentionDays)
		}
	})

	t.Run("Environment overrides", func(t *testing.T) {
		os.Remove("config.yml")
		t.Setenv("INTAKE_PORT", "7070")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() returned an error: %v", err)
		}
		if cfg.Port != 7070 {
			t.Errorf("Expected port 7070 from env, got %d", cfg.Port)
		}
	})
}
