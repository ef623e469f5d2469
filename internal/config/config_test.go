// Package config tests for environment configuration loading.
package config

import (
	"testing"
	"time"
)

// TestLoadDefaults verifies defaults are applied for optional fields.
func TestLoadDefaults(t *testing.T) {
	t.Setenv("REMOTE_BASE_URL", "https://notes.example.com")
	t.Setenv("TRANSCRIBE_BASE_URL", "https://stt.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.DataDir != "./data" {
		t.Errorf("DataDir = %s, want ./data", cfg.DataDir)
	}
	if cfg.APIPort != "8090" {
		t.Errorf("APIPort = %s, want 8090", cfg.APIPort)
	}
	if cfg.TranscribePollInterval != time.Second {
		t.Errorf("TranscribePollInterval = %v, want 1s", cfg.TranscribePollInterval)
	}
	if cfg.TranscribeMaxWait != 60*time.Second {
		t.Errorf("TranscribeMaxWait = %v, want 60s", cfg.TranscribeMaxWait)
	}
}

// TestLoadRequiredFields verifies missing required fields fail loudly.
func TestLoadRequiredFields(t *testing.T) {
	t.Setenv("REMOTE_BASE_URL", "")
	t.Setenv("TRANSCRIBE_BASE_URL", "https://stt.example.com")

	if _, err := Load(); err == nil {
		t.Error("Load() should fail without REMOTE_BASE_URL")
	}

	t.Setenv("REMOTE_BASE_URL", "https://notes.example.com")
	t.Setenv("TRANSCRIBE_BASE_URL", "")

	if _, err := Load(); err == nil {
		t.Error("Load() should fail without TRANSCRIBE_BASE_URL")
	}
}

// TestLoadOverrides verifies environment overrides are honored.
func TestLoadOverrides(t *testing.T) {
	t.Setenv("REMOTE_BASE_URL", "https://notes.example.com")
	t.Setenv("TRANSCRIBE_BASE_URL", "https://stt.example.com")
	t.Setenv("API_PORT", "9100")
	t.Setenv("TRANSCRIBE_MAX_WAIT_SEC", "120")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.APIPort != "9100" {
		t.Errorf("APIPort = %s, want 9100", cfg.APIPort)
	}
	if cfg.TranscribeMaxWait != 120*time.Second {
		t.Errorf("TranscribeMaxWait = %v, want 120s", cfg.TranscribeMaxWait)
	}
}

// TestGetDurationEnvMalformed verifies malformed values fall back.
func TestGetDurationEnvMalformed(t *testing.T) {
	t.Setenv("SOME_DURATION", "not-a-number")

	if got := getDurationEnv("SOME_DURATION", 7); got != 7 {
		t.Errorf("getDurationEnv = %v, want 7", got)
	}

	t.Setenv("SOME_DURATION", "-3")
	if got := getDurationEnv("SOME_DURATION", 7); got != 7 {
		t.Errorf("getDurationEnv = %v, want fallback for negative", got)
	}
}
