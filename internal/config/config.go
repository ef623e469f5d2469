// Package config provides environment-driven configuration for Memovox.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the backend process.
type Config struct {
	DataDir string
	APIPort string

	// Remote note service
	RemoteBaseURL string
	RemoteAPIKey  string

	// Transcription service
	TranscribeBaseURL string
	TranscribeAPIKey  string
	// TranscribePollInterval is the delay between status polls.
	TranscribePollInterval time.Duration
	// TranscribeMaxWait bounds the total wait for a transcript before the
	// capture fails rather than hanging.
	TranscribeMaxWait time.Duration

	// Extraction service
	ExtractBaseURL string
	ExtractTimeout time.Duration

	// Sync connectivity monitor
	MonitorInterval time.Duration
}

// Load reads configuration from environment variables and returns a Config.
// If a .env file exists in the working directory it is loaded first;
// variables already set in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:                getEnv("DATA_DIR", "./data"),
		APIPort:                getEnv("API_PORT", "8090"),
		RemoteBaseURL:          getEnv("REMOTE_BASE_URL", ""),
		RemoteAPIKey:           getEnv("REMOTE_API_KEY", ""),
		TranscribeBaseURL:      getEnv("TRANSCRIBE_BASE_URL", ""),
		TranscribeAPIKey:       getEnv("TRANSCRIBE_API_KEY", ""),
		TranscribePollInterval: getDurationEnv("TRANSCRIBE_POLL_INTERVAL_MS", 1000) * time.Millisecond,
		TranscribeMaxWait:      getDurationEnv("TRANSCRIBE_MAX_WAIT_SEC", 60) * time.Second,
		ExtractBaseURL:         getEnv("EXTRACT_BASE_URL", ""),
		ExtractTimeout:         getDurationEnv("EXTRACT_TIMEOUT_SEC", 5) * time.Second,
		MonitorInterval:        getDurationEnv("MONITOR_INTERVAL_SEC", 30) * time.Second,
	}

	if cfg.RemoteBaseURL == "" {
		return nil, fmt.Errorf("REMOTE_BASE_URL is required")
	}
	if cfg.TranscribeBaseURL == "" {
		return nil, fmt.Errorf("TRANSCRIBE_BASE_URL is required")
	}

	return cfg, nil
}

// getEnv returns the environment variable value or a default.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getDurationEnv parses an integer environment variable used as a duration
// count, falling back on missing or malformed values.
func getDurationEnv(key string, fallback int64) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return time.Duration(fallback)
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return time.Duration(fallback)
	}
	return time.Duration(n)
}
