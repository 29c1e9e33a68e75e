package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Save original env and restore after test
	originalEnv := os.Environ()
	defer func() {
		os.Clearenv()
		for _, env := range originalEnv {
			// Parse and restore each env var
			for i, c := range env {
				if c == '=' {
					os.Setenv(env[:i], env[i+1:])
					break
				}
			}
		}
	}()

	// Clear env to test defaults
	os.Clearenv()

	cfg := Load()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"APIURL", cfg.APIURL, "https://api.answermate.io"},
		{"Port", cfg.Port, 8090},
		{"LogLevel", cfg.LogLevel, "info"},
		{"MaxRetries", cfg.MaxRetries, 2},
		{"RetryBase", cfg.RetryBase, 500 * time.Millisecond},
		{"ExponentialBackoff", cfg.ExponentialBackoff, true},
		{"AttemptTimeout", cfg.AttemptTimeout, 30 * time.Second},
		{"FallbackEnabled", cfg.FallbackEnabled, true},
		{"SettingsRefreshInterval", cfg.SettingsRefreshInterval, 5 * time.Minute},
		{"CacheProvider", cfg.CacheProvider, "bolt"},
		{"CachePath", cfg.CachePath, "amclient.db"},
		{"CacheMaxAge", cfg.CacheMaxAge, 24 * time.Hour},
		{"SyncInterval", cfg.SyncInterval, 15 * time.Minute},
		{"SyncSubject", cfg.SyncSubject, "am.docs.updated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %s=%v, got %v", tt.name, tt.expected, tt.got)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	// Save and restore env
	originalPort := os.Getenv("PORT")
	originalRetries := os.Getenv("MAX_RETRIES")
	defer func() {
		os.Setenv("PORT", originalPort)
		os.Setenv("MAX_RETRIES", originalRetries)
	}()

	os.Setenv("PORT", "9090")
	os.Setenv("MAX_RETRIES", "5")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("expected max retries 5, got %d", cfg.MaxRetries)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		APIURL:        "https://api.example.com",
		APIKey:        "am_test_key",
		CacheProvider: "memory",
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"missing api url", func(c *Config) { c.APIURL = "" }, true},
		{"missing api key", func(c *Config) { c.APIKey = "" }, true},
		{"wrong key prefix", func(c *Config) { c.APIKey = "sk_test_key" }, true},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, true},
		{"unknown cache provider", func(c *Config) { c.CacheProvider = "dynamo" }, true},
		{"redis provider", func(c *Config) { c.CacheProvider = "redis" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
