package config

import (
	"os"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Steam: SteamConfig{
			APIKey:         "test_key",
			WebAPIURL:      "https://api.steampowered.com",
			StoreAPIURL:    "https://store.steampowered.com",
			Timeout:        30 * time.Second,
			MaxRetries:     3,
			RetryDelayBase: time.Second,
			BatchSize:      100,
			BatchDelay:     1500 * time.Millisecond,
		},
		Scraper: ScraperConfig{
			PollInterval:  30 * time.Minute,
			Lookback:      24 * time.Hour,
			EnrichDelay:   2 * time.Second,
			WatermarkMode: "rolling",
			RequireExpiry: true,
		},
		Session: SessionConfig{
			Enabled:      false,
			PumpInterval: time.Second,
		},
		Storage: StorageConfig{
			DBPath: "./data/test.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func TestLoadAndValidate(t *testing.T) {
	// Create temp config file
	content := `
steam:
  api_key: "file_key"
  batch_size: 50
  batch_delay: 2s

scraper:
  poll_interval: 15m
  lookback: 48h
  watermark_mode: persist
  require_expiry: false

storage:
  db_path: "./data/test.db"

logging:
  level: "debug"
  format: "text"
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(tmpfile.Name()) }()

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	// Test Load
	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify values
	if cfg.Steam.BatchSize != 50 {
		t.Errorf("Unexpected batch size: %d", cfg.Steam.BatchSize)
	}
	if cfg.Steam.BatchDelay != 2*time.Second {
		t.Errorf("Unexpected batch delay: %v", cfg.Steam.BatchDelay)
	}
	if cfg.Scraper.PollInterval != 15*time.Minute {
		t.Errorf("Unexpected poll interval: %v", cfg.Scraper.PollInterval)
	}
	if cfg.Scraper.Lookback != 48*time.Hour {
		t.Errorf("Unexpected lookback: %v", cfg.Scraper.Lookback)
	}
	if cfg.Scraper.WatermarkMode != "persist" {
		t.Errorf("Unexpected watermark mode: %q", cfg.Scraper.WatermarkMode)
	}
	if cfg.Scraper.RequireExpiry {
		t.Error("Expected require_expiry to be false")
	}

	// Defaults fill in what the file omits
	if cfg.Steam.WebAPIURL != "https://api.steampowered.com" {
		t.Errorf("Unexpected web API URL: %q", cfg.Steam.WebAPIURL)
	}
	if cfg.Scraper.EnrichDelay != 2*time.Second {
		t.Errorf("Unexpected enrich delay: %v", cfg.Scraper.EnrichDelay)
	}

	// Test Validate
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoad_APIKeyFromEnvironment(t *testing.T) {
	content := `
logging:
  level: "info"
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(tmpfile.Name()) }()
	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	t.Setenv("STEAM_API_KEY", "env_key")

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Steam.APIKey != "env_key" {
		t.Errorf("Unexpected API key: %q", cfg.Steam.APIKey)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing api key",
			mutate:  func(c *Config) { c.Steam.APIKey = "" },
			wantErr: true,
		},
		{
			name:    "batch size above cap",
			mutate:  func(c *Config) { c.Steam.BatchSize = 101 },
			wantErr: true,
		},
		{
			name:    "poll interval too small",
			mutate:  func(c *Config) { c.Scraper.PollInterval = 10 * time.Second },
			wantErr: true,
		},
		{
			name:    "unknown watermark mode",
			mutate:  func(c *Config) { c.Scraper.WatermarkMode = "sliding" },
			wantErr: true,
		},
		{
			name: "persist mode without db path",
			mutate: func(c *Config) {
				c.Scraper.WatermarkMode = "persist"
				c.Storage.DBPath = ""
			},
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name: "tiny pump interval with session enabled",
			mutate: func(c *Config) {
				c.Session.Enabled = true
				c.Session.PumpInterval = time.Millisecond
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
