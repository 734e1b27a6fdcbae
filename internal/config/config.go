package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Steam   SteamConfig   `mapstructure:"steam"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Session SessionConfig `mapstructure:"session"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SteamConfig holds Steam web API configuration
type SteamConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	WebAPIURL      string        `mapstructure:"web_api_url"`
	StoreAPIURL    string        `mapstructure:"store_api_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
	BatchSize      int           `mapstructure:"batch_size"`
	BatchDelay     time.Duration `mapstructure:"batch_delay"`
}

// ScraperConfig holds pipeline behavior configuration
type ScraperConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	Lookback      time.Duration `mapstructure:"lookback"`
	EnrichDelay   time.Duration `mapstructure:"enrich_delay"`
	WatermarkMode string        `mapstructure:"watermark_mode"`
	RequireExpiry bool          `mapstructure:"require_expiry"`
}

// SessionConfig holds product info session configuration
type SessionConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PumpInterval time.Duration `mapstructure:"pump_interval"`
}

// StorageConfig holds storage and persistence configuration
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set config file
	v.SetConfigFile(path)

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("STEAM_DEALS")
	v.AutomaticEnv()
	// The API key usually lives in the environment, never in the file
	_ = v.BindEnv("steam.api_key", "STEAM_API_KEY")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Steam defaults
	v.SetDefault("steam.web_api_url", "https://api.steampowered.com")
	v.SetDefault("steam.store_api_url", "https://store.steampowered.com")
	v.SetDefault("steam.timeout", "30s")
	v.SetDefault("steam.max_retries", 3)
	v.SetDefault("steam.retry_delay_base", "1s")
	v.SetDefault("steam.batch_size", 100)
	v.SetDefault("steam.batch_delay", "1500ms")

	// Scraper defaults
	v.SetDefault("scraper.poll_interval", "30m")
	v.SetDefault("scraper.lookback", "24h")
	v.SetDefault("scraper.enrich_delay", "2s")
	v.SetDefault("scraper.watermark_mode", "rolling")
	v.SetDefault("scraper.require_expiry", true)

	// Session defaults
	v.SetDefault("session.enabled", false)
	v.SetDefault("session.pump_interval", "1s")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/steamdeals.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Steam config
	if c.Steam.APIKey == "" {
		return fmt.Errorf("steam.api_key is required (set STEAM_API_KEY)")
	}
	if c.Steam.WebAPIURL == "" {
		return fmt.Errorf("steam.web_api_url is required")
	}
	if c.Steam.StoreAPIURL == "" {
		return fmt.Errorf("steam.store_api_url is required")
	}
	if c.Steam.Timeout < 1*time.Second {
		return fmt.Errorf("steam.timeout must be at least 1 second")
	}
	if c.Steam.MaxRetries < 1 {
		return fmt.Errorf("steam.max_retries must be at least 1")
	}
	if c.Steam.BatchSize < 1 || c.Steam.BatchSize > 100 {
		return fmt.Errorf("steam.batch_size must be between 1 and 100")
	}
	if c.Steam.BatchDelay < 0 {
		return fmt.Errorf("steam.batch_delay must not be negative")
	}

	// Validate Scraper config
	if c.Scraper.PollInterval < 1*time.Minute {
		return fmt.Errorf("scraper.poll_interval must be at least 1 minute")
	}
	if c.Scraper.Lookback < 1*time.Hour {
		return fmt.Errorf("scraper.lookback must be at least 1 hour")
	}
	if c.Scraper.EnrichDelay < 0 {
		return fmt.Errorf("scraper.enrich_delay must not be negative")
	}
	if c.Scraper.WatermarkMode != "rolling" && c.Scraper.WatermarkMode != "persist" {
		return fmt.Errorf("scraper.watermark_mode must be one of: rolling, persist")
	}

	// Validate Session config
	if c.Session.Enabled && c.Session.PumpInterval < 10*time.Millisecond {
		return fmt.Errorf("session.pump_interval must be at least 10ms when the session is enabled")
	}

	// Validate Storage config
	if c.Scraper.WatermarkMode == "persist" && c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required in persist watermark mode")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
