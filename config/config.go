package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envFiles are loaded, when present, before the configuration is read.
// Variables already set in the environment win.
var envFiles = []string{".env.development", ".env"}

// Load loads the configuration from file and environment. Without an explicit
// path a missing config file is not an error, so PAGERDUTY_TOKEN alone is
// enough to run.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix("PAGERDUTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// PAGERDUTY_TOKEN rather than PAGERDUTY_PAGERDUTY_TOKEN
	_ = v.BindEnv("pagerduty.token", "PAGERDUTY_TOKEN")
	_ = v.BindEnv("pagerduty.timezone", "PAGERDUTY_TIMEZONE")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".pagerduty"))
		}

		// Check /etc
		v.AddConfigPath("/etc/pagerduty/")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFiles loads dotenv files that exist, skipping the rest.
func loadEnvFiles(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("error loading %s: %w", path, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// PagerDuty defaults
	v.SetDefault("pagerduty.api_version", 2)
	v.SetDefault("pagerduty.timezone", "UTC")
	v.SetDefault("pagerduty.base_url", "https://api.pagerduty.com/")

	// HTTP defaults
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.retry_max", 3)
	v.SetDefault("http.retry_wait_min", 1*time.Second)
	v.SetDefault("http.retry_wait_max", 10*time.Second)
	v.SetDefault("http.rate_limit", 0)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.PagerDuty.Token == "" || cfg.PagerDuty.Token == "your-token-here" {
		return fmt.Errorf("pagerduty.token must be set (or PAGERDUTY_TOKEN)")
	}

	if cfg.PagerDuty.APIVersion < 1 {
		return fmt.Errorf("invalid pagerduty.api_version: %d", cfg.PagerDuty.APIVersion)
	}

	if _, err := cfg.Location(); err != nil {
		return err
	}

	if cfg.HTTP.RetryMax < 0 {
		return fmt.Errorf("invalid http.retry_max: %d", cfg.HTTP.RetryMax)
	}
	if cfg.HTTP.RateLimit < 0 {
		return fmt.Errorf("invalid http.rate_limit: %v", cfg.HTTP.RateLimit)
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

// Location resolves the configured timezone. An empty timezone means UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.PagerDuty.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.PagerDuty.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid pagerduty.timezone %q: %w", c.PagerDuty.Timezone, err)
	}
	return loc, nil
}
