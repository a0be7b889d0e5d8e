package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	PagerDuty PagerDutyConfig `mapstructure:"pagerduty"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Filter    FilterConfig    `mapstructure:"filter"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// PagerDutyConfig holds PagerDuty API connection details
type PagerDutyConfig struct {
	Token      string `mapstructure:"token"`
	APIVersion int    `mapstructure:"api_version"`
	// Timezone is used when parsing response timestamps, e.g. "Europe/Oslo"
	Timezone string `mapstructure:"timezone"`
	BaseURL  string `mapstructure:"base_url"`
}

// HTTPConfig contains settings for the HTTP client
type HTTPConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryMax     int           `mapstructure:"retry_max"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
	RateLimit    float64       `mapstructure:"rate_limit"`
}

// FilterConfig contains named filter expressions
type FilterConfig struct {
	Presets map[string]string `mapstructure:"presets"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
