// Package config loads and validates archiver configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Scrape  ScrapeConfig  `mapstructure:"scrape"`
	Search  SearchConfig  `mapstructure:"search"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// StorageConfig sets the content store root.
type StorageConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// HTTPConfig configures fetch client retry behavior.
type HTTPConfig struct {
	MaxRetries            int `mapstructure:"max_retries"`
	ConnectRetryDelaySecs int `mapstructure:"connect_retry_delay_seconds"`
	RateLimitDelaySecs    int `mapstructure:"rate_limit_delay_seconds"`
	TimeoutSeconds        int `mapstructure:"timeout_seconds"`
}

// ScrapeConfig governs discovery and pipeline behavior.
type ScrapeConfig struct {
	MaxPerAuthor    int    `mapstructure:"max_per_author"`
	CourtesyDelayMs int    `mapstructure:"courtesy_delay_ms"`
	CategoriesFile  string `mapstructure:"categories_file"`
	BaseHost        string `mapstructure:"base_host"`
}

// SearchConfig controls query defaults.
type SearchConfig struct {
	TopK int `mapstructure:"top_k"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STACKDOWN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.base_dir", "archive")
	v.SetDefault("http.max_retries", 2)
	v.SetDefault("http.connect_retry_delay_seconds", 7)
	v.SetDefault("http.rate_limit_delay_seconds", 14)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("scrape.max_per_author", 50)
	v.SetDefault("scrape.courtesy_delay_ms", 1000)
	v.SetDefault("scrape.categories_file", "categories.txt")
	v.SetDefault("scrape.base_host", "substack.com")
	v.SetDefault("search.top_k", 10)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if strings.TrimSpace(c.Storage.BaseDir) == "" {
		return fmt.Errorf("storage.base_dir must be set")
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Scrape.MaxPerAuthor <= 0 {
		return fmt.Errorf("scrape.max_per_author must be > 0")
	}
	if c.Search.TopK <= 0 {
		return fmt.Errorf("search.top_k must be > 0")
	}
	return nil
}

// ConnectRetryDelay converts the connection retry setting into a duration.
func (c Config) ConnectRetryDelay() time.Duration {
	return time.Duration(c.HTTP.ConnectRetryDelaySecs) * time.Second
}

// RateLimitDelay converts the rate limit backoff setting into a duration.
func (c Config) RateLimitDelay() time.Duration {
	return time.Duration(c.HTTP.RateLimitDelaySecs) * time.Second
}

// CourtesyDelay converts the discovery pause setting into a duration.
func (c Config) CourtesyDelay() time.Duration {
	return time.Duration(c.Scrape.CourtesyDelayMs) * time.Millisecond
}
