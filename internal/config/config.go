// Package config loads configuration from YAML files and STARKLENS_*
// environment variables. Environment variables override file values.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starklens/starklens/internal/constants"
)

// Config holds all configuration for the service
type Config struct {
	Store StoreConfig `yaml:"store"`
	Index IndexConfig `yaml:"index"`
	Log   LogConfig   `yaml:"log"`
	API   APIConfig   `yaml:"api"`
}

// StoreConfig holds primary store configuration
type StoreConfig struct {
	// Path is the store directory
	Path string `yaml:"path"`
	// Cache is the block cache size in MB
	Cache int `yaml:"cache"`
	// MaxOpenFiles is the maximum number of open files
	MaxOpenFiles int `yaml:"max_open_files"`
}

// IndexConfig holds secondary index configuration
type IndexConfig struct {
	// Path is the index database file
	Path string `yaml:"path"`
	// SyncInterval is the periodic sync interval (0 disables periodic sync)
	SyncInterval time.Duration `yaml:"sync_interval"`
	// AutoSync runs the syncer loop at startup
	AutoSync bool `yaml:"auto_sync"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// APIConfig holds API server configuration
type APIConfig struct {
	Host               string   `yaml:"host"`
	Port               int      `yaml:"port"`
	EnableCORS         bool     `yaml:"enable_cors"`
	AllowedOrigins     []string `yaml:"allowed_origins"`
	EnableRateLimit    bool     `yaml:"enable_rate_limit"`
	RateLimitPerSecond float64  `yaml:"rate_limit_per_second"`
	RateLimitBurst     int      `yaml:"rate_limit_burst"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	if c.Store.Cache == 0 {
		c.Store.Cache = constants.DefaultCacheSize
	}
	if c.Store.MaxOpenFiles == 0 {
		c.Store.MaxOpenFiles = constants.DefaultMaxOpenFiles
	}

	if c.Index.Path == "" {
		c.Index.Path = constants.DefaultIndexFileName
	}
	if c.Index.SyncInterval == 0 {
		c.Index.SyncInterval = constants.DefaultSyncInterval
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	if c.API.Host == "" {
		c.API.Host = constants.DefaultAPIHost
	}
	if c.API.Port == 0 {
		c.API.Port = constants.DefaultAPIPort
	}
	if c.API.AllowedOrigins == nil {
		c.API.AllowedOrigins = []string{"*"}
	}
	if c.API.RateLimitPerSecond == 0 {
		c.API.RateLimitPerSecond = constants.DefaultRateLimitPerSecond
	}
	if c.API.RateLimitBurst == 0 {
		c.API.RateLimitBurst = constants.DefaultRateLimitBurst
	}
}

// LoadFromEnv loads configuration from environment variables
// Environment variables take precedence over file configuration
func (c *Config) LoadFromEnv() error {
	if path := os.Getenv("STARKLENS_STORE_PATH"); path != "" {
		c.Store.Path = path
	}
	if cache := os.Getenv("STARKLENS_STORE_CACHE"); cache != "" {
		val, err := strconv.Atoi(cache)
		if err != nil {
			return fmt.Errorf("invalid STARKLENS_STORE_CACHE: %w", err)
		}
		c.Store.Cache = val
	}
	if maxOpen := os.Getenv("STARKLENS_STORE_MAX_OPEN_FILES"); maxOpen != "" {
		val, err := strconv.Atoi(maxOpen)
		if err != nil {
			return fmt.Errorf("invalid STARKLENS_STORE_MAX_OPEN_FILES: %w", err)
		}
		c.Store.MaxOpenFiles = val
	}

	if path := os.Getenv("STARKLENS_INDEX_PATH"); path != "" {
		c.Index.Path = path
	}
	if interval := os.Getenv("STARKLENS_INDEX_SYNC_INTERVAL"); interval != "" {
		duration, err := time.ParseDuration(interval)
		if err != nil {
			return fmt.Errorf("invalid STARKLENS_INDEX_SYNC_INTERVAL: %w", err)
		}
		c.Index.SyncInterval = duration
	}
	if autoSync := os.Getenv("STARKLENS_INDEX_AUTO_SYNC"); autoSync != "" {
		val, err := strconv.ParseBool(autoSync)
		if err != nil {
			return fmt.Errorf("invalid STARKLENS_INDEX_AUTO_SYNC: %w", err)
		}
		c.Index.AutoSync = val
	}

	if level := os.Getenv("STARKLENS_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if format := os.Getenv("STARKLENS_LOG_FORMAT"); format != "" {
		c.Log.Format = format
	}

	if host := os.Getenv("STARKLENS_API_HOST"); host != "" {
		c.API.Host = host
	}
	if port := os.Getenv("STARKLENS_API_PORT"); port != "" {
		val, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid STARKLENS_API_PORT: %w", err)
		}
		c.API.Port = val
	}
	if enableCORS := os.Getenv("STARKLENS_API_CORS_ENABLED"); enableCORS != "" {
		val, err := strconv.ParseBool(enableCORS)
		if err != nil {
			return fmt.Errorf("invalid STARKLENS_API_CORS_ENABLED: %w", err)
		}
		c.API.EnableCORS = val
	}
	if allowedOrigins := os.Getenv("STARKLENS_API_CORS_ALLOWED_ORIGINS"); allowedOrigins != "" {
		origins := make([]string, 0)
		for _, origin := range strings.Split(allowedOrigins, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				origins = append(origins, origin)
			}
		}
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		c.API.AllowedOrigins = origins
	}
	if enableRateLimit := os.Getenv("STARKLENS_API_RATE_LIMIT_ENABLED"); enableRateLimit != "" {
		val, err := strconv.ParseBool(enableRateLimit)
		if err != nil {
			return fmt.Errorf("invalid STARKLENS_API_RATE_LIMIT_ENABLED: %w", err)
		}
		c.API.EnableRateLimit = val
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store path is required")
	}
	if c.Index.Path == "" {
		return fmt.Errorf("index path is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Log.Level)
	}

	validLogFormats := map[string]bool{
		"json":    true,
		"console": true,
	}
	if !validLogFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, console", c.Log.Format)
	}

	if c.API.Port < constants.MinPort || c.API.Port > constants.MaxPort {
		return fmt.Errorf("API port must be between %d and %d", constants.MinPort, constants.MaxPort)
	}
	if c.Index.SyncInterval < 0 {
		return fmt.Errorf("sync interval cannot be negative")
	}

	return nil
}

// Load is a convenience method that loads configuration in the following order:
// 1. Set defaults
// 2. Load from file (if provided)
// 3. Load from environment variables (override file)
// 4. Validate
func Load(configFile string) (*Config, error) {
	cfg := NewConfig()

	if configFile != "" {
		if err := cfg.LoadFromFile(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
