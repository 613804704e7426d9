// Package config loads the per-environment YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the venuedex configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Index      IndexConfig      `yaml:"index"`
	Store      StoreConfig      `yaml:"store"`
	Pagination PaginationConfig `yaml:"pagination"`
	Changelog  ChangelogConfig  `yaml:"changelog"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"` // empty disables auth
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// IndexConfig holds search index settings.
type IndexConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Name             string   `yaml:"name"`
	KeyPrefix        string   `yaml:"key_prefix"`
	TimeoutMs        int      `yaml:"timeout_ms"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	BatchSize        int      `yaml:"batch_size"`
	Concurrency      int      `yaml:"concurrency"`
}

// Timeout is the per-round-trip index timeout.
func (c IndexConfig) Timeout() time.Duration { return time.Duration(c.TimeoutMs) * time.Millisecond }

// StoreConfig holds the relational store settings.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// PaginationConfig holds listing page sizes.
type PaginationConfig struct {
	SearchDefaultLimit  int `yaml:"search_default_limit"`
	ListingDefaultLimit int `yaml:"listing_default_limit"`
	MaxLimit            int `yaml:"max_limit"`
}

// ChangelogConfig selects how committed writes reach the index.
type ChangelogConfig struct {
	Mode    string `yaml:"mode"` // inline, nats (default: inline)
	URL     string `yaml:"url"`
	Stream  string `yaml:"stream"`
	Subject string `yaml:"subject"`
	Durable string `yaml:"durable"`
}

// Index drivers.
const (
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Changelog modes.
const (
	ChangelogInline = "inline"
	ChangelogNATS   = "nats"
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Index.Driver == "" {
		c.Index.Driver = DriverRedis
	}
	if c.Index.Name == "" {
		c.Index.Name = "venues-idx"
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "venue:"
	}
	if c.Index.TimeoutMs <= 0 {
		c.Index.TimeoutMs = 2000
	}
	if c.Index.ReadinessTimeout <= 0 {
		c.Index.ReadinessTimeout = 10
	}
	if c.Index.BatchSize <= 0 {
		c.Index.BatchSize = 200
	}
	if c.Index.Concurrency <= 0 {
		c.Index.Concurrency = 4
	}
	if c.Store.Path == "" {
		c.Store.Path = "venuedex.db"
	}
	if c.Pagination.SearchDefaultLimit <= 0 {
		c.Pagination.SearchDefaultLimit = 10
	}
	if c.Pagination.ListingDefaultLimit <= 0 {
		c.Pagination.ListingDefaultLimit = 20
	}
	if c.Pagination.MaxLimit <= 0 {
		c.Pagination.MaxLimit = 100
	}
	if c.Changelog.Mode == "" {
		c.Changelog.Mode = ChangelogInline
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Index.Driver {
	case DriverRedis:
		if len(c.Index.Addrs) == 0 {
			return fmt.Errorf("index.addrs is required for the redis driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("index.driver must be %q or %q, got %q", DriverRedis, DriverMemory, c.Index.Driver)
	}
	for _, l := range []int{c.Pagination.SearchDefaultLimit, c.Pagination.ListingDefaultLimit} {
		if l > c.Pagination.MaxLimit {
			return fmt.Errorf("pagination default limit %d exceeds max_limit %d", l, c.Pagination.MaxLimit)
		}
	}
	if !slices.Contains([]string{ChangelogInline, ChangelogNATS}, c.Changelog.Mode) {
		return fmt.Errorf("changelog.mode must be %q or %q, got %q", ChangelogInline, ChangelogNATS, c.Changelog.Mode)
	}
	if c.Changelog.Mode == ChangelogNATS && c.Changelog.URL == "" {
		return fmt.Errorf("changelog.url is required for nats mode")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
