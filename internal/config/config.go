// ABOUTME: Configuration management for bookrec with YAML config loading.
// ABOUTME: Handles server, embedding provider, cache, catalog, and log settings plus env overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvAPIKey       = "BOOKREC_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvRedisURL     = "BOOKREC_REDIS_URL"
)

// Config stores bookrec configuration loaded from ~/.config/bookrec/config.yaml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Cache     CacheConfig     `yaml:"cache"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// RateLimit is recommend requests per minute per client IP; 0 disables it.
	RateLimit int `yaml:"rate_limit"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider"`
	URL               string        `yaml:"url"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"api_key"`
	// Dimension is the expected vector length; 0 lets the provider decide.
	Dimension         int           `yaml:"dimension"`
	Timeout           time.Duration `yaml:"timeout"`
	Serialize         bool          `yaml:"serialize"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	BreakerFailures   uint32        `yaml:"breaker_failures"`
}

// CacheConfig holds the optional Redis query cache settings.
type CacheConfig struct {
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

// CatalogConfig holds optional catalog and vector snapshot paths.
type CatalogConfig struct {
	Path         string `yaml:"path"`
	SnapshotPath string `yaml:"snapshot_path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":5002", RateLimit: 60},
		Embedding: EmbeddingConfig{
			Provider:        "hash",
			Dimension:       1024,
			Timeout:         30 * time.Second,
			BreakerFailures: 5,
		},
		Cache: CacheConfig{TTL: 24 * time.Hour},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// HasCache returns true if a Redis query cache is configured.
func (c *Config) HasCache() bool {
	return c.Cache.RedisURL != ""
}

// GetCatalogPath returns the expanded catalog path, or "" for the built-in catalog.
func (c *Config) GetCatalogPath() (string, error) {
	return ExpandPath(c.Catalog.Path)
}

// GetSnapshotPath returns the expanded vector snapshot path, or "" when disabled.
func (c *Config) GetSnapshotPath() (string, error) {
	return ExpandPath(c.Catalog.SnapshotPath)
}

// Validate rejects settings the provider stack cannot honor.
func (c *Config) Validate() error {
	var errs []error
	switch c.Embedding.Provider {
	case "hash", "ollama", "openai":
	default:
		errs = append(errs, fmt.Errorf("embedding.provider: unknown provider %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimension < 0 {
		errs = append(errs, fmt.Errorf("embedding.dimension must not be negative, got %d", c.Embedding.Dimension))
	}
	if c.Embedding.Timeout < 0 {
		errs = append(errs, errors.New("embedding.timeout must not be negative"))
	}
	if c.Embedding.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("embedding.requests_per_second must not be negative"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rate_limit must not be negative"))
	}
	return errors.Join(errs...)
}

// GetConfigPath returns the config file path.
func GetConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "bookrec", "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// Load reads config from disk, then applies .env and environment overrides.
// Returns the default config if the file doesn't exist.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile reads a single YAML file over the defaults without env overrides.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Embedding.APIKey = v
	} else if v := os.Getenv(EnvOpenAIAPIKey); v != "" && c.Embedding.APIKey == "" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Cache.RedisURL = v
	}
}

// Save writes config to disk.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
