// Package config provides configuration loading and management for pressflow.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete pressflow configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Webhook WebhookConfig `yaml:"webhook"`
	Titles  TitlesConfig  `yaml:"titles"`
	Store   StoreConfig   `yaml:"store"`
	Redis   RedisConfig   `yaml:"redis"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address (default :8080).
	Addr string `yaml:"addr"`
	// FlushDelay is the debounce window before dirty session state is
	// written to the article store.
	FlushDelay time.Duration `yaml:"flush_delay"`
}

// WebhookConfig configures the n8n submission endpoint.
type WebhookConfig struct {
	// URL is the automation webhook endpoint.
	URL string `yaml:"url"`
	// AuthMethod labels how the caller is authenticated in chunk
	// payloads, for the receiving workflow to branch on.
	AuthMethod string `yaml:"auth_method"`
	// Timeout bounds the consolidated submission request.
	Timeout time.Duration `yaml:"timeout"`
	// ChunkSize is the single source of truth for upload chunking.
	ChunkSize int64 `yaml:"chunk_size"`
	// ChunkConcurrency caps chunks in flight at once.
	ChunkConcurrency int `yaml:"chunk_concurrency"`
	// ChunkRetries is the attempt budget per chunk.
	ChunkRetries int `yaml:"chunk_retries"`
	// ChunkBackoff is the initial retry delay, doubling per attempt.
	ChunkBackoff time.Duration `yaml:"chunk_backoff"`
}

// TitlesConfig configures the title suggestion endpoint and polling.
type TitlesConfig struct {
	// Endpoint is the hosted title suggestion function.
	Endpoint string `yaml:"endpoint"`
	// APIKey authenticates against the endpoint.
	APIKey string `yaml:"api_key"`
	// Timeout bounds a single fetch.
	Timeout time.Duration `yaml:"timeout"`
	// PollInitial is the cadence before any titles exist.
	PollInitial time.Duration `yaml:"poll_initial"`
	// PollSteady is the cadence once titles have been obtained.
	PollSteady time.Duration `yaml:"poll_steady"`
	// PollErrored is the cadence after a failed attempt.
	PollErrored time.Duration `yaml:"poll_errored"`
	// MinInterval is the floor between any two fetches.
	MinInterval time.Duration `yaml:"min_interval"`
	// CacheTTL bounds the fallback cache entries.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// StoreConfig configures the hosted row store (PostgREST conventions).
type StoreConfig struct {
	// URL is the REST base, e.g. https://xyz.supabase.co/rest/v1.
	URL string `yaml:"url"`
	// APIKey is sent as both apikey and bearer token.
	APIKey string `yaml:"api_key"`
	// Timeout bounds each row operation.
	Timeout time.Duration `yaml:"timeout"`
}

// RedisConfig configures session state and title cache storage.
// An empty Addr selects the in-memory adapters.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// SessionTTL expires abandoned sessions.
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// StorageConfig configures bucket uploads.
type StorageConfig struct {
	// Endpoint is the object storage API base.
	Endpoint string `yaml:"endpoint"`
	// Bucket receives uploaded source files.
	Bucket string `yaml:"bucket"`
	// APIKey authenticates uploads.
	APIKey string `yaml:"api_key"`
	// SignedURLTTL is the lifetime of playback/download links.
	SignedURLTTL time.Duration `yaml:"signed_url_ttl"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       ":8080",
			FlushDelay: 2 * time.Second,
		},
		Webhook: WebhookConfig{
			AuthMethod:       "session",
			Timeout:          30 * time.Second,
			ChunkSize:        5 * 1024 * 1024,
			ChunkConcurrency: 3,
			ChunkRetries:     3,
			ChunkBackoff:     time.Second,
		},
		Titles: TitlesConfig{
			Timeout:     8 * time.Second,
			PollInitial: 5 * time.Second,
			PollSteady:  30 * time.Second,
			PollErrored: 10 * time.Second,
			MinInterval: 5 * time.Second,
			CacheTTL:    time.Hour,
		},
		Store: StoreConfig{
			Timeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			SessionTTL: 24 * time.Hour,
		},
		Storage: StorageConfig{
			Bucket:       "article-sources",
			SignedURLTTL: time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Webhook.URL == "" {
		return fmt.Errorf("webhook.url is required")
	}
	if c.Webhook.ChunkSize <= 0 {
		return fmt.Errorf("webhook.chunk_size must be positive")
	}
	if c.Webhook.ChunkConcurrency <= 0 {
		return fmt.Errorf("webhook.chunk_concurrency must be positive")
	}
	if c.Titles.Endpoint == "" {
		return fmt.Errorf("titles.endpoint is required")
	}
	if c.Titles.MinInterval <= 0 {
		return fmt.Errorf("titles.min_interval must be positive")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file, starting from the
// defaults so omitted fields keep sensible values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
