// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for graft configuration.
	DefaultConfigDir = ".graft"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultNamespace is used when neither config nor environment names
	// one.
	DefaultNamespace = "default"
)

// Provider names selectable in configuration.
const (
	ProviderMemory = "memory"
	ProviderSQLite = "sqlite"
	ProviderHTTP   = "http"
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	Namespace  string           `yaml:"namespace,omitempty"`
	Provider   string           `yaml:"provider,omitempty"`
	SQLite     SQLiteConfig     `yaml:"sqlite,omitempty"`
	HTTP       HTTPConfig       `yaml:"http,omitempty"`
	Blob       BlobConfig       `yaml:"blob,omitempty"`
	Durability DurabilityConfig `yaml:"durability,omitempty"`
}

// SQLiteConfig holds configuration for the SQLite store provider.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database.
	Path string `yaml:"path,omitempty"`
}

// HTTPConfig holds configuration for the HTTP-client store provider.
type HTTPConfig struct {
	// BaseURL is the root of the remote graft server.
	BaseURL string `yaml:"base_url,omitempty"`
}

// BlobConfig holds configuration for the blob store the durability layer
// writes to.
type BlobConfig struct {
	// Root is the directory of the filesystem blob store.
	Root string `yaml:"root,omitempty"`
}

// DurabilityConfig controls snapshot and WAL behavior.
type DurabilityConfig struct {
	// WALEnabled journals every mutation through the blob store.
	WALEnabled bool `yaml:"wal_enabled,omitempty"`
	// SnapshotTimestamped writes snapshots under timestamped keys
	// instead of the fixed latest key.
	SnapshotTimestamped bool `yaml:"snapshot_timestamped,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Namespace: DefaultNamespace,
		Provider:  ProviderMemory,
		SQLite: SQLiteConfig{
			Path: filepath.Join(DefaultConfigDir, "graft.db"),
		},
		Blob: BlobConfig{
			Root: filepath.Join(DefaultConfigDir, "blobs"),
		},
	}
}

// Load loads configuration from the .graft directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'graft init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if ns := os.Getenv("GRAFT_NAMESPACE"); ns != "" {
		c.Namespace = ns
	}
	if provider := os.Getenv("GRAFT_PROVIDER"); provider != "" {
		c.Provider = provider
	}
	if base := os.Getenv("GRAFT_HTTP_BASE_URL"); base != "" {
		c.HTTP.BaseURL = base
	}
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderMemory, ProviderSQLite, ProviderHTTP:
	default:
		return fmt.Errorf("unknown provider %q (want %s, %s or %s)", c.Provider, ProviderMemory, ProviderSQLite, ProviderHTTP)
	}
	if c.Provider == ProviderHTTP && c.HTTP.BaseURL == "" {
		return fmt.Errorf("provider %q requires http.base_url", c.Provider)
	}
	if c.Namespace == "" {
		return fmt.Errorf("namespace must not be empty")
	}
	return nil
}
