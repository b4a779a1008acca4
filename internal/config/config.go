// Package config provides unified configuration for the Strata engine and tools.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the engine configuration.
type Config struct {
	// DataDir is the base namespace for dataset containers and the catalog
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// Lock configures the container file lock retry budget
	Lock LockConfig `json:"lock" yaml:"lock"`

	// Storage configures the snapshot storage backend
	Storage StorageConfig `json:"storage" yaml:"storage"`
}

// LockConfig holds the lock acquisition retry budget. A contended
// operation blocks for at most (retry_count+1) x wait before failing.
type LockConfig struct {
	// RetryCount is the number of retries after the first failed attempt
	RetryCount int `json:"retry_count" yaml:"retry_count"`

	// WriteRetryWait is the sleep between exclusive-lock attempts
	WriteRetryWait time.Duration `json:"write_retry_wait" yaml:"write_retry_wait"`

	// ReadRetryWait is the sleep between shared-lock attempts
	ReadRetryWait time.Duration `json:"read_retry_wait" yaml:"read_retry_wait"`
}

// StorageConfig holds snapshot storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/strata",
		Lock: LockConfig{
			RetryCount:     10,
			WriteRetryWait: 500 * time.Millisecond,
			ReadRetryWait:  200 * time.Millisecond,
		},
		Storage: StorageConfig{
			Type: "local",
			Path: "",
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/strata"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "snapshots")
	}
	if c.Lock.RetryCount <= 0 {
		c.Lock.RetryCount = 10
	}
	if c.Lock.WriteRetryWait <= 0 {
		c.Lock.WriteRetryWait = 500 * time.Millisecond
	}
	if c.Lock.ReadRetryWait <= 0 {
		c.Lock.ReadRetryWait = 200 * time.Millisecond
	}
}

// DatasetDir returns the directory holding dataset containers.
func (c *Config) DatasetDir() string {
	return filepath.Join(c.DataDir, "datasets")
}

// CatalogPath returns the path to the dataset catalog database.
func (c *Config) CatalogPath() string {
	return filepath.Join(c.DataDir, "catalog.db")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}

	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the STRATA_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("STRATA_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Lock configuration
	if v := os.Getenv("STRATA_LOCK_RETRY_COUNT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Lock.RetryCount)
	}
	if v := os.Getenv("STRATA_LOCK_WRITE_RETRY_WAIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Lock.WriteRetryWait = d
		}
	}
	if v := os.Getenv("STRATA_LOCK_READ_RETRY_WAIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Lock.ReadRetryWait = d
		}
	}

	// Storage configuration
	if v := os.Getenv("STRATA_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("STRATA_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("STRATA_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("STRATA_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("STRATA_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		c.DatasetDir(),
	}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
