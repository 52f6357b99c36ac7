// Package config loads the engine's YAML configuration, adapted from
// objectfs's internal/config.Configuration down to the settings a UFS
// engine instance actually has: where its image file lives, how big to
// size its tables on Init, and how its ambient/domain collaborators
// (logging, externalfs, circuit breaker, retry, metrics) are configured.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Configuration is the complete engine configuration.
type Configuration struct {
	Image      ImageConfig      `yaml:"image"`
	Logging    LoggingConfig    `yaml:"logging"`
	ExternalFS ExternalFSConfig `yaml:"externalfs"`
	Retry      RetryConfig      `yaml:"retry"`
	Circuit    CircuitConfig    `yaml:"circuit"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Health     HealthConfig     `yaml:"health"`
}

// ImageConfig describes the on-disk image file and its table capacities,
// consumed by ufsheader.SizeRequest on first Init.
type ImageConfig struct {
	Path           string `yaml:"path"`
	NumFiles       uint64 `yaml:"num_files"`
	NumAreas       uint64 `yaml:"num_areas"`
	NumNodes       uint64 `yaml:"num_nodes"`
	NumStringBytes uint64 `yaml:"num_string_bytes"`
	// PageSizeOverride is loaded from YAML but nothing reads it:
	// ufsheader's final alignment round-up always uses the host's page
	// size from unix.Getpagesize().
	PageSizeOverride uint64 `yaml:"page_size_override"`
}

// LoggingConfig controls pkg/logging.NewFromConfig.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ExternalFSConfig mirrors externalfs.Config for YAML loading.
type ExternalFSConfig struct {
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"`
	ForcePathStyle bool   `yaml:"force_path_style"`
	MaxRetries     int    `yaml:"max_retries"`

	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`

	EnableCargoShipOptimization bool  `yaml:"enable_cargoship_optimization"`
	MultipartThreshold          int64 `yaml:"multipart_threshold"`
	MultipartChunkSize          int64 `yaml:"multipart_chunk_size"`
	MultipartConcurrency        int   `yaml:"multipart_concurrency"`
}

// RetryConfig mirrors retry.Config for YAML loading.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	Jitter       bool          `yaml:"jitter"`
}

// CircuitConfig mirrors circuit.Config for YAML loading.
type CircuitConfig struct {
	MaxRequests uint32        `yaml:"max_requests"`
	Interval    time.Duration `yaml:"interval"`
	Timeout     time.Duration `yaml:"timeout"`
}

// MetricsConfig mirrors metrics.Config for YAML loading.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}

// HealthConfig mirrors health.Checker's tunable.
type HealthConfig struct {
	HighWaterMark float64 `yaml:"high_water_mark"`
}

// NewDefault returns a configuration with sensible defaults for a
// moderately sized index (see spec.md's Size Budget for the table-count
// reasoning these defaults are scaled from).
func NewDefault() *Configuration {
	return &Configuration{
		Image: ImageConfig{
			Path:           ".ufs/ufs_index",
			NumFiles:       4096,
			NumAreas:       64,
			NumNodes:       8192,
			NumStringBytes: 1 << 20,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		ExternalFS: ExternalFSConfig{
			ForcePathStyle: false,
			MaxRetries:     3,
		},
		Retry: RetryConfig{
			MaxAttempts:  5,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			Jitter:       true,
		},
		Circuit: CircuitConfig{
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     60 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "ufs",
		},
		Health: HealthConfig{
			HighWaterMark: 0.9,
		},
	}
}

// LoadFromFile loads configuration from a YAML file.
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", filename, err)
	}
	return nil
}

// LoadFromEnv overlays environment variable overrides onto c.
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("UFS_IMAGE_PATH"); val != "" {
		c.Image.Path = val
	}
	if val := os.Getenv("UFS_NUM_FILES"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 64); err == nil {
			c.Image.NumFiles = n
		}
	}
	if val := os.Getenv("UFS_NUM_AREAS"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 64); err == nil {
			c.Image.NumAreas = n
		}
	}
	if val := os.Getenv("UFS_NUM_NODES"); val != "" {
		if n, err := strconv.ParseUint(val, 10, 64); err == nil {
			c.Image.NumNodes = n
		}
	}
	if val := os.Getenv("UFS_LOG_LEVEL"); val != "" {
		c.Logging.Level = val
	}
	if val := os.Getenv("UFS_LOG_FILE"); val != "" {
		c.Logging.File = val
	}
	if val := os.Getenv("UFS_EXTERNALFS_BUCKET"); val != "" {
		c.ExternalFS.Bucket = val
	}
	if val := os.Getenv("UFS_EXTERNALFS_REGION"); val != "" {
		c.ExternalFS.Region = val
	}
	if val := os.Getenv("UFS_METRICS_ENABLED"); val != "" {
		c.Metrics.Enabled = strings.ToLower(val) == "true"
	}
	return nil
}

// SaveToFile writes c to filename as YAML, creating parent directories as
// needed.
func (c *Configuration) SaveToFile(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0750); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", filename, err)
	}
	return nil
}

// Validate checks c for internally inconsistent settings.
func (c *Configuration) Validate() error {
	if c.Image.Path == "" {
		return fmt.Errorf("config: image.path must not be empty")
	}
	if c.Image.NumFiles == 0 || c.Image.NumAreas == 0 || c.Image.NumNodes == 0 || c.Image.NumStringBytes == 0 {
		return fmt.Errorf("config: image table capacities must be greater than 0")
	}

	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	ok := false
	for _, level := range validLevels {
		if strings.EqualFold(c.Logging.Level, level) {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("config: invalid logging.level %q (must be one of: %s)",
			c.Logging.Level, strings.Join(validLevels, ", "))
	}

	if c.Health.HighWaterMark <= 0 || c.Health.HighWaterMark > 1 {
		return fmt.Errorf("config: health.high_water_mark must be in (0, 1]")
	}

	return nil
}
