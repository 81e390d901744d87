package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete recorder configuration
type Config struct {
	Recording RecordingConfig `yaml:"recording"`
	Storage   StorageConfig   `yaml:"storage"`
	OSS       OSSConfig       `yaml:"oss"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// RecordingConfig contains recording pipeline settings
type RecordingConfig struct {
	// Formats lists the output encodings produced for every recording.
	Formats []string `yaml:"formats"`
	// ChunkSize is the number of samples batched into one fan-out write.
	ChunkSize int `yaml:"chunk_size"`
	// BufferSize is the per-file write buffer in bytes.
	BufferSize int `yaml:"buffer_size"`
}

// StorageConfig contains local recording storage settings
type StorageConfig struct {
	OutputDirectory string        `yaml:"output_directory"`
	Retention       time.Duration `yaml:"retention"`
	CleanupEnabled  bool          `yaml:"cleanup_enabled"`
}

// OSSConfig contains Alibaba Cloud OSS settings
type OSSConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Endpoint        string        `yaml:"endpoint"`
	Bucket          string        `yaml:"bucket"`
	AccessKeyID     string        `yaml:"access_key_id"`
	AccessKeySecret string        `yaml:"access_key_secret"`
	PartSize        int64         `yaml:"part_size"`
	SignedURLExpiry time.Duration `yaml:"signed_url_expiry"`
	MaxRetries      int           `yaml:"max_retries"`
	ParallelUploads int           `yaml:"parallel_uploads"`
	UploadTimeout   time.Duration `yaml:"upload_timeout"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	Output        string `yaml:"output"`
	EnableTracing bool   `yaml:"enable_tracing"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Recording: RecordingConfig{
			Formats:    []string{"json", "csv", "binary"},
			ChunkSize:  256,
			BufferSize: 64 * 1024, // 64KB
		},
		Storage: StorageConfig{
			OutputDirectory: "./recordings",
			Retention:       7 * 24 * time.Hour,
			CleanupEnabled:  false,
		},
		OSS: OSSConfig{
			Enabled:         false,
			PartSize:        10 * 1024 * 1024, // 10MB
			SignedURLExpiry: 7 * 24 * time.Hour,
			MaxRetries:      3,
			ParallelUploads: 4,
			UploadTimeout:   30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "json",
			Output:        "stdout",
			EnableTracing: false,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// If config file doesn't exist, return default config
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid configuration: %w", err)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if set
	cfg.applyEnvOverrides()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() {
	if val := os.Getenv("OSS_ENDPOINT"); val != "" {
		c.OSS.Endpoint = val
	}
	if val := os.Getenv("OSS_BUCKET"); val != "" {
		c.OSS.Bucket = val
	}
	if val := os.Getenv("OSS_ACCESS_KEY_ID"); val != "" {
		c.OSS.AccessKeyID = val
	}
	if val := os.Getenv("OSS_ACCESS_KEY_SECRET"); val != "" {
		c.OSS.AccessKeySecret = val
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Logging.Level = val
	}
	if val := os.Getenv("OUTPUT_DIRECTORY"); val != "" {
		c.Storage.OutputDirectory = val
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Recording.Formats) == 0 {
		return fmt.Errorf("at least one recording format is required")
	}
	if c.Recording.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive")
	}
	if c.Recording.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive")
	}
	if c.Storage.OutputDirectory == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.OSS.Enabled {
		if c.OSS.Endpoint == "" {
			return fmt.Errorf("OSS endpoint is required")
		}
		if c.OSS.Bucket == "" {
			return fmt.Errorf("OSS bucket is required")
		}
		if c.OSS.AccessKeyID == "" {
			return fmt.Errorf("OSS access key ID is required")
		}
		if c.OSS.AccessKeySecret == "" {
			return fmt.Errorf("OSS access key secret is required")
		}
	}
	return nil
}
