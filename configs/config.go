package configs

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose      bool   `mapstructure:"verbose"`
	LogLevel     string `mapstructure:"log_level"`
	OutputFormat string `mapstructure:"output_format"`
	ConfigDir    string `mapstructure:"config_dir"`

	// Ingest engine configuration
	Ingest IngestConfig `mapstructure:"ingest"`

	// Source transport configuration
	Source SourceConfig `mapstructure:"source"`

	// Metric emission configuration
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// IngestConfig contains the stream engine settings
type IngestConfig struct {
	PrimaryURL          string        `mapstructure:"primary_url"`
	FallbackURLs        []string      `mapstructure:"fallback_urls"`
	ReconnectDelay      time.Duration `mapstructure:"reconnect_delay"`
	MaxReconnects       int           `mapstructure:"max_reconnects"`
	BufferDepth         time.Duration `mapstructure:"buffer_depth"`
	SilenceThresholdDB  float64       `mapstructure:"silence_threshold_db"`
	SilenceTimeout      time.Duration `mapstructure:"silence_timeout"`
	EnableNormalization bool          `mapstructure:"enable_normalization"`
	TargetLevelDB       float64       `mapstructure:"target_level_db"`
	ProbeTimeout        time.Duration `mapstructure:"probe_timeout"`
}

// SourceConfig contains source transport settings
type SourceConfig struct {
	UserAgent         string        `mapstructure:"user_agent"`
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout"`
	MaxRedirects      int           `mapstructure:"max_redirects"`
	VerifyTLS         bool          `mapstructure:"verify_tls"`
	SampleRate        int           `mapstructure:"sample_rate"`
	Channels          int           `mapstructure:"channels"`
	BufferSize        int           `mapstructure:"buffer_size"`
}

// MetricsConfig contains metric emission settings
type MetricsConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	LogFile  string        `mapstructure:"log_file"`
	Tags     []string      `mapstructure:"tags"`
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	config := &Config{}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config.Ingest.ReconnectDelay < 0 {
		return fmt.Errorf("reconnect delay cannot be negative")
	}

	if config.Ingest.MaxReconnects < 0 {
		return fmt.Errorf("max reconnects cannot be negative")
	}

	if config.Source.SampleRate <= 0 {
		return fmt.Errorf("source sample rate must be positive")
	}

	if config.Source.Channels <= 0 {
		return fmt.Errorf("source channels must be positive")
	}

	if config.Metrics.Enabled && config.Metrics.Interval <= 0 {
		return fmt.Errorf("metrics interval must be positive when metrics are enabled")
	}

	return nil
}
