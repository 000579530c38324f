package configs

import (
	"time"

	"github.com/spf13/viper"
)

// SetDefaults sets default configuration values for all components
func SetDefaults(v *viper.Viper) {
	// Ingest engine defaults
	if !v.IsSet("ingest.reconnect_delay") {
		v.Set("ingest.reconnect_delay", 2*time.Second)
	}
	if !v.IsSet("ingest.max_reconnects") {
		v.Set("ingest.max_reconnects", 10)
	}
	if !v.IsSet("ingest.buffer_depth") {
		v.Set("ingest.buffer_depth", 5*time.Second)
	}
	if !v.IsSet("ingest.silence_threshold_db") {
		v.Set("ingest.silence_threshold_db", -40.0)
	}
	if !v.IsSet("ingest.silence_timeout") {
		v.Set("ingest.silence_timeout", 30*time.Second)
	}
	if !v.IsSet("ingest.enable_normalization") {
		v.Set("ingest.enable_normalization", true)
	}
	if !v.IsSet("ingest.target_level_db") {
		// EBU R128 broadcast loudness target
		v.Set("ingest.target_level_db", -23.0)
	}
	if !v.IsSet("ingest.probe_timeout") {
		v.Set("ingest.probe_timeout", 10*time.Second)
	}

	// Source transport defaults
	if !v.IsSet("source.user_agent") {
		v.Set("source.user_agent", "stream-ingest/1.0")
	}
	if !v.IsSet("source.connection_timeout") {
		v.Set("source.connection_timeout", 15*time.Second)
	}
	if !v.IsSet("source.max_redirects") {
		v.Set("source.max_redirects", 5)
	}
	if !v.IsSet("source.verify_tls") {
		v.Set("source.verify_tls", true)
	}
	if !v.IsSet("source.sample_rate") {
		v.Set("source.sample_rate", 48000)
	}
	if !v.IsSet("source.channels") {
		v.Set("source.channels", 2)
	}
	if !v.IsSet("source.buffer_size") {
		v.Set("source.buffer_size", 32768)
	}

	// Metric emission defaults
	if !v.IsSet("metrics.enabled") {
		v.Set("metrics.enabled", false)
	}
	if !v.IsSet("metrics.interval") {
		v.Set("metrics.interval", 10*time.Second)
	}
	if !v.IsSet("metrics.log_file") {
		v.Set("metrics.log_file", "/tmp/stream-ingest-metrics.log")
	}
}

// GetDefaultConfig returns a complete default configuration
func GetDefaultConfig() *Config {
	return &Config{
		Verbose:      false,
		LogLevel:     "info",
		OutputFormat: "table",
		Ingest:       GetDefaultIngestConfig(),
		Source:       GetDefaultSourceConfig(),
		Metrics:      GetDefaultMetricsConfig(),
	}
}

// GetDefaultIngestConfig returns default ingest engine settings
func GetDefaultIngestConfig() IngestConfig {
	return IngestConfig{
		ReconnectDelay:      2 * time.Second,
		MaxReconnects:       10,
		BufferDepth:         5 * time.Second,
		SilenceThresholdDB:  -40.0,
		SilenceTimeout:      30 * time.Second,
		EnableNormalization: true,
		TargetLevelDB:       -23.0,
		ProbeTimeout:        10 * time.Second,
	}
}

// GetDefaultSourceConfig returns default source transport settings
func GetDefaultSourceConfig() SourceConfig {
	return SourceConfig{
		UserAgent:         "stream-ingest/1.0",
		ConnectionTimeout: 15 * time.Second,
		MaxRedirects:      5,
		VerifyTLS:         true,
		SampleRate:        48000,
		Channels:          2,
		BufferSize:        32768,
	}
}

// GetDefaultMetricsConfig returns default metric emission settings
func GetDefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:  false,
		Interval: 10 * time.Second,
		LogFile:  "/tmp/stream-ingest-metrics.log",
	}
}
