package ingest

import (
	"fmt"
	"math"
	"time"

	"github.com/RyanBlaney/stream-ingest/pkg/stream/urlparse"
)

// Config is the engine configuration. It is treated as an immutable
// snapshot: the engine publishes it behind an atomic pointer and
// replaces it wholesale on update, so concurrent readers always see a
// wholly-old or wholly-new configuration.
type Config struct {
	PrimaryURL          string        `json:"primary_url" mapstructure:"primary_url"`
	FallbackURLs        []string      `json:"fallback_urls" mapstructure:"fallback_urls"`
	ReconnectDelay      time.Duration `json:"reconnect_delay" mapstructure:"reconnect_delay"`
	MaxReconnects       int           `json:"max_reconnects" mapstructure:"max_reconnects"`
	BufferDepth         time.Duration `json:"buffer_depth" mapstructure:"buffer_depth"`
	SilenceThresholdDB  float64       `json:"silence_threshold_db" mapstructure:"silence_threshold_db"`
	SilenceTimeout      time.Duration `json:"silence_timeout" mapstructure:"silence_timeout"`
	EnableNormalization bool          `json:"enable_normalization" mapstructure:"enable_normalization"`
	TargetLevelDB       float64       `json:"target_level_db" mapstructure:"target_level_db"`
	ProbeTimeout        time.Duration `json:"probe_timeout" mapstructure:"probe_timeout"`
	UserAgent           string        `json:"user_agent" mapstructure:"user_agent"`
	VerifyTLS           bool          `json:"verify_tls" mapstructure:"verify_tls"`
}

// DefaultConfig returns the default engine configuration. The target
// level follows the EBU R128 broadcast loudness convention.
func DefaultConfig() *Config {
	return &Config{
		ReconnectDelay:      2 * time.Second,
		MaxReconnects:       10,
		BufferDepth:         5 * time.Second,
		SilenceThresholdDB:  -40.0,
		SilenceTimeout:      30 * time.Second,
		EnableNormalization: true,
		TargetLevelDB:       -23.0,
		ProbeTimeout:        10 * time.Second,
		UserAgent:           "stream-ingest/1.0",
		VerifyTLS:           true,
	}
}

// Validate checks the configuration for use by the engine
func (c *Config) Validate() error {
	if c.PrimaryURL == "" {
		return fmt.Errorf("primary URL is required")
	}
	if !urlparse.IsValidStreamURL(c.PrimaryURL) {
		return fmt.Errorf("primary URL is not a valid stream URL: %s", urlparse.Sanitize(c.PrimaryURL))
	}

	for i, fallback := range c.FallbackURLs {
		if !urlparse.IsValidStreamURL(fallback) {
			return fmt.Errorf("fallback URL %d is not a valid stream URL: %s", i, urlparse.Sanitize(fallback))
		}
	}

	if c.ReconnectDelay < 0 {
		return fmt.Errorf("reconnect delay cannot be negative")
	}
	if c.SilenceTimeout < 0 {
		return fmt.Errorf("silence timeout cannot be negative")
	}
	if c.ProbeTimeout < 0 {
		return fmt.Errorf("probe timeout cannot be negative")
	}
	if c.MaxReconnects < 0 {
		return fmt.Errorf("max reconnects cannot be negative")
	}

	if math.IsNaN(c.SilenceThresholdDB) || math.IsInf(c.SilenceThresholdDB, 0) {
		return fmt.Errorf("silence threshold must be a finite dB value")
	}
	if math.IsNaN(c.TargetLevelDB) || math.IsInf(c.TargetLevelDB, 0) {
		return fmt.Errorf("target level must be a finite dB value")
	}

	return nil
}

// Clone returns a deep copy. The engine stores clones so a caller
// mutating its own Config afterwards cannot disturb a published
// snapshot.
func (c *Config) Clone() *Config {
	clone := *c
	clone.FallbackURLs = make([]string, len(c.FallbackURLs))
	copy(clone.FallbackURLs, c.FallbackURLs)
	return &clone
}
