package icecast

import (
	"time"
)

// Config holds configuration for the ICEcast source
type Config struct {
	HTTP  *HTTPConfig  `json:"http"`
	Audio *AudioConfig `json:"audio"`
}

// HTTPConfig holds HTTP-related configuration
type HTTPConfig struct {
	UserAgent         string        `json:"user_agent"`
	AcceptHeader      string        `json:"accept_header"`
	ConnectionTimeout time.Duration `json:"connection_timeout"`
	MaxRedirects      int           `json:"max_redirects"`
	RequestICYMeta    bool          `json:"request_icy_meta"`
	VerifyTLS         bool          `json:"verify_tls"`
}

// AudioConfig holds audio-related configuration. The payload is
// already-decoded interleaved s16le PCM; no codec handling happens
// here.
type AudioConfig struct {
	SampleRate int `json:"sample_rate"`
	Channels   int `json:"channels"`
	BufferSize int `json:"buffer_size"`
}

// DefaultConfig returns the default ICEcast source configuration
func DefaultConfig() *Config {
	return &Config{
		HTTP: &HTTPConfig{
			UserAgent:         "stream-ingest/1.0",
			AcceptHeader:      "audio/*,*/*",
			ConnectionTimeout: 15 * time.Second,
			MaxRedirects:      5,
			RequestICYMeta:    true,
			VerifyTLS:         true,
		},
		Audio: &AudioConfig{
			SampleRate: 48000,
			Channels:   2,
			BufferSize: 32768,
		},
	}
}

// GetHTTPHeaders returns configured HTTP headers for ICEcast requests
func (httpConfig *HTTPConfig) GetHTTPHeaders() map[string]string {
	headers := map[string]string{
		"User-Agent": httpConfig.UserAgent,
		"Accept":     httpConfig.AcceptHeader,
	}

	if httpConfig.RequestICYMeta {
		headers["Icy-MetaData"] = "1"
	}

	return headers
}
