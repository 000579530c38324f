package ingest

import (
	"fmt"
	"time"
)

// QualityMetrics is the shared quality state of the stream. All fields
// are updated as a group under one lock; accessors return value
// snapshots so observers never see a half-updated combination.
type QualityMetrics struct {
	SNRDB          float64   `json:"snr_db"`
	PeakLevel      float64   `json:"peak_level"`
	RMSLevel       float64   `json:"rms_level"`
	BufferHealth   int       `json:"buffer_health"`
	Silence        bool      `json:"is_silence"`
	ReconnectCount int64     `json:"reconnect_count"`
	UnderrunCount  int64     `json:"underrun_count"`
	LastAudio      time.Time `json:"last_audio"`
	SessionStart   time.Time `json:"session_start"`
}

// Statistics is the monitoring counter snapshot
type Statistics struct {
	TotalSamplesProcessed int64     `json:"total_samples_processed"`
	TotalReconnects       int64     `json:"total_reconnects"`
	TotalBufferUnderruns  int64     `json:"total_buffer_underruns"`
	UptimeStart           time.Time `json:"uptime_start"`
	AverageBitrateKbps    float64   `json:"average_bitrate_kbps"`
	CurrentLatencyMs      float64   `json:"current_latency_ms"`
}

// Endpoint identifies the active stream endpoint as either the primary
// or one of the fallbacks. A tagged value instead of a signed index, so
// round-robin wrapping cannot produce sentinel bugs.
type Endpoint struct {
	fallback bool
	index    int
}

// PrimaryEndpoint returns the endpoint value for the primary URL
func PrimaryEndpoint() Endpoint {
	return Endpoint{}
}

// FallbackEndpoint returns the endpoint value for fallback i
func FallbackEndpoint(i int) Endpoint {
	return Endpoint{fallback: true, index: i}
}

// IsPrimary reports whether this endpoint is the primary URL
func (e Endpoint) IsPrimary() bool {
	return !e.fallback
}

// FallbackIndex returns the fallback list index and whether the
// endpoint is a fallback at all
func (e Endpoint) FallbackIndex() (int, bool) {
	if !e.fallback {
		return 0, false
	}
	return e.index, true
}

// NextFallback returns the fallback endpoint the round-robin would try
// next: the first fallback when on primary, otherwise the next index
// modulo the list length.
func (e Endpoint) NextFallback(count int) Endpoint {
	if count <= 0 {
		return e
	}
	if !e.fallback {
		return FallbackEndpoint(0)
	}
	return FallbackEndpoint((e.index + 1) % count)
}

// URL resolves the endpoint against a configuration snapshot. An
// out-of-range fallback index yields an empty string.
func (e Endpoint) URL(cfg *Config) string {
	if !e.fallback {
		return cfg.PrimaryURL
	}
	if e.index < len(cfg.FallbackURLs) {
		return cfg.FallbackURLs[e.index]
	}
	return ""
}

func (e Endpoint) String() string {
	if !e.fallback {
		return "primary"
	}
	return fmt.Sprintf("fallback[%d]", e.index)
}

// Health issue descriptions, suitable for direct display by the
// front-end collaborator
const (
	IssueDisconnected      = "Stream disconnected"
	IssueProlongedSilence  = "Prolonged silence detected"
	IssueFrequentUnderruns = "Frequent buffer underruns"
	IssueLowAudioLevel     = "Very low audio level"
)
