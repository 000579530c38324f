package stream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/stream-ingest/pkg/stream/common"
	"github.com/RyanBlaney/stream-ingest/pkg/stream/urlparse"
)

// ProbeConfig holds settings for the reachability probe
type ProbeConfig struct {
	Timeout   time.Duration `json:"timeout"`
	UserAgent string        `json:"user_agent"`
}

// DefaultProbeConfig returns the default probe settings
func DefaultProbeConfig() *ProbeConfig {
	return &ProbeConfig{
		Timeout:   10 * time.Second,
		UserAgent: "stream-ingest/1.0",
	}
}

// Probe performs a lightweight HEAD reachability check against a
// stream URL before a full connection is attempted. Only 2xx and 206
// responses permit a connection attempt. The URL must already have
// passed validation; a malformed URL is rejected here as well rather
// than sent to the network.
func Probe(ctx context.Context, client *http.Client, streamURL string, cfg *ProbeConfig) error {
	if cfg == nil {
		cfg = DefaultProbeConfig()
	}

	if !urlparse.IsValidStreamURL(streamURL) {
		return common.NewStreamError(
			common.StreamTypeUnsupported, streamURL, common.ErrCodeInvalidURL,
			"stream URL failed validation", nil,
		)
	}

	probeCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, probeURL(streamURL), nil)
	if err != nil {
		return common.NewStreamError(
			common.StreamTypeICEcast, streamURL, common.ErrCodeProbe,
			"failed to create probe request", err,
		)
	}

	// ICEcast-compatible headers; some servers reject unknown agents
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Icy-MetaData", "1")

	resp, err := client.Do(req)
	if err != nil {
		return common.NewStreamError(
			common.StreamTypeICEcast, streamURL, common.ErrCodeProbe,
			"stream reachability probe failed", err,
		)
	}
	defer resp.Body.Close()

	if (resp.StatusCode >= 200 && resp.StatusCode < 300) || resp.StatusCode == http.StatusPartialContent {
		logging.Debug("Stream probe successful", logging.Fields{
			"url":          streamURL,
			"status":       resp.StatusCode,
			"content_type": resp.Header.Get("Content-Type"),
			"server":       resp.Header.Get("Server"),
		})
		return nil
	}

	return common.NewStreamError(
		common.StreamTypeICEcast, streamURL, common.ErrCodeProbe,
		fmt.Sprintf("probe returned status %d", resp.StatusCode), nil,
	)
}

// probeURL maps icecast/shoutcast schemes onto plain HTTP for the
// probe request; those servers speak HTTP on the same port.
func probeURL(streamURL string) string {
	parsed := urlparse.Parse(streamURL)
	switch parsed.Protocol {
	case "icecast", "shoutcast":
		url := fmt.Sprintf("http://%s:%d%s", parsed.Hostname, parsed.Port, parsed.Path)
		if parsed.Query != "" {
			url += "?" + parsed.Query
		}
		return url
	default:
		return streamURL
	}
}
