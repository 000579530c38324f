package ingest

import (
	"context"
	"net/http"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/stream-ingest/pkg/stream"
	"github.com/RyanBlaney/stream-ingest/pkg/stream/urlparse"
)

const (
	// monitorInterval is the health-check tick while connected
	monitorInterval = 1 * time.Second

	// underrunThreshold is the source buffer fill below which a tick
	// counts as an underrun
	underrunThreshold = 20
)

// probeFunc performs the reachability check before a full connection
// attempt. Swappable so engine tests run without a network.
type probeFunc func(ctx context.Context, url string, cfg *Config) error

func newHTTPProbe(client *http.Client) probeFunc {
	return func(ctx context.Context, url string, cfg *Config) error {
		return stream.Probe(ctx, client, url, &stream.ProbeConfig{
			Timeout:   cfg.ProbeTimeout,
			UserAgent: cfg.UserAgent,
		})
	}
}

// monitor is the background health loop. It runs until Stop closes
// stopCh: while disconnected it drives reconnection (primary first
// when coming off a fallback, then the fallbacks round-robin, honoring
// the reconnect delay between attempts); while connected it watches
// for prolonged silence and buffer underruns. Every wait is
// interruptible so shutdown never blocks on a sleeping monitor.
func (e *Engine) monitor(stopCh <-chan struct{}, wakeCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	consecutiveFailures := 0
	exhausted := false

	for e.running.Load() {
		if !e.connected.Load() {
			cfg := e.config.Load()

			if exhausted && !e.preferPrimary.Load() {
				// Reconnect budget spent; hold position until an
				// operator forces a reconnect
				if !e.wait(monitorInterval, stopCh, wakeCh) {
					return
				}
				continue
			}

			if e.preferPrimary.Load() {
				exhausted = false
				consecutiveFailures = 0
			}

			if e.tryReconnect(cfg) {
				consecutiveFailures = 0
				exhausted = false
				continue
			}

			consecutiveFailures++
			if cfg.MaxReconnects > 0 && consecutiveFailures >= cfg.MaxReconnects {
				exhausted = true
				e.logger.Warn("Reconnect attempts exhausted, holding until forced", logging.Fields{
					"attempts": consecutiveFailures,
				})
			}

			if !e.wait(cfg.ReconnectDelay, stopCh, wakeCh) {
				return
			}
			continue
		}

		cfg := e.config.Load()

		e.metricsMu.Lock()
		lastAudio := e.metrics.LastAudio
		e.metricsMu.Unlock()

		if cfg.SilenceTimeout > 0 && time.Since(lastAudio) > cfg.SilenceTimeout {
			// Transport still claims to be up, but nothing audible has
			// arrived: treat it as a disconnection
			e.logger.Warn("Silence timeout exceeded, forcing reconnection", logging.Fields{
				"silence_timeout": cfg.SilenceTimeout.Seconds(),
				"last_audio_ago":  time.Since(lastAudio).Seconds(),
			})
			e.connected.Store(false)
			continue
		}

		e.checkBufferHealth()

		if !e.wait(monitorInterval, stopCh, wakeCh) {
			return
		}
	}
}

// tryReconnect performs one reconnection pass: primary first when the
// engine is on a fallback (or a forced reconnect asked for it), then
// the next fallback in round-robin order.
func (e *Engine) tryReconnect(cfg *Config) bool {
	e.stateMu.Lock()
	active := e.active
	e.stateMu.Unlock()

	if e.preferPrimary.Swap(false) || !active.IsPrimary() {
		if e.attemptConnection(cfg, cfg.PrimaryURL) {
			e.setActive(PrimaryEndpoint())
			return true
		}
	}

	if len(cfg.FallbackURLs) > 0 {
		next := active.NextFallback(len(cfg.FallbackURLs))
		if e.attemptConnection(cfg, next.URL(cfg)) {
			e.setActive(next)
			return true
		}
	}

	return false
}

// attemptConnection validates, probes, and opens a single endpoint.
// Failures are logged and reported as false, never escalated; the
// monitor owns the retry policy.
func (e *Engine) attemptConnection(cfg *Config, url string) bool {
	if url == "" {
		return false
	}
	if !urlparse.IsValidStreamURL(url) {
		e.logger.Warn("Rejecting invalid stream URL", logging.Fields{
			"url": urlparse.Sanitize(url),
		})
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ProbeTimeout)
	defer cancel()

	if err := e.probe(ctx, url, cfg); err != nil {
		e.logger.Debug("Stream probe failed", logging.Fields{
			"url":   url,
			"error": err.Error(),
		})
		return false
	}

	// Open a fresh source instance outside stateMu: the sample path may
	// be mid-read on the current handle, and a stalled open must not
	// hold the lock. On success the new handle is swapped in under a
	// short lock and the retired one closed afterwards, which also
	// unblocks any read still parked on it.
	source := e.newSource()
	if err := source.Open(ctx, url); err != nil {
		e.logger.Warn("Stream connection failed", logging.Fields{
			"url":   url,
			"error": err.Error(),
		})
		e.stateMu.Lock()
		current := e.source
		e.stateMu.Unlock()
		if source != current {
			source.Close()
		}
		return false
	}

	e.stateMu.Lock()
	old := e.source
	e.source = source
	e.stateMu.Unlock()
	if old != nil && old != source {
		old.Close()
	}

	e.metricsMu.Lock()
	e.metrics.ReconnectCount++
	e.metrics.LastAudio = time.Now()
	e.metricsMu.Unlock()

	e.logger.Info("Connected to stream", logging.Fields{
		"url": url,
	})

	return true
}

// setActive publishes the active endpoint and marks the engine
// connected.
func (e *Engine) setActive(endpoint Endpoint) {
	e.stateMu.Lock()
	e.active = endpoint
	e.stateMu.Unlock()
	e.connected.Store(true)
}

// checkBufferHealth samples the source buffer fill and counts an
// underrun when it drops below the threshold.
func (e *Engine) checkBufferHealth() {
	e.stateMu.Lock()
	source := e.source
	e.stateMu.Unlock()
	if source == nil {
		return
	}
	health := source.BufferHealth()
	if health < underrunThreshold {
		e.metricsMu.Lock()
		e.metrics.UnderrunCount++
		e.metrics.BufferHealth = health
		e.metricsMu.Unlock()
	}
}

// wait blocks for d, or less if the monitor is woken or stopped.
// Returns false when the engine is shutting down.
func (e *Engine) wait(d time.Duration, stopCh <-chan struct{}, wakeCh <-chan struct{}) bool {
	if d <= 0 {
		select {
		case <-stopCh:
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-stopCh:
		return false
	case <-wakeCh:
		return true
	case <-timer.C:
		return true
	}
}
