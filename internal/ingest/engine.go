package ingest

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/stream-ingest/pkg/audio/analysis"
	"github.com/RyanBlaney/stream-ingest/pkg/audio/normalize"
	"github.com/RyanBlaney/stream-ingest/pkg/stream"
	"github.com/RyanBlaney/stream-ingest/pkg/stream/common"
	"github.com/RyanBlaney/stream-ingest/pkg/stream/icecast"
)

// Engine is the resilient stream-ingestion engine. It owns the active
// source handle, keeps samples flowing across outages by failing over
// between the primary and the ranked fallback endpoints, analyzes the
// decoded audio for loudness and signal quality, and normalizes output
// loudness toward the configured target.
//
// Concurrency model: one caller-driven sample path (ReadSamples) and
// one background monitor goroutine. Quality metrics are the only state
// with two writers and sit behind metricsMu; the source handle and the
// active endpoint are published under stateMu, but network calls on
// the source (Read, Open) happen outside it so a stalled socket cannot
// block the accessors or the monitor. Reconnection opens a fresh
// source instance and swaps it in under a short lock, closing the
// replaced handle afterwards; the configuration is an atomic snapshot;
// gain state is touched by the sample path only.
type Engine struct {
	logger    logging.Logger
	config    atomic.Pointer[Config]
	newSource common.SourceFactory

	initialized   atomic.Bool
	running       atomic.Bool
	connected     atomic.Bool
	preferPrimary atomic.Bool

	stateMu     sync.Mutex
	source      common.Source
	active      Endpoint
	stopCh      chan struct{}
	wakeCh      chan struct{}
	monitorDone chan struct{}

	metricsMu        sync.Mutex
	metrics          QualityMetrics
	analyzer         *analysis.Analyzer
	samplesProcessed int64

	normalizer *normalize.Normalizer

	probe probeFunc
}

// EngineOptions carries the collaborators an Engine composes over.
// Zero fields fall back to defaults.
type EngineOptions struct {
	// SourceFactory creates the media source backend. Defaults to the
	// ICEcast PCM source.
	SourceFactory common.SourceFactory

	// ProbeClient is the HTTP client used for reachability probes
	ProbeClient *http.Client

	Logger logging.Logger
}

// NewEngine creates an engine for the given configuration. The
// configuration is validated at Initialize, not here.
func NewEngine(config *Config, opts *EngineOptions) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if opts == nil {
		opts = &EngineOptions{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	factory := opts.SourceFactory
	if factory == nil {
		sourceConfig := icecast.DefaultConfig()
		sourceConfig.HTTP.UserAgent = config.UserAgent
		sourceConfig.HTTP.VerifyTLS = config.VerifyTLS

		configured := func() common.Source {
			return icecast.NewSourceWithConfig(sourceConfig)
		}
		registry := stream.NewFactory()
		registry.RegisterSourceFactory(common.StreamTypeICEcast, configured)
		registry.RegisterSourceFactory(common.StreamTypeShoutcast, configured)

		factory = func() common.Source {
			source, err := registry.SourceForURL(config.PrimaryURL)
			if err != nil {
				return configured()
			}
			return source
		}
	}

	probeClient := opts.ProbeClient
	if probeClient == nil {
		probeClient = http.DefaultClient
	}

	e := &Engine{
		logger:     logger,
		newSource:  factory,
		normalizer: normalize.NewNormalizer(),
		analyzer:   analysis.NewAnalyzer(),
		probe:      newHTTPProbe(probeClient),
	}
	e.config.Store(config.Clone())

	now := time.Now()
	e.metrics = QualityMetrics{
		BufferHealth: 100,
		LastAudio:    now,
		SessionStart: now,
	}

	return e
}

// Initialize validates the configuration and prepares the source
// binding. It does not connect.
func (e *Engine) Initialize() error {
	cfg := e.config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid stream configuration: %w", err)
	}

	e.stateMu.Lock()
	if e.source == nil {
		e.source = e.newSource()
	}
	e.stateMu.Unlock()

	e.initialized.Store(true)

	e.logger.Debug("Stream engine initialized", logging.Fields{
		"primary_url":   cfg.PrimaryURL,
		"fallback_urls": len(cfg.FallbackURLs),
		"normalization": cfg.EnableNormalization,
	})

	return nil
}

// Start connects to the primary endpoint, falling back down the ranked
// list on failure. The first success becomes the active endpoint and
// the monitor goroutine is spawned. If every attempt fails, Start
// returns an error and no monitor runs.
func (e *Engine) Start() error {
	if !e.initialized.Load() {
		if err := e.Initialize(); err != nil {
			return err
		}
	}
	if e.running.Load() {
		return nil
	}

	cfg := e.config.Load()

	candidates := []Endpoint{PrimaryEndpoint()}
	for i := range cfg.FallbackURLs {
		candidates = append(candidates, FallbackEndpoint(i))
	}

	for _, candidate := range candidates {
		if e.attemptConnection(cfg, candidate.URL(cfg)) {
			e.stateMu.Lock()
			e.active = candidate
			e.stopCh = make(chan struct{})
			e.wakeCh = make(chan struct{}, 1)
			e.monitorDone = make(chan struct{})
			e.stateMu.Unlock()

			e.connected.Store(true)
			e.running.Store(true)

			go e.monitor(e.stopCh, e.wakeCh, e.monitorDone)

			e.logger.Info("Stream engine started", logging.Fields{
				"endpoint": candidate.String(),
				"url":      candidate.URL(cfg),
			})
			return nil
		}
	}

	return common.NewStreamError(
		common.StreamTypeICEcast, cfg.PrimaryURL, common.ErrCodeConnection,
		"all stream endpoints failed", nil,
	)
}

// Stop shuts the engine down: clears the running flag, wakes the
// monitor out of any retry delay, waits for it to exit, then releases
// the source handle. Safe to call repeatedly and from defer paths.
func (e *Engine) Stop() {
	e.running.Store(false)
	e.connected.Store(false)

	e.stateMu.Lock()
	stopCh := e.stopCh
	done := e.monitorDone
	e.stopCh = nil
	e.monitorDone = nil
	e.stateMu.Unlock()

	if stopCh != nil {
		close(stopCh)
	}
	if done != nil {
		<-done
	}

	e.stateMu.Lock()
	source := e.source
	e.stateMu.Unlock()
	if source != nil {
		source.Close()
	}

	e.logger.Debug("Stream engine stopped")
}

// IsRunning reports whether the monitor is active
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

// IsConnected reports whether an endpoint is currently delivering
func (e *Engine) IsConnected() bool {
	return e.connected.Load()
}

// ReadSamples pulls up to len(buf) interleaved 16-bit samples from the
// active source, runs them through the quality analyzer and, when
// enabled, the loudness normalizer. Returns the number of samples
// delivered; zero when disconnected. A source read error marks the
// engine disconnected so the monitor takes over; it never propagates.
func (e *Engine) ReadSamples(buf []int16) int {
	if !e.connected.Load() || len(buf) == 0 {
		return 0
	}

	// Take the handle under the lock, read outside it. A read stalled
	// on a dead socket must not hold stateMu, or the accessors block
	// and the monitor cannot fail over. The monitor swaps in a fresh
	// source on reconnect rather than reopening this one, so a read
	// racing a swap lands on the retiring handle and errors out.
	e.stateMu.Lock()
	source := e.source
	e.stateMu.Unlock()
	if source == nil {
		return 0
	}

	n, err := source.Read(buf)

	if err != nil {
		e.connected.Store(false)
		e.logger.Warn("Stream read failed, marking disconnected", logging.Fields{
			"error": err.Error(),
		})
		return 0
	}
	if n == 0 {
		return 0
	}
	bufferHealth := source.BufferHealth()

	cfg := e.config.Load()
	block := buf[:n]

	// Metrics reflect the un-normalized input level, so the analyzer
	// must see the block before any gain is applied.
	e.metricsMu.Lock()
	stats := e.analyzer.Analyze(block, cfg.SilenceThresholdDB)
	e.metrics.RMSLevel = stats.RMS
	e.metrics.PeakLevel = stats.Peak
	e.metrics.Silence = stats.Silence
	e.metrics.SNRDB = e.analyzer.SNR()
	e.metrics.BufferHealth = bufferHealth
	if !stats.Silence {
		e.metrics.LastAudio = time.Now()
	}
	e.samplesProcessed += int64(n)
	e.metricsMu.Unlock()

	if cfg.EnableNormalization {
		e.normalizer.Process(block, cfg.TargetLevelDB)
	}

	return n
}

// UpdateConfig atomically replaces the configuration snapshot. It does
// not trigger reconnection; callers wanting the new primary applied
// immediately should follow with ForceReconnect.
func (e *Engine) UpdateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration is required")
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid stream configuration: %w", err)
	}

	e.config.Store(config.Clone())

	e.logger.Debug("Stream configuration updated", logging.Fields{
		"primary_url":   config.PrimaryURL,
		"fallback_urls": len(config.FallbackURLs),
	})

	return nil
}

// Config returns the current configuration snapshot
func (e *Engine) Config() *Config {
	return e.config.Load().Clone()
}

// QualityMetrics returns a consistent snapshot of the quality state
func (e *Engine) QualityMetrics() QualityMetrics {
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	return e.metrics
}

// ResetMetrics zeroes the counters and refreshes the timestamps
// without touching the connection state.
func (e *Engine) ResetMetrics() {
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()

	now := time.Now()
	e.metrics = QualityMetrics{
		BufferHealth: 100,
		LastAudio:    now,
		SessionStart: now,
	}
	e.analyzer.Reset()
	e.samplesProcessed = 0
}

// ForceReconnect marks the engine disconnected and wakes the monitor
// so its next tick drives a reconnection, primary first. Reports
// whether the engine is in a state where reconnecting is meaningful.
func (e *Engine) ForceReconnect() bool {
	if !e.initialized.Load() {
		return false
	}

	e.preferPrimary.Store(true)
	e.connected.Store(false)
	e.wakeMonitor()

	e.logger.Info("Forced reconnection requested")
	return true
}

// CycleFallback advances the active endpoint to the next fallback
// without waiting for a failure. Manual operator intervention.
func (e *Engine) CycleFallback() {
	cfg := e.config.Load()
	if len(cfg.FallbackURLs) == 0 {
		return
	}

	e.stateMu.Lock()
	e.active = e.active.NextFallback(len(cfg.FallbackURLs))
	active := e.active
	e.stateMu.Unlock()

	e.logger.Info("Cycled to fallback endpoint", logging.Fields{
		"endpoint": active.String(),
		"url":      active.URL(cfg),
	})
}

// CurrentURL returns the URL of the active endpoint
func (e *Engine) CurrentURL() string {
	cfg := e.config.Load()
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.active.URL(cfg)
}

// CurrentEndpoint returns the active endpoint tag
func (e *Engine) CurrentEndpoint() Endpoint {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.active
}

// CurrentTitle returns the source's current title for the metadata
// collaborator; the engine does not interpret its content.
func (e *Engine) CurrentTitle() string {
	e.stateMu.Lock()
	source := e.source
	e.stateMu.Unlock()
	if source == nil {
		return ""
	}
	return source.CurrentTitle()
}

// CurrentArtist returns the source's current artist
func (e *Engine) CurrentArtist() string {
	e.stateMu.Lock()
	source := e.source
	e.stateMu.Unlock()
	if source == nil {
		return ""
	}
	return source.CurrentArtist()
}

// StreamInfo returns a one-line human-readable description of the
// active stream.
func (e *Engine) StreamInfo() string {
	uptime := time.Since(e.QualityMetrics().SessionStart)
	return fmt.Sprintf("%s | title=%q artist=%q | connected=%t uptime=%s",
		e.CurrentURL(), e.CurrentTitle(), e.CurrentArtist(),
		e.IsConnected(), common.FormatDuration(uptime))
}

// IsHealthy reports whether the stream has no health issues
func (e *Engine) IsHealthy() bool {
	return len(e.HealthIssues()) == 0
}

// HealthIssues returns human-readable descriptions of everything
// currently wrong with the stream. Elapsed silence beyond half the
// timeout is flagged as a leading indicator before the monitor forces
// a reconnect.
func (e *Engine) HealthIssues() []string {
	var issues []string
	cfg := e.config.Load()

	if !e.connected.Load() {
		issues = append(issues, IssueDisconnected)
	}

	e.metricsMu.Lock()
	lastAudio := e.metrics.LastAudio
	underruns := e.metrics.UnderrunCount
	rms := e.metrics.RMSLevel
	e.metricsMu.Unlock()

	if cfg.SilenceTimeout > 0 && time.Since(lastAudio) > cfg.SilenceTimeout/2 {
		issues = append(issues, IssueProlongedSilence)
	}
	if underruns > 10 {
		issues = append(issues, IssueFrequentUnderruns)
	}
	if rms < 0.001 {
		issues = append(issues, IssueLowAudioLevel)
	}

	return issues
}

// Statistics returns the monitoring counter snapshot. The bitrate is
// derived from 16-bit sample throughput since session start; the
// latency figure estimates buffered audio from the buffer depth and
// fill level.
func (e *Engine) Statistics() Statistics {
	cfg := e.config.Load()

	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()

	stats := Statistics{
		TotalSamplesProcessed: e.samplesProcessed,
		TotalReconnects:       e.metrics.ReconnectCount,
		TotalBufferUnderruns:  e.metrics.UnderrunCount,
		UptimeStart:           e.metrics.SessionStart,
	}

	elapsed := time.Since(e.metrics.SessionStart).Seconds()
	if elapsed > 0 {
		stats.AverageBitrateKbps = float64(e.samplesProcessed) * 16.0 / elapsed / 1000.0
	}
	stats.CurrentLatencyMs = float64(cfg.BufferDepth.Milliseconds()) * float64(e.metrics.BufferHealth) / 100.0

	return stats
}

// wakeMonitor nudges the monitor out of its current wait, if any
func (e *Engine) wakeMonitor() {
	e.stateMu.Lock()
	wake := e.wakeCh
	e.stateMu.Unlock()

	if wake != nil {
		select {
		case wake <- struct{}{}:
		default:
		}
	}
}
