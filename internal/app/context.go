package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"
	"github.com/RyanBlaney/latency-benchmark-common/output"
	"github.com/tunein/go-logging/v7/pkg/logger"
	"github.com/tunein/go-logging/v7/pkg/logger/logtypes"
	"github.com/tunein/go-logging/v7/pkg/rootcollector"
	"github.com/tunein/go-logging/v7/pkg/rootlogger"

	"github.com/RyanBlaney/stream-ingest/configs"
	"github.com/RyanBlaney/stream-ingest/internal/ingest"
)

// readChunkSize is the number of samples pulled per engine read
const readChunkSize = 4096

// Context holds the application context and configuration
type Context struct {
	// CLI arguments
	ConfigFile   string // Application configuration file (optional)
	StationsFile string // Stations configuration file (required)
	StationName  string // Station to ingest; empty selects the first enabled one
	OutputFile   string // Raw PCM output; empty discards audio
	OutputFormat string
	Duration     time.Duration // Run duration; zero runs until interrupted
	Verbose      bool
	Quiet        bool

	// Runtime context
	Logger   logging.Logger
	Config   *configs.Config
	Stations *StationsConfig
}

// IngestApp handles the stream ingestion application lifecycle
type IngestApp struct {
	ctx      *Context
	config   *configs.Config
	stations *StationsConfig
	logger   logging.Logger
}

// RunSummary is the final report written when the application exits
type RunSummary struct {
	Station          string                `json:"station"`
	StartTime        time.Time             `json:"start_time"`
	EndTime          time.Time             `json:"end_time"`
	SamplesProcessed int64                 `json:"samples_processed"`
	FinalURL         string                `json:"final_url"`
	FinalEndpoint    string                `json:"final_endpoint"`
	Healthy          bool                  `json:"healthy"`
	HealthIssues     []string              `json:"health_issues,omitempty"`
	Quality          ingest.QualityMetrics `json:"quality_metrics"`
	Statistics       ingest.Statistics     `json:"statistics"`
}

// NewIngestApp creates a new ingestion application
func NewIngestApp(ctx *Context) (*IngestApp, error) {
	logger := setupLogging(ctx)
	ctx.Logger = logger

	config, stations, err := loadAppConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	ctx.Config = config
	ctx.Stations = stations

	logger.Debug("Ingest application initialized", logging.Fields{
		"app_config_file": ctx.ConfigFile,
		"stations_file":   ctx.StationsFile,
		"output_format":   ctx.OutputFormat,
		"stations":        len(stations.EnabledStations()),
	})

	return &IngestApp{
		ctx:      ctx,
		config:   config,
		stations: stations,
		logger:   logger,
	}, nil
}

// Run ingests the selected station until the context is cancelled or
// the configured duration elapses.
func (app *IngestApp) Run(ctx context.Context) error {
	station, err := app.selectStation()
	if err != nil {
		return err
	}

	app.logger.Info("Starting stream ingestion", logging.Fields{
		"station":     station.Name,
		"primary_url": station.PrimaryURL,
		"fallbacks":   len(station.FallbackURLs),
	})

	engine := ingest.NewEngine(EngineConfig(app.config, station), &ingest.EngineOptions{
		Logger: app.logger,
	})
	if err := engine.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	if err := engine.Start(); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	defer engine.Stop()

	sink, closeSink, err := app.openSink()
	if err != nil {
		return err
	}
	defer closeSink()

	runCtx := ctx
	if app.ctx.Duration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, app.ctx.Duration)
		defer cancel()
	}

	startTime := time.Now()
	app.readLoop(runCtx, engine, station, sink)

	summary := app.buildSummary(engine, station, startTime)
	if err := app.outputSummary(summary); err != nil {
		return fmt.Errorf("failed to output run summary: %w", err)
	}

	return nil
}

// readLoop pulls audio from the engine and pushes it to the sink,
// emitting quality metrics at the configured interval.
func (app *IngestApp) readLoop(ctx context.Context, engine *ingest.Engine, station *StationConfig, sink io.Writer) {
	metricsInterval := app.config.Metrics.Interval
	if metricsInterval <= 0 {
		metricsInterval = 30 * time.Second
	}
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	samples := make([]int16, readChunkSize)
	pcm := make([]byte, readChunkSize*2)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if app.config.Metrics.Enabled {
				app.collectQualityMetrics(engine, station)
			}
		default:
		}

		n := engine.ReadSamples(samples)
		if n == 0 {
			// Zero covers both disconnection and a transient empty
			// read; the engine's monitor owns the reconnect cycle
			if !sleepCtx(ctx, 100*time.Millisecond) {
				return
			}
			continue
		}
		if sink != nil {
			for i := range n {
				pcm[2*i] = byte(uint16(samples[i]))
				pcm[2*i+1] = byte(uint16(samples[i]) >> 8)
			}
			if _, werr := sink.Write(pcm[:2*n]); werr != nil {
				app.logger.Error(werr, "Failed writing audio output", logging.Fields{
					"station": station.Name,
				})
				return
			}
		}
	}
}

// collectQualityMetrics sends the engine's quality snapshot to rootcollector
func (app *IngestApp) collectQualityMetrics(engine *ingest.Engine, station *StationConfig) {
	err := rootlogger.Configure(logger.LogOptions{
		Out:          app.config.Metrics.LogFile,
		ReopenSignal: syscall.SIGHUP,
		Level:        logtypes.InfoLevel,
	})
	if err != nil {
		logging.Error(err, "Failed configuring metrics log writer")
	}

	quality := engine.QualityMetrics()
	stats := engine.Statistics()

	tags := []string{
		"station:" + station.Name,
		"endpoint:" + engine.CurrentEndpoint().String(),
	}
	tags = append(tags, app.config.Metrics.Tags...)

	healthy := int64(0)
	if engine.IsHealthy() {
		healthy = 1
	}

	rootcollector.Metric("streaming.ingest.audio.rms.milli", int64(quality.RMSLevel*1000), tags)
	rootcollector.Metric("streaming.ingest.audio.peak.milli", int64(quality.PeakLevel*1000), tags)
	rootcollector.Metric("streaming.ingest.audio.snr.db", int64(quality.SNRDB), tags)
	rootcollector.Metric("streaming.ingest.buffer.health.percent", int64(quality.BufferHealth), tags)
	rootcollector.Metric("streaming.ingest.reconnects.total", quality.ReconnectCount, tags)
	rootcollector.Metric("streaming.ingest.underruns.total", quality.UnderrunCount, tags)
	rootcollector.Metric("streaming.ingest.healthy", healthy, tags)
	rootcollector.Metric("streaming.ingest.bitrate.kbps", int64(stats.AverageBitrateKbps), tags)
}

// buildSummary captures the final engine state for the run report
func (app *IngestApp) buildSummary(engine *ingest.Engine, station *StationConfig, startTime time.Time) *RunSummary {
	stats := engine.Statistics()
	return &RunSummary{
		Station:          station.Name,
		StartTime:        startTime,
		EndTime:          time.Now(),
		SamplesProcessed: stats.TotalSamplesProcessed,
		FinalURL:         engine.CurrentURL(),
		FinalEndpoint:    engine.CurrentEndpoint().String(),
		Healthy:          engine.IsHealthy(),
		HealthIssues:     engine.HealthIssues(),
		Quality:          engine.QualityMetrics(),
		Statistics:       stats,
	}
}

// selectStation resolves the station named on the command line, or the
// first enabled station when none was named.
func (app *IngestApp) selectStation() (*StationConfig, error) {
	if app.ctx.StationName != "" {
		return app.stations.StationByName(app.ctx.StationName)
	}

	enabled := app.stations.EnabledStations()
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no enabled stations configured")
	}
	return &enabled[0], nil
}

// openSink opens the raw PCM output target. A "-" output writes to
// stdout; empty output discards the audio.
func (app *IngestApp) openSink() (io.Writer, func(), error) {
	switch app.ctx.OutputFile {
	case "":
		return nil, func() {}, nil
	case "-":
		return os.Stdout, func() {}, nil
	default:
		dir := filepath.Dir(app.ctx.OutputFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		f, err := os.Create(app.ctx.OutputFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create output file: %w", err)
		}
		return f, func() { f.Close() }, nil
	}
}

// outputSummary formats the run summary and writes it to stderr so it
// never interleaves with PCM written to stdout.
func (app *IngestApp) outputSummary(summary *RunSummary) error {
	if app.ctx.Quiet {
		return nil
	}

	var formatter output.Formatter
	switch app.ctx.OutputFormat {
	case "json":
		formatter = &output.JSONFormatter{}
	case "yaml":
		formatter = &output.YAMLFormatter{}
	case "table":
		formatter = &output.TableFormatter{}
	default:
		formatter = &output.JSONFormatter{}
	}

	data, err := formatter.Format(map[string]any{"ingest_summary": summary}, true)
	if err != nil {
		return fmt.Errorf("failed to format run summary: %w", err)
	}

	_, err = os.Stderr.Write(data)
	return err
}

// setupLogging configures logging based on context
func setupLogging(ctx *Context) logging.Logger {
	return logging.NewDefaultLogger()
}

// loadAppConfig loads the application and stations configuration files
func loadAppConfig(ctx *Context) (*configs.Config, *StationsConfig, error) {
	baseConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load base configuration: %w", err)
	}

	if ctx.StationsFile == "" {
		return nil, nil, errors.New("stations configuration file is required")
	}

	stations, err := LoadStationsFile(ctx.StationsFile)
	if err != nil {
		return nil, nil, err
	}

	if err := configs.ValidateConfig(baseConfig); err != nil {
		return nil, nil, fmt.Errorf("invalid application configuration: %w", err)
	}

	return baseConfig, stations, nil
}

// sleepCtx sleeps for d unless the context is cancelled first. It
// reports false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
