package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/stream-ingest/configs"
	"github.com/RyanBlaney/stream-ingest/internal/ingest"
	"github.com/RyanBlaney/stream-ingest/pkg/stream/urlparse"
)

// StationConfig describes one station: its primary endpoint and the
// ranked list of backups tried in order when the primary is down.
type StationConfig struct {
	Name         string   `yaml:"name"`
	PrimaryURL   string   `yaml:"primary_url"`
	FallbackURLs []string `yaml:"fallback_urls"`
	Enabled      bool     `yaml:"enabled"`

	// Optional per-station overrides; zero values inherit the
	// application configuration
	SilenceThresholdDB *float64 `yaml:"silence_threshold_db,omitempty"`
	TargetLevelDB      *float64 `yaml:"target_level_db,omitempty"`
	Normalization      *bool    `yaml:"enable_normalization,omitempty"`
}

// StationsConfig is the stations file content
type StationsConfig struct {
	Stations []StationConfig `yaml:"stations"`
}

// LoadStationsFile loads and validates a stations YAML file
func LoadStationsFile(path string) (*StationsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stations file: %w", err)
	}

	var stations StationsConfig
	if err := yaml.Unmarshal(data, &stations); err != nil {
		return nil, fmt.Errorf("failed to parse stations file: %w", err)
	}

	if err := stations.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stations file: %w", err)
	}

	return &stations, nil
}

// Validate checks every enabled station for usable endpoints
func (s *StationsConfig) Validate() error {
	if len(s.Stations) == 0 {
		return fmt.Errorf("no stations defined")
	}

	for i, station := range s.Stations {
		if !station.Enabled {
			continue
		}
		if station.Name == "" {
			return fmt.Errorf("station %d has no name", i)
		}
		if !urlparse.IsValidStreamURL(station.PrimaryURL) {
			return fmt.Errorf("station %q primary URL is not a valid stream URL", station.Name)
		}
		for j, fallback := range station.FallbackURLs {
			if !urlparse.IsValidStreamURL(fallback) {
				return fmt.Errorf("station %q fallback URL %d is not a valid stream URL", station.Name, j)
			}
		}
	}

	return nil
}

// EnabledStations returns the stations that are switched on
func (s *StationsConfig) EnabledStations() []StationConfig {
	var enabled []StationConfig
	for _, station := range s.Stations {
		if station.Enabled {
			enabled = append(enabled, station)
		}
	}
	return enabled
}

// StationByName finds an enabled station by name
func (s *StationsConfig) StationByName(name string) (*StationConfig, error) {
	for i := range s.Stations {
		if s.Stations[i].Name == name && s.Stations[i].Enabled {
			return &s.Stations[i], nil
		}
	}
	return nil, fmt.Errorf("no enabled station named %q", name)
}

// EngineConfig merges the application configuration with one station
// into an engine configuration snapshot.
func EngineConfig(appConfig *configs.Config, station *StationConfig) *ingest.Config {
	cfg := ingest.DefaultConfig()

	cfg.PrimaryURL = station.PrimaryURL
	cfg.FallbackURLs = append([]string(nil), station.FallbackURLs...)

	if appConfig.Ingest.ReconnectDelay > 0 {
		cfg.ReconnectDelay = appConfig.Ingest.ReconnectDelay
	}
	if appConfig.Ingest.MaxReconnects > 0 {
		cfg.MaxReconnects = appConfig.Ingest.MaxReconnects
	}
	if appConfig.Ingest.BufferDepth > 0 {
		cfg.BufferDepth = appConfig.Ingest.BufferDepth
	}
	if appConfig.Ingest.SilenceThresholdDB != 0 {
		cfg.SilenceThresholdDB = appConfig.Ingest.SilenceThresholdDB
	}
	if appConfig.Ingest.SilenceTimeout > 0 {
		cfg.SilenceTimeout = appConfig.Ingest.SilenceTimeout
	}
	if appConfig.Ingest.TargetLevelDB != 0 {
		cfg.TargetLevelDB = appConfig.Ingest.TargetLevelDB
	}
	if appConfig.Ingest.ProbeTimeout > 0 {
		cfg.ProbeTimeout = appConfig.Ingest.ProbeTimeout
	}
	cfg.EnableNormalization = appConfig.Ingest.EnableNormalization
	if appConfig.Source.UserAgent != "" {
		cfg.UserAgent = appConfig.Source.UserAgent
	}
	cfg.VerifyTLS = appConfig.Source.VerifyTLS

	// Station overrides win over the application configuration
	if station.SilenceThresholdDB != nil {
		cfg.SilenceThresholdDB = *station.SilenceThresholdDB
	}
	if station.TargetLevelDB != nil {
		cfg.TargetLevelDB = *station.TargetLevelDB
	}
	if station.Normalization != nil {
		cfg.EnableNormalization = *station.Normalization
	}

	return cfg
}
