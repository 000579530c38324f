package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/stream-ingest/configs"
)

func writeStationsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validStationsYAML = `
stations:
  - name: main
    primary_url: http://stream.example.com:8000/live
    fallback_urls:
      - http://backup1.example.com:8000/live
      - http://backup2.example.com:8000/live
    enabled: true
  - name: jazz
    primary_url: icecast://jazz.example.com/stream
    enabled: true
    target_level_db: -20.0
  - name: disabled
    primary_url: http://off.example.com/stream
    enabled: false
`

func TestLoadStationsFile(t *testing.T) {
	path := writeStationsFile(t, validStationsYAML)

	stations, err := LoadStationsFile(path)
	require.NoError(t, err)
	require.Len(t, stations.Stations, 3)

	assert.Equal(t, "main", stations.Stations[0].Name)
	assert.Equal(t, "http://stream.example.com:8000/live", stations.Stations[0].PrimaryURL)
	assert.Len(t, stations.Stations[0].FallbackURLs, 2)

	require.NotNil(t, stations.Stations[1].TargetLevelDB)
	assert.InDelta(t, -20.0, *stations.Stations[1].TargetLevelDB, 1e-9)
}

func TestLoadStationsFileMissing(t *testing.T) {
	_, err := LoadStationsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadStationsFileInvalidYAML(t *testing.T) {
	path := writeStationsFile(t, "stations: [not: {valid")
	_, err := LoadStationsFile(path)
	assert.Error(t, err)
}

func TestStationsValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "empty",
			yaml:    "stations: []",
			wantErr: "no stations defined",
		},
		{
			name: "missing name",
			yaml: `
stations:
  - primary_url: http://stream.example.com/live
    enabled: true
`,
			wantErr: "has no name",
		},
		{
			name: "bad primary URL",
			yaml: `
stations:
  - name: broken
    primary_url: rtsp://stream.example.com/live
    enabled: true
`,
			wantErr: "primary URL",
		},
		{
			name: "bad fallback URL",
			yaml: `
stations:
  - name: broken
    primary_url: http://stream.example.com/live
    fallback_urls:
      - not a url
    enabled: true
`,
			wantErr: "fallback URL",
		},
		{
			name: "disabled stations are not validated",
			yaml: `
stations:
  - name: ok
    primary_url: http://stream.example.com/live
    enabled: true
  - name: broken
    primary_url: rtsp://stream.example.com/live
    enabled: false
`,
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeStationsFile(t, tt.yaml)
			_, err := LoadStationsFile(path)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestEnabledStations(t *testing.T) {
	path := writeStationsFile(t, validStationsYAML)
	stations, err := LoadStationsFile(path)
	require.NoError(t, err)

	enabled := stations.EnabledStations()
	require.Len(t, enabled, 2)
	assert.Equal(t, "main", enabled[0].Name)
	assert.Equal(t, "jazz", enabled[1].Name)
}

func TestStationByName(t *testing.T) {
	path := writeStationsFile(t, validStationsYAML)
	stations, err := LoadStationsFile(path)
	require.NoError(t, err)

	station, err := stations.StationByName("jazz")
	require.NoError(t, err)
	assert.Equal(t, "jazz", station.Name)

	_, err = stations.StationByName("disabled")
	assert.Error(t, err)

	_, err = stations.StationByName("nope")
	assert.Error(t, err)
}

func TestEngineConfigMerge(t *testing.T) {
	appConfig := configs.GetDefaultConfig()
	appConfig.Ingest.ReconnectDelay = 5 * time.Second
	appConfig.Ingest.SilenceThresholdDB = -35.0
	appConfig.Source.UserAgent = "test-agent/1.0"

	station := &StationConfig{
		Name:         "main",
		PrimaryURL:   "http://stream.example.com:8000/live",
		FallbackURLs: []string{"http://backup.example.com:8000/live"},
		Enabled:      true,
	}

	cfg := EngineConfig(appConfig, station)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, station.PrimaryURL, cfg.PrimaryURL)
	assert.Equal(t, station.FallbackURLs, cfg.FallbackURLs)
	assert.Equal(t, 5*time.Second, cfg.ReconnectDelay)
	assert.InDelta(t, -35.0, cfg.SilenceThresholdDB, 1e-9)
	assert.Equal(t, "test-agent/1.0", cfg.UserAgent)
}

func TestEngineConfigStationOverrides(t *testing.T) {
	appConfig := configs.GetDefaultConfig()

	threshold := -50.0
	target := -18.0
	normalize := false
	station := &StationConfig{
		Name:               "custom",
		PrimaryURL:         "http://stream.example.com/live",
		Enabled:            true,
		SilenceThresholdDB: &threshold,
		TargetLevelDB:      &target,
		Normalization:      &normalize,
	}

	cfg := EngineConfig(appConfig, station)

	assert.InDelta(t, -50.0, cfg.SilenceThresholdDB, 1e-9)
	assert.InDelta(t, -18.0, cfg.TargetLevelDB, 1e-9)
	assert.False(t, cfg.EnableNormalization)
}

func TestEngineConfigFallbackListIsCopied(t *testing.T) {
	appConfig := configs.GetDefaultConfig()
	station := &StationConfig{
		Name:         "main",
		PrimaryURL:   "http://stream.example.com/live",
		FallbackURLs: []string{"http://backup.example.com/live"},
		Enabled:      true,
	}

	cfg := EngineConfig(appConfig, station)
	station.FallbackURLs[0] = "http://changed.example.com/live"

	assert.Equal(t, "http://backup.example.com/live", cfg.FallbackURLs[0])
}
