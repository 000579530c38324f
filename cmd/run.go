package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/stream-ingest/internal/app"
)

var (
	runStationsFile string
	runStationName  string
	runOutputFile   string
	runDuration     time.Duration
	runQuiet        bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [flags]",
	Short: "Ingest a station until interrupted",
	Long: `Run the ingestion engine against a configured station.

The engine connects to the station's primary endpoint, falls back down
the ranked fallback list on failure, and keeps reconnecting across
outages. Decoded audio is analyzed, normalized, and optionally written
as raw signed 16-bit little-endian PCM to a file or stdout.

The process runs until it receives SIGINT or SIGTERM, or until the
optional --duration elapses. A run summary is written on exit.

Examples:
  # Ingest the first enabled station from the stations file
  stream-ingest run --stations stations.yaml

  # Ingest a specific station and pipe raw PCM to ffmpeg
  stream-ingest run --stations stations.yaml --station kexp --pcm-output - | \
    ffmpeg -f s16le -ar 48000 -ac 2 -i - out.mp3

  # Ten-minute soak with a YAML summary
  stream-ingest run --stations stations.yaml --duration 10m -o yaml`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runStationsFile, "stations", "",
		"stations configuration file (required)")
	runCmd.Flags().StringVar(&runStationName, "station", "",
		"station name to ingest (default is the first enabled station)")
	runCmd.Flags().StringVar(&runOutputFile, "pcm-output", "",
		"raw PCM output file, or - for stdout (default discards audio)")
	runCmd.Flags().DurationVar(&runDuration, "duration", 0,
		"run duration (default runs until interrupted)")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false,
		"suppress the run summary")

	runCmd.MarkFlagRequired("stations")
}

func runIngest(cmd *cobra.Command, args []string) error {
	appCtx := &app.Context{
		ConfigFile:   configFile,
		StationsFile: runStationsFile,
		StationName:  runStationName,
		OutputFile:   runOutputFile,
		OutputFormat: viper.GetString("output_format"),
		Duration:     runDuration,
		Verbose:      viper.GetBool("verbose"),
		Quiet:        runQuiet,
	}

	ingestApp, err := app.NewIngestApp(appCtx)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return ingestApp.Run(ctx)
}
