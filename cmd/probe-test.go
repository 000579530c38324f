package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/stream-ingest/pkg/stream"
	"github.com/RyanBlaney/stream-ingest/pkg/stream/common"
	"github.com/RyanBlaney/stream-ingest/pkg/stream/icecast"
	"github.com/RyanBlaney/stream-ingest/pkg/stream/urlparse"
)

var (
	probeTimeout   time.Duration
	probeVerbose   bool
	probeUserAgent string
	probeOpenTest  bool
)

var probeTestCmd = &cobra.Command{
	Use:   "probe-test [url]",
	Short: "Test stream endpoint reachability",
	Long: `Probe a stream endpoint the way the ingestion engine does before
connecting: a HEAD request with ICEcast-compatible headers, accepting
2xx and 206 responses.

With --open, the command additionally opens the stream, reads the ICY
response headers, and reports the extracted station metadata.

Examples:
  # Basic reachability probe
  stream-ingest probe-test http://stream.example.com:8000/live

  # Probe and open the stream to inspect ICY metadata
  stream-ingest probe-test --open --timeout 15s icecast://radio.example.com/stream`,
	Args: cobra.ExactArgs(1),
	RunE: runProbeTest,
}

func init() {
	rootCmd.AddCommand(probeTestCmd)

	probeTestCmd.Flags().DurationVar(&probeTimeout, "timeout", 10*time.Second,
		"probe timeout")
	probeTestCmd.Flags().BoolVarP(&probeVerbose, "verbose", "v", false,
		"verbose output")
	probeTestCmd.Flags().StringVar(&probeUserAgent, "user-agent", "",
		"override the probe User-Agent header")
	probeTestCmd.Flags().BoolVar(&probeOpenTest, "open", false,
		"open the stream and report ICY metadata after a successful probe")
}

func runProbeTest(cmd *cobra.Command, args []string) error {
	url := args[0]
	verbose := probeVerbose || viper.GetBool("verbose")

	printHeader("Stream Reachability Probe", urlparse.Sanitize(url))

	timer := NewPerformanceTimer()
	timer.StartEvent("total_test")

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	// Step 1: URL validation
	printStep(1, "URL Validation")
	parsed := urlparse.Parse(url)
	if !parsed.IsValid {
		printError("Not a valid stream URL")
		return fmt.Errorf("invalid stream URL")
	}
	printSuccess("Valid %s URL, host %s port %d", parsed.Protocol, parsed.Hostname, parsed.Port)
	fmt.Println()

	// Step 2: Reachability probe
	printStep(2, "Reachability Probe")
	probeConfig := stream.DefaultProbeConfig()
	probeConfig.Timeout = probeTimeout
	if probeUserAgent != "" {
		probeConfig.UserAgent = probeUserAgent
	}

	timer.StartEvent("probe")
	err := stream.Probe(ctx, http.DefaultClient, url, probeConfig)
	timer.EndEvent("probe")

	probeOK := err == nil
	if probeOK {
		printSuccess("Endpoint reachable in %v", timer.GetDuration("probe"))
	} else {
		printError("Probe failed: %v", err)
	}
	fmt.Println()

	// Step 3: Stream open (optional)
	openOK := true
	var title, artist string
	if probeOpenTest && probeOK {
		printStep(3, "Stream Open")

		sourceConfig := icecast.DefaultConfig()
		if probeUserAgent != "" {
			sourceConfig.HTTP.UserAgent = probeUserAgent
		}
		registry := stream.NewFactory()
		configured := func() common.Source {
			return icecast.NewSourceWithConfig(sourceConfig)
		}
		registry.RegisterSourceFactory(common.StreamTypeICEcast, configured)
		registry.RegisterSourceFactory(common.StreamTypeShoutcast, configured)

		source, openErr := registry.SourceForURL(url)
		if openErr == nil {
			timer.StartEvent("stream_open")
			openErr = source.Open(ctx, url)
			timer.EndEvent("stream_open")
		}

		if openErr != nil {
			openOK = false
			printError("Open failed: %v", openErr)
		} else {
			printSuccess("Stream opened in %v", timer.GetDuration("stream_open"))

			// Pull a short burst so metadata has a chance to arrive
			buf := make([]int16, 4096)
			for range 4 {
				if _, readErr := source.Read(buf); readErr != nil {
					break
				}
			}
			title = source.CurrentTitle()
			artist = source.CurrentArtist()
			if title != "" {
				printInfo("Title:  %s", title)
			}
			if artist != "" {
				printInfo("Artist: %s", artist)
			}
			printInfo("Buffer health: %d%%", source.BufferHealth())
			source.Close()
		}
		fmt.Println()
	}

	timer.EndEvent("total_test")

	if verbose {
		printSectionHeader("Performance Summary")
		displayPerformanceSummary(timer)
		fmt.Println()
	}

	printSectionHeader("Test Summary")
	printResult("URL Validation", true)
	printResult("Reachability", probeOK)
	if probeOpenTest {
		printResult("Stream Open", probeOK && openOK)
	}
	fmt.Printf("\n%sTotal Test Duration: %v%s\n", ColorBold, timer.GetTotalDuration(), ColorReset)

	if !probeOK {
		return fmt.Errorf("probe failed")
	}
	if probeOpenTest && !openOK {
		return fmt.Errorf("stream open failed")
	}
	return nil
}
