package cmd

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/stream-ingest/pkg/audio/analysis"
	"github.com/RyanBlaney/stream-ingest/pkg/audio/normalize"
)

var (
	analyzeVerbose     bool
	analyzeThresholdDB float64
	analyzeTargetDB    float64
	analyzeNormalize   bool
	analyzeBlockSize   int
	analyzeOutputFile  string
)

var analyzeTestCmd = &cobra.Command{
	Use:   "analyze-test [pcm-file]",
	Short: "Analyze raw PCM audio quality",
	Long: `Run the quality analyzer over a raw signed 16-bit little-endian PCM
file, block by block, the way the ingestion engine analyzes live audio.

Reports per-file RMS, peak, silence ratio and the smoothed SNR
estimate. With --normalize the loudness normalizer is applied after
analysis and the gain trajectory is reported; the normalized audio can
be written back out with --normalized-output.

Examples:
  # Analyze a PCM capture with the default -40 dB silence threshold
  stream-ingest analyze-test capture.pcm

  # Analyze and normalize toward the broadcast target
  stream-ingest analyze-test --normalize --target-level -23 capture.pcm

  # Write the normalized audio to a new file
  stream-ingest analyze-test --normalize --normalized-output out.pcm capture.pcm`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyzeTest,
}

func init() {
	rootCmd.AddCommand(analyzeTestCmd)

	analyzeTestCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false,
		"verbose output")
	analyzeTestCmd.Flags().Float64Var(&analyzeThresholdDB, "silence-threshold", -40.0,
		"silence threshold in dB")
	analyzeTestCmd.Flags().Float64Var(&analyzeTargetDB, "target-level", -23.0,
		"normalization target level in dB")
	analyzeTestCmd.Flags().BoolVar(&analyzeNormalize, "normalize", false,
		"apply loudness normalization after analysis")
	analyzeTestCmd.Flags().IntVar(&analyzeBlockSize, "block-size", 4096,
		"analysis block size in samples")
	analyzeTestCmd.Flags().StringVar(&analyzeOutputFile, "normalized-output", "",
		"write normalized PCM to this file (implies --normalize)")
}

func runAnalyzeTest(cmd *cobra.Command, args []string) error {
	path := args[0]
	verbose := analyzeVerbose || viper.GetBool("verbose")
	doNormalize := analyzeNormalize || analyzeOutputFile != ""

	if analyzeBlockSize <= 0 {
		return fmt.Errorf("block size must be positive")
	}

	printHeader("Audio Quality Analysis", path)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open PCM file: %w", err)
	}
	defer f.Close()

	var out *os.File
	if analyzeOutputFile != "" {
		out, err = os.Create(analyzeOutputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer out.Close()
	}

	timer := NewPerformanceTimer()
	timer.StartEvent("analysis")

	analyzer := analysis.NewAnalyzer()
	normalizer := normalize.NewNormalizer()

	var (
		totalBlocks   int
		silentBlocks  int
		totalSamples  int64
		peakOverall   float64
		sumSquares    float64
		firstGain     = normalizer.CurrentGain()
		lastGain      = firstGain
		rawBuf        = make([]byte, analyzeBlockSize*2)
		samples       = make([]int16, analyzeBlockSize)
		pendingTailed bool
	)

	for {
		n, readErr := io.ReadFull(f, rawBuf)
		if readErr == io.EOF {
			break
		}
		if readErr == io.ErrUnexpectedEOF {
			pendingTailed = n%2 == 1
			n -= n % 2
			if n == 0 {
				break
			}
		} else if readErr != nil {
			return fmt.Errorf("failed reading PCM data: %w", readErr)
		}

		count := n / 2
		for i := range count {
			samples[i] = int16(binary.LittleEndian.Uint16(rawBuf[2*i:]))
		}
		block := samples[:count]

		stats := analyzer.Analyze(block, analyzeThresholdDB)
		totalBlocks++
		totalSamples += int64(count)
		if stats.Silence {
			silentBlocks++
		}
		if stats.Peak > peakOverall {
			peakOverall = stats.Peak
		}
		sumSquares += stats.RMS * stats.RMS * float64(count)

		if doNormalize {
			normalizer.Process(block, analyzeTargetDB)
			lastGain = normalizer.CurrentGain()
			if out != nil {
				for i, s := range block {
					binary.LittleEndian.PutUint16(rawBuf[2*i:], uint16(s))
				}
				if _, werr := out.Write(rawBuf[:2*count]); werr != nil {
					return fmt.Errorf("failed writing normalized PCM: %w", werr)
				}
			}
		}

		if readErr == io.ErrUnexpectedEOF {
			break
		}
	}

	timer.EndEvent("analysis")

	if totalBlocks == 0 {
		printWarning("File contains no complete samples")
		return fmt.Errorf("empty PCM file")
	}
	if pendingTailed {
		printWarning("Trailing odd byte ignored")
	}

	overallRMS := math.Sqrt(sumSquares / float64(totalSamples))
	overallDB := 20 * math.Log10(overallRMS+1e-10)

	printStep(1, "Quality Metrics")
	printInfo("Samples:        %d (%.1fs at 48 kHz stereo)", totalSamples, float64(totalSamples)/96000.0)
	printInfo("Overall RMS:    %.4f (%.1f dB)", overallRMS, overallDB)
	printInfo("Peak level:     %.4f", peakOverall)
	printInfo("SNR estimate:   %.1f dB", analyzer.SNR())
	printInfo("Silent blocks:  %d of %d (%.1f%%)", silentBlocks, totalBlocks,
		100*float64(silentBlocks)/float64(totalBlocks))

	if overallRMS < 0.001 {
		printWarning("Very low audio level detected")
	}
	fmt.Println()

	if doNormalize {
		printStep(2, "Loudness Normalization")
		targetRMS := math.Pow(10, analyzeTargetDB/20.0)
		printInfo("Target level:   %.1f dB (RMS %.4f)", analyzeTargetDB, targetRMS)
		printInfo("Gain: %.3f -> %.3f", firstGain, lastGain)
		if analyzeOutputFile != "" {
			printSuccess("Normalized PCM written to %s", analyzeOutputFile)
		}
		fmt.Println()
	}

	if verbose {
		printSectionHeader("Performance Summary")
		printInfo("analysis: %v (%0.1fx realtime)", timer.GetDuration("analysis"),
			float64(totalSamples)/96000.0/timer.GetDuration("analysis").Seconds())
		fmt.Println()
	}

	printSectionHeader("Test Summary")
	printResult("Analysis", true)
	if doNormalize {
		printResult("Normalization", true)
	}
	fmt.Printf("\n%sTotal Test Duration: %v%s\n", ColorBold, timer.GetTotalDuration(), ColorReset)

	return nil
}
