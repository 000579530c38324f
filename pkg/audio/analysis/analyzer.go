package analysis

import (
	"math"
)

const (
	// noiseFloor is the assumed noise floor for the SNR approximation.
	// Inherited from the reference behavior; a calibrated measurement
	// would replace it, not a different constant.
	noiseFloor = 0.001

	// silenceEpsilon keeps the silence check away from log10(0)
	silenceEpsilon = 1e-10

	// defaultHistorySize bounds the trailing RMS window
	defaultHistorySize = 100
)

// BlockStats holds the measurements for one block of samples
type BlockStats struct {
	RMS     float64 `json:"rms"`
	Peak    float64 `json:"peak"`
	Silence bool    `json:"silence"`
}

// Analyzer computes loudness and signal quality measurements over
// blocks of interleaved 16-bit samples. It keeps a bounded trailing
// window of RMS values for trend diagnostics and the last SNR estimate.
// Not safe for concurrent use; the sample-retrieval path is the only
// caller.
type Analyzer struct {
	rmsHistory  []float64
	historySize int
	snrDB       float64
}

// NewAnalyzer creates an analyzer with the default history capacity
func NewAnalyzer() *Analyzer {
	return &Analyzer{
		rmsHistory:  make([]float64, 0, defaultHistorySize),
		historySize: defaultHistorySize,
	}
}

// RMS computes the root-mean-square level of a sample block,
// normalized to [0, 1]. An empty block yields 0.
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sumSquares := 0.0
	for _, sample := range samples {
		normalized := float64(sample) / 32768.0
		sumSquares += normalized * normalized
	}

	return math.Sqrt(sumSquares / float64(len(samples)))
}

// Peak computes the maximum absolute sample value of a block,
// normalized to [0, 1]. An empty block yields 0.
func Peak(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	maxAbs := 0.0
	for _, sample := range samples {
		abs := math.Abs(float64(sample))
		if abs > maxAbs {
			maxAbs = abs
		}
	}

	return maxAbs / 32768.0
}

// IsSilence reports whether a block's level falls below the silence
// threshold in dB.
func IsSilence(samples []int16, thresholdDB float64) bool {
	rmsDB := 20.0 * math.Log10(RMS(samples)+silenceEpsilon)
	return rmsDB < thresholdDB
}

// Analyze measures one block and updates the trailing RMS window and
// the SNR estimate. The SNR is only recomputed when the signal is
// clearly above the noise floor; otherwise the previous estimate is
// kept to avoid spurious drops during quiet passages.
func (a *Analyzer) Analyze(samples []int16, silenceThresholdDB float64) BlockStats {
	stats := BlockStats{
		RMS:  RMS(samples),
		Peak: Peak(samples),
	}

	rmsDB := 20.0 * math.Log10(stats.RMS+silenceEpsilon)
	stats.Silence = rmsDB < silenceThresholdDB

	a.rmsHistory = append(a.rmsHistory, stats.RMS)
	if len(a.rmsHistory) > a.historySize {
		a.rmsHistory = a.rmsHistory[1:]
	}

	if stats.RMS > noiseFloor {
		a.snrDB = 20.0 * math.Log10(stats.RMS/noiseFloor)
	}

	return stats
}

// SNR returns the current SNR estimate in dB
func (a *Analyzer) SNR() float64 {
	return a.snrDB
}

// RMSHistory returns a copy of the trailing RMS window, oldest first
func (a *Analyzer) RMSHistory() []float64 {
	history := make([]float64, len(a.rmsHistory))
	copy(history, a.rmsHistory)
	return history
}

// Reset clears the trailing window and the SNR estimate
func (a *Analyzer) Reset() {
	a.rmsHistory = a.rmsHistory[:0]
	a.snrDB = 0.0
}
