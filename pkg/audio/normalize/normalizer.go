package normalize

import (
	"math"

	"github.com/RyanBlaney/stream-ingest/pkg/audio/analysis"
)

const (
	// Gain bounds prevent clipping and runaway amplification
	minGain = 0.1
	maxGain = 4.0

	// defaultSmoothing is the per-block gain change rate. Small on
	// purpose: gain moves over many blocks instead of jumping, which
	// would be audible as pumping.
	defaultSmoothing = 0.001
)

// Normalizer steers block loudness toward a configured target level.
// Gain state has a single writer: only the sample-retrieval path calls
// Process, so no locking is needed here.
type Normalizer struct {
	currentGain float64
	targetGain  float64
	smoothing   float64
}

// NewNormalizer creates a normalizer at unity gain
func NewNormalizer() *Normalizer {
	return &Normalizer{
		currentGain: 1.0,
		targetGain:  1.0,
		smoothing:   defaultSmoothing,
	}
}

// Process normalizes one block in place toward targetLevelDB. Metrics
// must be taken before this runs; the block is mutated.
func (n *Normalizer) Process(samples []int16, targetLevelDB float64) {
	if len(samples) == 0 {
		return
	}

	currentRMS := analysis.RMS(samples)
	targetRMS := math.Pow(10.0, targetLevelDB/20.0)

	// Do not chase silence: keep the previous target through quiet blocks
	if currentRMS > 0.001 {
		n.targetGain = clampGain(targetRMS / currentRMS)
	}

	n.currentGain += (n.targetGain - n.currentGain) * n.smoothing

	for i, sample := range samples {
		processed := float64(sample) * n.currentGain
		samples[i] = saturate(processed)
	}
}

// CurrentGain returns the gain applied to the most recent block
func (n *Normalizer) CurrentGain() float64 {
	return n.currentGain
}

// TargetGain returns the gain the normalizer is steering toward
func (n *Normalizer) TargetGain() float64 {
	return n.targetGain
}

// Reset returns the gain state to unity
func (n *Normalizer) Reset() {
	n.currentGain = 1.0
	n.targetGain = 1.0
}

func clampGain(gain float64) float64 {
	return math.Max(minGain, math.Min(gain, maxGain))
}

// saturate converts back to 16-bit, clipping instead of wrapping
func saturate(v float64) int16 {
	if v > 32767.0 {
		return 32767
	}
	if v < -32768.0 {
		return -32768
	}
	return int16(v)
}
