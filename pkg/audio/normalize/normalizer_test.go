package normalize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNormalizerStartsAtUnity(t *testing.T) {
	n := NewNormalizer()

	assert.Equal(t, 1.0, n.CurrentGain())
	assert.Equal(t, 1.0, n.TargetGain())
}

func TestGainClampedLow(t *testing.T) {
	n := NewNormalizer()

	// Very loud block against a very quiet target forces the raw gain
	// far below the floor
	loud := sineBlock(0.9, 4096)
	n.Process(loud, -60.0)

	assert.Equal(t, 0.1, n.TargetGain())
}

func TestGainClampedHigh(t *testing.T) {
	n := NewNormalizer()

	// Quiet block against a hot target forces the raw gain above the cap
	quiet := sineBlock(0.005, 4096)
	n.Process(quiet, 0.0)

	assert.Equal(t, 4.0, n.TargetGain())
}

func TestSilenceDoesNotMoveTargetGain(t *testing.T) {
	n := NewNormalizer()

	n.Process(sineBlock(0.005, 4096), 0.0)
	target := n.TargetGain()

	// A silent block must leave the target untouched
	n.Process(make([]int16, 4096), 0.0)
	assert.Equal(t, target, n.TargetGain())
}

func TestGainConvergesMonotonically(t *testing.T) {
	n := NewNormalizer()
	n.currentGain = 2.0
	n.targetGain = 1.0

	block := make([]int16, 256)
	prev := n.CurrentGain()
	for range 50 {
		n.Process(block, -23.0)
		current := n.CurrentGain()
		assert.Less(t, current, prev)
		assert.Greater(t, current, 1.0)
		prev = current
	}
}

func TestProcessSaturatesInsteadOfWrapping(t *testing.T) {
	n := NewNormalizer()
	n.currentGain = 4.0
	n.targetGain = 4.0

	samples := []int16{30000, -30000, 32767, -32768}
	n.Process(samples, -23.0)

	assert.Equal(t, int16(32767), samples[0])
	assert.Equal(t, int16(-32768), samples[1])
	assert.Equal(t, int16(32767), samples[2])
	assert.Equal(t, int16(-32768), samples[3])
}

func TestProcessMutatesInPlace(t *testing.T) {
	n := NewNormalizer()
	n.currentGain = 0.5
	n.targetGain = 0.5

	samples := []int16{1000, -1000}
	n.Process(samples, -23.0)

	assert.InDelta(t, 500, samples[0], 2)
	assert.InDelta(t, -500, samples[1], 2)
}

func TestProcessEmptyBlock(t *testing.T) {
	n := NewNormalizer()
	n.Process(nil, -23.0)

	assert.Equal(t, 1.0, n.CurrentGain())
}

func TestReset(t *testing.T) {
	n := NewNormalizer()
	n.Process(sineBlock(0.005, 4096), 0.0)

	n.Reset()

	assert.Equal(t, 1.0, n.CurrentGain())
	assert.Equal(t, 1.0, n.TargetGain())
}

func sineBlock(amplitude float64, n int) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		v := amplitude * math.Sin(2.0*math.Pi*440.0*float64(i)/48000.0)
		samples[i] = int16(v * 32767.0)
	}
	return samples
}
