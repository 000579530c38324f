package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRMSAllZeros(t *testing.T) {
	samples := make([]int16, 1024)

	assert.Equal(t, 0.0, RMS(samples))
	assert.Equal(t, 0.0, Peak(samples))
	assert.True(t, IsSilence(samples, -40.0))
}

func TestRMSEmptyBlock(t *testing.T) {
	assert.Equal(t, 0.0, RMS(nil))
	assert.Equal(t, 0.0, Peak(nil))
}

func TestRMSFullScale(t *testing.T) {
	samples := make([]int16, 1024)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = 32767
		} else {
			samples[i] = -32768
		}
	}

	rms := RMS(samples)
	peak := Peak(samples)

	assert.InDelta(t, 1.0, rms, 0.001)
	assert.InDelta(t, 1.0, peak, 0.001)
	assert.False(t, IsSilence(samples, -40.0))
}

func TestRMSAndPeakBounded(t *testing.T) {
	blocks := [][]int16{
		{0},
		{1, -1, 2, -2},
		{32767, -32768},
		{100, 2000, -30000, 15000},
	}

	for _, block := range blocks {
		rms := RMS(block)
		peak := Peak(block)
		assert.GreaterOrEqual(t, rms, 0.0)
		assert.LessOrEqual(t, rms, 1.0)
		assert.GreaterOrEqual(t, peak, 0.0)
		assert.LessOrEqual(t, peak, 1.0)
	}
}

func TestPeakUsesAbsoluteValue(t *testing.T) {
	samples := []int16{100, -20000, 500}
	assert.InDelta(t, 20000.0/32768.0, Peak(samples), 1e-9)
}

func TestAnalyzeUpdatesSNROnlyAboveNoiseFloor(t *testing.T) {
	a := NewAnalyzer()

	loud := sineBlock(0.5, 4096)
	stats := a.Analyze(loud, -40.0)
	assert.False(t, stats.Silence)

	snrAfterLoud := a.SNR()
	assert.Greater(t, snrAfterLoud, 0.0)

	// Near-silent block: SNR estimate must be left unchanged
	quiet := make([]int16, 4096)
	stats = a.Analyze(quiet, -40.0)
	assert.True(t, stats.Silence)
	assert.Equal(t, snrAfterLoud, a.SNR())
}

func TestAnalyzeSNRValue(t *testing.T) {
	a := NewAnalyzer()
	block := sineBlock(0.5, 4096)

	stats := a.Analyze(block, -40.0)

	expected := 20.0 * math.Log10(stats.RMS/0.001)
	assert.InDelta(t, expected, a.SNR(), 1e-9)
}

func TestRMSHistoryBounded(t *testing.T) {
	a := NewAnalyzer()
	block := sineBlock(0.1, 256)

	for range 150 {
		a.Analyze(block, -40.0)
	}

	history := a.RMSHistory()
	assert.Len(t, history, 100)
}

func TestReset(t *testing.T) {
	a := NewAnalyzer()
	a.Analyze(sineBlock(0.5, 1024), -40.0)

	a.Reset()

	assert.Empty(t, a.RMSHistory())
	assert.Equal(t, 0.0, a.SNR())
}

// sineBlock generates one block of a 440 Hz tone at the given amplitude
func sineBlock(amplitude float64, n int) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		v := amplitude * math.Sin(2.0*math.Pi*440.0*float64(i)/48000.0)
		samples[i] = int16(v * 32767.0)
	}
	return samples
}
