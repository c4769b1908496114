package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(n int, fsHz, freqHz float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freqHz * float64(i) / fsHz)
	}
	return out
}

func TestEstimateLagIdenticalSignals(t *testing.T) {
	t.Parallel()

	const fsHz = 100.0
	x := Detrend(sine(400, fsHz, 1.3), fsHz)

	offsetMs, corr, err := EstimateLag(x, x, fsHz, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, offsetMs, 1e-6, "identical signals have zero offset")

	// The peak equals the zero-lag autocorrelation and is maximal among all
	// tested lags.
	for _, p := range Correlogram(x, x, 100) {
		if p.OK {
			assert.LessOrEqual(t, p.Corr, corr+1e-12)
		}
	}
}

func TestEstimateLagDetectsShift(t *testing.T) {
	t.Parallel()

	const fsHz = 100.0
	const shift = 7 // samples
	base := sine(500, fsHz, 2.0)

	// left trails right by `shift` samples: left[i] = base[i-shift].
	left := make([]float64, len(base))
	for i := range left {
		j := i - shift
		if j < 0 {
			j = 0
		}
		left[i] = base[j]
	}
	l := Detrend(left, fsHz)
	r := Detrend(base, fsHz)

	offsetMs, corr, err := EstimateLag(l, r, fsHz, 1.0)
	require.NoError(t, err)
	assert.InDelta(t, float64(shift)/fsHz*1000, offsetMs, 5.0)
	assert.Greater(t, corr, 0.5)
}

func TestEstimateLagErrors(t *testing.T) {
	t.Parallel()

	_, _, err := EstimateLag(nil, []float64{1}, 100, 1)
	assert.ErrorIs(t, err, ErrEmptySeries)

	_, _, err = EstimateLag([]float64{1}, nil, 100, 1)
	assert.ErrorIs(t, err, ErrEmptySeries)

	_, _, err = EstimateLag([]float64{1}, []float64{1}, 0, 1)
	assert.Error(t, err)
}

func TestCorrelogramSkipsEmptyOverlap(t *testing.T) {
	t.Parallel()

	// With 3-sample series, lags beyond +-2 have no overlapping region.
	points := Correlogram([]float64{1, 2, 3}, []float64{1, 2, 3}, 5)
	require.Len(t, points, 11)
	for _, p := range points {
		if p.Lag < -2 || p.Lag > 2 {
			assert.False(t, p.OK, "lag %d should have empty overlap", p.Lag)
		} else {
			assert.True(t, p.OK, "lag %d should overlap", p.Lag)
		}
	}
}

func TestDetrend(t *testing.T) {
	t.Parallel()

	t.Run("constant signal uses unit divisor", func(t *testing.T) {
		t.Parallel()
		x := []float64{5, 5, 5, 5, 5}
		out := Detrend(x, 100)
		for _, v := range out {
			assert.Equal(t, 0.0, v, "constant minus its mean is zero, unscaled")
		}
	})

	t.Run("short series falls back to full mean", func(t *testing.T) {
		t.Parallel()
		// 10 samples at 100 Hz is far shorter than the 1500 ms baseline
		// window, so the full-series mean is subtracted.
		x := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
		out := Detrend(x, 100)
		var sum float64
		for _, v := range out {
			sum += v
		}
		assert.InDelta(t, 0.0, sum, 1e-9)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, Detrend(nil, 100))
	})
}
