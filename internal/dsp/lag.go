package dsp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultBaselineWindowMs is the centered moving-average window used by
// Detrend to estimate the slow baseline.
const DefaultBaselineWindowMs = 1500.0

// ErrEmptySeries is returned when a lag estimate is requested over an empty
// input.
var ErrEmptySeries = errors.New("empty input series")

// Detrend removes a slow baseline from x and normalizes the remainder to
// unit variance. The baseline is a centered moving average over
// DefaultBaselineWindowMs; when that window is at least the series length
// the full-series mean is used instead. A zero standard deviation leaves the
// signal unscaled rather than dividing by zero.
func Detrend(x []float64, fsHz float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	half := int(DefaultBaselineWindowMs / 1000.0 * fsHz / 2.0)
	if 2*half+1 >= len(x) {
		mean := stat.Mean(x, nil)
		for i, v := range x {
			out[i] = v - mean
		}
	} else {
		for i := range x {
			lo := i - half
			if lo < 0 {
				lo = 0
			}
			hi := i + half + 1
			if hi > len(x) {
				hi = len(x)
			}
			out[i] = x[i] - stat.Mean(x[lo:hi], nil)
		}
	}
	std := stat.StdDev(out, nil)
	if std == 0 || math.IsNaN(std) {
		std = 1.0
	}
	floats.Scale(1.0/std, out)
	return out
}

// CorrPoint is the correlation measured at one integer sample lag.
type CorrPoint struct {
	Lag  int
	Corr float64

	// OK is false when the two series had no overlap at this lag.
	OK bool
}

// Correlogram computes the mean pointwise product of left and right at every
// integer lag in [-maxLag, +maxLag]. A positive lag means the left series
// trails (is delayed relative to) the right series. The result has 2*maxLag+1 entries, index lag+maxLag.
func Correlogram(left, right []float64, maxLag int) []CorrPoint {
	points := make([]CorrPoint, 2*maxLag+1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		p := CorrPoint{Lag: lag}
		var sum float64
		var n int
		for i := range left {
			j := i - lag
			if j < 0 || j >= len(right) {
				continue
			}
			sum += left[i] * right[j]
			n++
		}
		if n > 0 {
			p.Corr = sum / float64(n)
			p.OK = true
		}
		points[lag+maxLag] = p
	}
	return points
}

// EstimateLag measures the time offset between two pre-normalized series by
// cross-correlation, refined to sub-sample precision by parabolic
// interpolation around the integer-lag peak. The offset is returned in
// milliseconds; a positive offset means the left series trails the right
// series. corr is the peak
// correlation value.
func EstimateLag(left, right []float64, fsHz, maxLagS float64) (offsetMs, corr float64, err error) {
	if len(left) == 0 || len(right) == 0 {
		return 0, 0, ErrEmptySeries
	}
	if fsHz <= 0 {
		return 0, 0, fmt.Errorf("non-positive sample rate %v", fsHz)
	}
	maxLag := int(maxLagS * fsHz)
	if maxLag < 1 {
		maxLag = 1
	}

	points := Correlogram(left, right, maxLag)
	bestIdx := -1
	for i, p := range points {
		if !p.OK {
			continue
		}
		if bestIdx < 0 || p.Corr > points[bestIdx].Corr {
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return 0, 0, errors.New("no lag with overlapping samples")
	}

	best := points[bestIdx]
	refined := float64(best.Lag)
	if bestIdx > 0 && bestIdx < len(points)-1 && points[bestIdx-1].OK && points[bestIdx+1].OK {
		cm := points[bestIdx-1].Corr
		c0 := best.Corr
		cp := points[bestIdx+1].Corr
		denom := cm - 2*c0 + cp
		if math.Abs(denom) > 1e-12 {
			delta := 0.5 * (cm - cp) / denom
			if delta >= -1.5 && delta <= 1.5 {
				refined += delta
			}
		}
	}
	return refined / fsHz * 1000.0, best.Corr, nil
}
