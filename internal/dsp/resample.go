package dsp

import "math"

// TimedSample is one irregularly-timed measurement.
type TimedSample struct {
	T float64 // seconds, monotonic
	V float64
}

// InterpolateAt evaluates the piecewise-linear interpolant of points at t
// with edge-hold: a query before the first sample or after the last returns
// that boundary sample's value. Points must be sorted by time. ok is false
// only when points is empty.
func InterpolateAt(points []TimedSample, t float64) (v float64, ok bool) {
	n := len(points)
	if n == 0 {
		return 0, false
	}
	if t <= points[0].T {
		return points[0].V, true
	}
	if t >= points[n-1].T {
		return points[n-1].V, true
	}
	// Binary search for the first point at or after t.
	lo, hi := 0, n-1
	for lo+1 < hi {
		mid := (lo + hi) / 2
		if points[mid].T <= t {
			lo = mid
		} else {
			hi = mid
		}
	}
	a, b := points[lo], points[hi]
	span := b.T - a.T
	if span <= 0 {
		return a.V, true
	}
	frac := (t - a.T) / span
	return a.V + (b.V-a.V)*frac, true
}

// ResampleResult is a uniform-grid rendering of a bounded sample window plus
// diagnostic counts for batch analysis.
type ResampleResult struct {
	Times  []float64
	Values []float64

	// Anchors is the number of raw points inside [tStart, tEnd].
	Anchors int

	// Valid is the number of interpolated grid values that are finite.
	Valid int
}

// Resample renders points onto a uniform grid over [tStart, tEnd] spaced dt
// apart, using the same linear interpolation and edge-hold policy as the
// live fuser. Points must be sorted by time.
func Resample(points []TimedSample, tStart, tEnd, dt float64) ResampleResult {
	var res ResampleResult
	if dt <= 0 || tEnd < tStart {
		return res
	}
	for _, p := range points {
		if p.T >= tStart && p.T <= tEnd {
			res.Anchors++
		}
	}
	for t := tStart; t <= tEnd+dt/2; t += dt {
		v, ok := InterpolateAt(points, t)
		if !ok {
			break
		}
		res.Times = append(res.Times, t)
		res.Values = append(res.Values, v)
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			res.Valid++
		}
	}
	return res
}
