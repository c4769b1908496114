// Package dsp holds the signal-processing primitives of the pipeline: the
// per-channel streaming filter, uniform-grid resampling with edge-hold
// interpolation, and cross-correlation lag estimation.
package dsp

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// FilterConfig sizes the two rolling windows of a StreamingFilter from the
// channel's sampling rate.
type FilterConfig struct {
	// SampleRateHz is the channel's raw sampling rate.
	SampleRateHz float64

	// DCWindowS is the DC-removal window length in seconds.
	DCWindowS float64

	// MAWindowS is the moving-average smoothing window length in seconds.
	MAWindowS float64
}

// DefaultFilterConfig returns the tuning used for the ring's PPG channel.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		SampleRateHz: 50.0,
		DCWindowS:    0.20,
		MAWindowS:    0.05,
	}
}

// zeroSnapEpsilon flushes denormal-scale outputs to exactly zero so that a
// settled filter reports 0 rather than accumulated rounding noise.
const zeroSnapEpsilon = 1e-8

// StreamingFilter is a two-stage per-channel filter: a rolling-mean DC
// remover followed by a short moving average. Filters are never shared
// across channels; each hand owns its own instance.
type StreamingFilter struct {
	dc window
	ma window
}

// NewStreamingFilter builds a filter with windows sized from cfg. Window
// sizes round down but never below one sample.
func NewStreamingFilter(cfg FilterConfig) *StreamingFilter {
	return &StreamingFilter{
		dc: newWindow(windowSamples(cfg.DCWindowS, cfg.SampleRateHz)),
		ma: newWindow(windowSamples(cfg.MAWindowS, cfg.SampleRateHz)),
	}
}

func windowSamples(seconds, rateHz float64) int {
	n := int(seconds * rateHz)
	if n < 1 {
		n = 1
	}
	return n
}

// Update pushes one raw sample through both stages and returns the filtered
// value. Non-finite input is rejected: the windows are left untouched and ok
// is false.
func (f *StreamingFilter) Update(raw float64) (out float64, ok bool) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, false
	}
	f.dc.push(raw)
	ac := raw - f.dc.mean()
	f.ma.push(ac)
	out = f.ma.mean()
	if math.Abs(out) < zeroSnapEpsilon {
		out = 0
	}
	return out, true
}

// Reset clears both windows.
func (f *StreamingFilter) Reset() {
	f.dc.reset()
	f.ma.reset()
}

// window is a fixed-capacity rolling sample window.
type window struct {
	vals []float64
	cap  int
}

func newWindow(capacity int) window {
	return window{vals: make([]float64, 0, capacity), cap: capacity}
}

func (w *window) push(v float64) {
	if len(w.vals) < w.cap {
		w.vals = append(w.vals, v)
		return
	}
	copy(w.vals, w.vals[1:])
	w.vals[len(w.vals)-1] = v
}

func (w *window) mean() float64 {
	if len(w.vals) == 0 {
		return 0
	}
	return stat.Mean(w.vals, nil)
}

func (w *window) reset() {
	w.vals = w.vals[:0]
}
