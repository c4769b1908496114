// Package fuse aligns the two hands' independently-clocked raw sample
// streams onto one uniform time grid.
package fuse

import (
	"context"
	"math"

	"github.com/Jiyounlee0423/HeartSync-Ring/internal/dsp"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/link"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/stream"
)

// Config tunes the fuser's grid and retention.
type Config struct {
	// GridMs is the emission grid step in milliseconds.
	GridMs float64

	// WindowS is the nominal retention window in seconds; histories are
	// pruned to 1.5x this value behind each hand's latest sample.
	WindowS float64
}

// DefaultConfig returns the 50 Hz grid with 10 s retention.
func DefaultConfig() Config {
	return Config{GridMs: 20, WindowS: 10}
}

// SyncedPoint is one grid-aligned sample pair. Points are emitted with
// strictly non-decreasing, dt-spaced times.
type SyncedPoint struct {
	TimeSeconds float64 `json:"t"`
	Left        float32 `json:"left"`
	Right       float32 `json:"right"`
}

const (
	sideLeft = iota
	sideRight
)

// Fuser merges two raw sample streams. Emission is bounded by the slower
// hand: the reference time is the minimum of both hands' latest sample
// times, so a point is only ever produced where both sides have genuine
// coverage. Instants where either side has no value are skipped, never
// retried.
//
// A hand that stops producing entirely halts all future emission; the fuser
// deliberately has no per-channel timeout of its own.
type Fuser struct {
	cfg    Config
	dt     float64
	hist   [2][]dsp.TimedSample
	clock  float64 // last emission instant
	primed bool    // first sample seen; emission clock established
}

// New creates a Fuser. Non-positive grid or window fall back to defaults.
func New(cfg Config) *Fuser {
	def := DefaultConfig()
	if cfg.GridMs <= 0 {
		cfg.GridMs = def.GridMs
	}
	if cfg.WindowS <= 0 {
		cfg.WindowS = def.WindowS
	}
	return &Fuser{cfg: cfg, dt: cfg.GridMs / 1000.0}
}

// PushLeft feeds one left-hand sample and returns any points it unlocked.
func (f *Fuser) PushLeft(t, v float64) []SyncedPoint {
	return f.push(sideLeft, t, v)
}

// PushRight feeds one right-hand sample and returns any points it unlocked.
func (f *Fuser) PushRight(t, v float64) []SyncedPoint {
	return f.push(sideRight, t, v)
}

func (f *Fuser) push(side int, t, v float64) []SyncedPoint {
	h := f.hist[side]
	if n := len(h); n > 0 && t < h[n-1].T {
		// Out-of-order within a hand violates the link's ordering
		// guarantee; drop rather than corrupt the history.
		return nil
	}
	h = append(h, dsp.TimedSample{T: t, V: v})

	// Prune anything older than 1.5 windows behind this hand's latest.
	cutoff := t - 1.5*f.cfg.WindowS
	trim := 0
	for trim < len(h) && h[trim].T < cutoff {
		trim++
	}
	f.hist[side] = h[trim:]

	if !f.primed {
		f.primed = true
		f.clock = t
	}

	left, right := f.hist[sideLeft], f.hist[sideRight]
	if len(left) == 0 || len(right) == 0 {
		return nil
	}
	reference := math.Min(left[len(left)-1].T, right[len(right)-1].T)

	var out []SyncedPoint
	for reference-f.clock >= f.dt {
		f.clock += f.dt
		lv, lok := dsp.InterpolateAt(left, f.clock)
		rv, rok := dsp.InterpolateAt(right, f.clock)
		if lok && rok {
			out = append(out, SyncedPoint{
				TimeSeconds: f.clock,
				Left:        float32(lv),
				Right:       float32(rv),
			})
		}
	}
	return out
}

// Run consumes both hands' sample channels until ctx is cancelled or both
// channels close, publishing synced points into out.
func (f *Fuser) Run(ctx context.Context, left, right <-chan link.RawSample, out *stream.Broadcast[SyncedPoint]) {
	for left != nil || right != nil {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-left:
			if !ok {
				left = nil
				continue
			}
			for _, p := range f.PushLeft(s.TimeSeconds, float64(s.PPG)) {
				out.Publish(p)
			}
		case s, ok := <-right:
			if !ok {
				right = nil
				continue
			}
			for _, p := range f.PushRight(s.TimeSeconds, float64(s.PPG)) {
				out.Publish(p)
			}
		}
	}
}
