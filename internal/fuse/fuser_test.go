package fuse

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jiyounlee0423/HeartSync-Ring/internal/link"
	"github.com/Jiyounlee0423/HeartSync-Ring/internal/stream"
)

func TestFuserNoEmissionBeforeBothSidesHaveData(t *testing.T) {
	t.Parallel()

	f := New(DefaultConfig())

	// A long run of left-only samples produces nothing.
	for i := 0; i < 100; i++ {
		pts := f.PushLeft(float64(i)*0.02, float64(i))
		assert.Empty(t, pts)
	}

	// The first right sample bounds the reference at its own time.
	pts := f.PushRight(1.0, 500)
	assert.NotEmpty(t, pts)
}

func TestFuserGridSpacing(t *testing.T) {
	t.Parallel()

	f := New(Config{GridMs: 20, WindowS: 10})

	var got []SyncedPoint
	for i := 0; i <= 100; i++ {
		ts := float64(i) * 0.01 // both hands at 100 Hz, same clock
		got = append(got, f.PushLeft(ts, float64(i))...)
		got = append(got, f.PushRight(ts, float64(i)*2)...)
	}
	require.NotEmpty(t, got)

	for i := 1; i < len(got); i++ {
		assert.InDelta(t, 0.02, got[i].TimeSeconds-got[i-1].TimeSeconds, 1e-9,
			"emitted points must be exactly one grid step apart")
	}
}

func TestFuserMonotonicUnderArbitraryInterleaving(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	f := New(Config{GridMs: 20, WindowS: 10})

	var emitted []SyncedPoint
	tLeft, tRight := 0.0, 0.0
	for i := 0; i < 5000; i++ {
		// Irregular, independently-clocked arrivals; either side may lead.
		if rng.Intn(2) == 0 {
			tLeft += 0.005 + rng.Float64()*0.03
			emitted = append(emitted, f.PushLeft(tLeft, rng.Float64())...)
		} else {
			tRight += 0.005 + rng.Float64()*0.03
			emitted = append(emitted, f.PushRight(tRight, rng.Float64())...)
		}
	}
	require.NotEmpty(t, emitted)

	for i := 1; i < len(emitted); i++ {
		step := emitted[i].TimeSeconds - emitted[i-1].TimeSeconds
		assert.Greater(t, step, 0.0, "times must be strictly increasing")
		// Steps are whole multiples of dt: skipped instants are skipped,
		// never revisited or fractionally spaced.
		ratio := step / 0.02
		assert.InDelta(t, math.Round(ratio), ratio, 1e-6)
	}
}

func TestFuserEdgeHoldValues(t *testing.T) {
	t.Parallel()

	f := New(Config{GridMs: 100, WindowS: 10})

	f.PushLeft(0.0, 10)
	f.PushLeft(1.0, 20)

	// Right has a single sample at t=1.0; edge-hold supplies its value
	// across the whole overlap.
	pts := f.PushRight(1.0, 77)
	require.NotEmpty(t, pts)
	for _, p := range pts {
		assert.Equal(t, float32(77), p.Right)
	}
	// Left values are linearly interpolated between its two anchors.
	first := pts[0]
	wantLeft := 10 + (20-10)*first.TimeSeconds/1.0
	assert.InDelta(t, wantLeft, float64(first.Left), 1e-5)
}

func TestFuserStalledHandHaltsEmission(t *testing.T) {
	t.Parallel()

	f := New(Config{GridMs: 20, WindowS: 10})
	f.PushLeft(0, 1)
	f.PushRight(0, 1)

	// Right stops at t=0; left keeps going. Reference stays pinned at the
	// slower hand, so nothing further is emitted.
	for i := 1; i <= 200; i++ {
		pts := f.PushLeft(float64(i)*0.02, 1)
		assert.Empty(t, pts)
	}
}

func TestFuserPrunesHistory(t *testing.T) {
	t.Parallel()

	cfg := Config{GridMs: 20, WindowS: 1} // 1.5s retention
	f := New(cfg)
	for i := 0; i < 1000; i++ {
		f.PushLeft(float64(i)*0.02, 1)
	}
	latest := f.hist[sideLeft][0].T
	assert.GreaterOrEqual(t, latest, 999*0.02-1.5*cfg.WindowS)
	assert.Less(t, len(f.hist[sideLeft]), 1000)
}

func TestFuserIgnoresOutOfOrderSamples(t *testing.T) {
	t.Parallel()

	f := New(DefaultConfig())
	f.PushLeft(1.0, 5)
	assert.Empty(t, f.PushLeft(0.5, 9), "regressing timestamps are dropped")
	require.Len(t, f.hist[sideLeft], 1)
	assert.Equal(t, 1.0, f.hist[sideLeft][0].T)
}

func TestFuserRunPublishes(t *testing.T) {
	t.Parallel()

	left := make(chan link.RawSample, 16)
	right := make(chan link.RawSample, 16)
	out := stream.NewBroadcast[SyncedPoint](64)
	defer out.Close()
	_, sub := out.Subscribe()

	f := New(Config{GridMs: 20, WindowS: 10})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.Run(ctx, left, right, out)
	}()

	for i := 0; i <= 10; i++ {
		ts := float64(i) * 0.02
		left <- link.RawSample{TimeSeconds: ts, PPG: float32(i)}
		right <- link.RawSample{TimeSeconds: ts, PPG: float32(i * 3)}
	}

	var got []SyncedPoint
	deadline := time.After(time.Second)
	for len(got) < 5 {
		select {
		case p := <-sub:
			got = append(got, p)
		case <-deadline:
			t.Fatal("timed out waiting for synced points")
		}
	}

	close(left)
	close(right)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after both inputs closed")
	}
}
