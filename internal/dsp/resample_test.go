package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolateAt(t *testing.T) {
	t.Parallel()

	points := []TimedSample{{T: 1, V: 10}, {T: 2, V: 20}, {T: 4, V: 40}}

	tests := []struct {
		name string
		t    float64
		want float64
	}{
		{"before first sample holds first", 0.5, 10},
		{"at first sample", 1, 10},
		{"midpoint", 1.5, 15},
		{"between wide gap", 3, 30},
		{"at last sample", 4, 40},
		{"after last sample holds last", 9, 40},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, ok := InterpolateAt(points, tt.t)
			require.True(t, ok)
			assert.InDelta(t, tt.want, v, 1e-12)
		})
	}

	_, ok := InterpolateAt(nil, 1)
	assert.False(t, ok, "no samples means no value")

	v, ok := InterpolateAt([]TimedSample{{T: 3, V: 7}}, 100)
	require.True(t, ok)
	assert.Equal(t, 7.0, v, "single sample held on both sides")
}

func TestResample(t *testing.T) {
	t.Parallel()

	points := []TimedSample{
		{T: 0.0, V: 0},
		{T: 0.1, V: 1},
		{T: 0.2, V: 2},
		{T: 0.35, V: 3},
	}

	res := Resample(points, 0, 0.3, 0.1)
	require.Len(t, res.Times, 4)
	assert.Equal(t, 3, res.Anchors, "three raw points inside [0, 0.3]")
	assert.Equal(t, 4, res.Valid)
	assert.InDelta(t, 2.0, res.Values[2], 1e-12)

	t.Run("non-finite anchors reduce valid count", func(t *testing.T) {
		t.Parallel()
		bad := []TimedSample{{T: 0, V: 0}, {T: 1, V: math.NaN()}}
		res := Resample(bad, 0, 1, 0.5)
		assert.Equal(t, 2, res.Anchors)
		assert.Less(t, res.Valid, len(res.Values))
	})

	t.Run("degenerate window", func(t *testing.T) {
		t.Parallel()
		res := Resample(points, 1, 0, 0.1)
		assert.Empty(t, res.Times)
		res = Resample(points, 0, 1, 0)
		assert.Empty(t, res.Times)
	})

	t.Run("empty ring yields no grid", func(t *testing.T) {
		t.Parallel()
		res := Resample(nil, 0, 1, 0.1)
		assert.Empty(t, res.Times)
		assert.Zero(t, res.Anchors)
	})
}
