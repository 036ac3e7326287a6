package calculation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolate(t *testing.T) {
	values := []float64{0, 10, 0, 0, 40, 0, 0}
	known := []bool{false, true, false, false, true, false, false}

	t.Run("interior fills between anchors only", func(t *testing.T) {
		out, ok, err := Interpolate("test", values, known, FillInterior)
		require.NoError(t, err)
		assert.Equal(t, []bool{false, true, true, true, true, false, false}, ok)
		assert.InDelta(t, 20.0, out[2], 1e-9)
		assert.InDelta(t, 30.0, out[3], 1e-9)
	})

	t.Run("forward also carries the last value", func(t *testing.T) {
		out, ok, err := Interpolate("test", values, known, FillForward)
		require.NoError(t, err)
		assert.Equal(t, []bool{false, true, true, true, true, true, true}, ok)
		assert.Equal(t, 40.0, out[5])
		assert.Equal(t, 40.0, out[6])
	})

	t.Run("none leaves gaps", func(t *testing.T) {
		_, ok, err := Interpolate("test", values, known, FillNone)
		require.NoError(t, err)
		assert.Equal(t, known, ok)
	})

	t.Run("inputs are not modified", func(t *testing.T) {
		before := append([]float64(nil), values...)
		_, _, err := Interpolate("test", values, known, FillForward)
		require.NoError(t, err)
		assert.Equal(t, before, values)
		assert.False(t, known[2])
	})
}

func TestInterpolateNeedsTwoAnchors(t *testing.T) {
	_, _, err := Interpolate("cpi", []float64{0, 5, 0}, []bool{false, true, false}, FillForward)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataGap))

	var gap *DataGapError
	require.ErrorAs(t, err, &gap)
	assert.Equal(t, "cpi", gap.Series)
	assert.Equal(t, 1, gap.Anchors)
}

func TestInterpolateWithoutGapsNeedsNoAnchors(t *testing.T) {
	out, ok, err := Interpolate("single", []float64{7}, []bool{true}, FillInterior)
	require.NoError(t, err)
	assert.Equal(t, []float64{7}, out)
	assert.Equal(t, []bool{true}, ok)
}

func TestFillDirectionString(t *testing.T) {
	assert.Equal(t, "none", FillNone.String())
	assert.Equal(t, "interior", FillInterior.String())
	assert.Equal(t, "forward", FillForward.String())
}
