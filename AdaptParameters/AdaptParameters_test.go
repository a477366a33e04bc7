package AdaptParameters

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAppliesDefaults(t *testing.T) {
	ap := &Parameters{}
	require.NoError(t, ap.Parse([]byte("Title: empty run\n")))

	assert.Equal(t, "empty run", ap.Title)
	assert.InDelta(t, 1/math.Sqrt2, ap.LLow, 1e-14)
	assert.InDelta(t, math.Sqrt2, ap.LMax, 1e-14)
	assert.Equal(t, 10, ap.MaxSweeps)
	assert.Equal(t, 1, ap.Threads)
	assert.Equal(t, 8, ap.BucketScaling)
}

func TestParseOverrides(t *testing.T) {
	ap := &Parameters{}
	data := []byte(`
Title: naca adaptation
LLow: 0.6
LMax: 1.5
QMin: 0.3
MaxSweeps: 3
Threads: 8
BucketScaling: 16
`)
	require.NoError(t, ap.Parse(data))
	assert.Equal(t, 0.6, ap.LLow)
	assert.Equal(t, 1.5, ap.LMax)
	assert.Equal(t, 0.3, ap.QMin)
	assert.Equal(t, 3, ap.MaxSweeps)
	assert.Equal(t, 8, ap.Threads)
	assert.Equal(t, 16, ap.BucketScaling)
}

func TestParseRejectsGarbage(t *testing.T) {
	ap := &Parameters{}
	assert.Error(t, ap.Parse([]byte("LLow: [not, a, number]")))
}
