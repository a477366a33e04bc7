package adapt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/adaptmesh/surface"
)

func TestSmoothRecoversPerturbedGrid(t *testing.T) {
	m := squareMesh(t, 4, 0.25, 1)
	c := m.GetCoords(12)
	c[0] += 0.09
	c[1] += 0.07

	qBefore := minQuality(m)
	require.Greater(t, qBefore, 0.0)

	iters := NewSmooth(m, surface.New(m)).Run(100, 1e-5)
	assert.Greater(t, iters, 0)
	assert.LessOrEqual(t, iters, 100)

	assert.GreaterOrEqual(t, minQuality(m), qBefore, "accepted moves never lower patch quality")
	require.NoError(t, m.Verify())
}

func TestSmoothLeavesBoundaryAlone(t *testing.T) {
	m := squareMesh(t, 4, 0.25, 2)
	var boundaryCoords []float64
	s := surface.New(m)
	for v := 0; v < int(m.NNodes); v++ {
		if s.Contains(v) {
			boundaryCoords = append(boundaryCoords, m.GetCoords(v)...)
		}
	}

	NewSmooth(m, s).Run(20, 1e-8)

	var after []float64
	for v := 0; v < int(m.NNodes); v++ {
		if s.Contains(v) {
			after = append(after, m.GetCoords(v)...)
		}
	}
	assert.Equal(t, boundaryCoords, after)
}

func TestSmoothConvergesOnUniformGrid(t *testing.T) {
	// An already uniform grid is at the Laplacian fixpoint.
	m := squareMesh(t, 4, 0.25, 1)
	iters := NewSmooth(m, surface.New(m)).Run(100, 1e-5)
	assert.LessOrEqual(t, iters, 2)
	require.NoError(t, m.Verify())
}
