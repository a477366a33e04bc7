package adapt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptRefinesTowardTarget(t *testing.T) {
	// 10x10 grid, h = 0.1, isotropic metric targeting h = 0.05: the sweeps
	// must roughly quadruple the element count and keep every element valid.
	m := squareMesh(t, 10, 0.05, 2)

	opts := DefaultOptions()
	opts.MaxSweeps = 5
	opts.SmoothIterations = 10
	stats := Adapt(m, opts)

	assert.Greater(t, stats.NElements, 400)
	assert.Greater(t, stats.MinQuality, 0.0)
	assert.Less(t, stats.EdgeRMS, 0.8)
	require.NoError(t, m.Verify())

	// Defragmentation left dense indices behind.
	assert.Equal(t, int(m.NNodes)*2, len(m.Coords))
	assert.Equal(t, int(m.NElements)*3, len(m.ENList))
}

func TestAdaptCoarsensOverresolvedGrid(t *testing.T) {
	// 12x12 grid with a metric wanting h = 0.25: vertices must go away.
	m := squareMesh(t, 12, 0.25, 1)
	nodesBefore := int(m.NNodes)

	opts := DefaultOptions()
	opts.MaxSweeps = 4
	opts.SmoothIterations = 5
	stats := Adapt(m, opts)

	assert.Less(t, stats.NNodes, nodesBefore)
	assert.Greater(t, stats.MinQuality, 0.0)
	require.NoError(t, m.Verify())
}

func TestAdaptIdempotentOnConvergedMesh(t *testing.T) {
	m := squareMesh(t, 6, 1.0/6.0, 1)
	opts := DefaultOptions()
	opts.MaxSweeps = 6
	opts.SmoothIterations = 0
	Adapt(m, opts)

	nodes, elements := int(m.NNodes), int(m.NElements)
	Adapt(m, opts)
	assert.Equal(t, nodes, int(m.NNodes))
	assert.Equal(t, elements, int(m.NElements))
}

func TestMeshStats(t *testing.T) {
	m := squareMesh(t, 4, 0.25, 1)
	s := MeshStats(m)
	assert.Equal(t, 25, s.NNodes)
	assert.Equal(t, 32, s.NElements)
	assert.Greater(t, s.MinQuality, 0.0)
	assert.LessOrEqual(t, s.MinQuality, 1.0)
	// Unit-length grid edges leave only the diagonals off target.
	assert.Less(t, s.EdgeRMS, math.Sqrt2-1+1e-9)
}
