package adapt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/adaptmesh/surface"
)

func TestCoarsenDenseGrid(t *testing.T) {
	// 8x8 grid, h = 0.125; the metric targets h = 0.5 so every edge measures
	// 0.25-0.35, far below L_low.
	m := squareMesh(t, 8, 0.5, 1)
	nodesBefore, _ := aliveCounts(m)

	s := surface.New(m)
	NewCoarsen2D(m, s).Coarsen(1/math.Sqrt2, math.Sqrt2)

	nodesAfter, elementsAfter := aliveCounts(m)
	assert.Less(t, nodesAfter, nodesBefore, "vertex count strictly decreases")
	assert.Greater(t, elementsAfter, 0)
	require.NoError(t, m.Verify())

	// The four corners of the square must survive.
	for _, corner := range []int{0, 8, 72, 80} {
		assert.NotEmpty(t, m.NNList[corner], "corner vertex %d was collapsed", corner)
	}
}

func TestCoarsenDefragmentsDense(t *testing.T) {
	m := squareMesh(t, 8, 0.5, 1)
	s := surface.New(m)
	NewCoarsen2D(m, s).Coarsen(1/math.Sqrt2, math.Sqrt2)

	vertexMap := m.Defragment()
	assert.Len(t, vertexMap, 81)
	nodes, elements := aliveCounts(m)
	assert.Equal(t, int64(nodes), m.NNodes)
	assert.Equal(t, int64(elements), m.NElements)
	require.NoError(t, m.Verify())
}

func TestCoarsenIdempotentWhenConverged(t *testing.T) {
	// Unit metric on a unit grid: every edge is already in [L_low, L_max].
	m := squareMesh(t, 4, 0.25, 1)
	s := surface.New(m)
	NewCoarsen2D(m, s).Coarsen(1/math.Sqrt2, math.Sqrt2)
	require.NoError(t, m.Verify())

	nodes, elements := aliveCounts(m)
	s = surface.New(m)
	NewCoarsen2D(m, s).Coarsen(1/math.Sqrt2, math.Sqrt2)
	nodes2, elements2 := aliveCounts(m)
	assert.Equal(t, nodes, nodes2)
	assert.Equal(t, elements, elements2)
}

func TestCoarsenHaloVerticesUntouched(t *testing.T) {
	m := squareMesh(t, 8, 0.5, 1)
	halo := 40 // an interior vertex
	m.RecvHalo[halo] = true

	s := surface.New(m)
	NewCoarsen2D(m, s).Coarsen(1/math.Sqrt2, math.Sqrt2)

	// The halo vertex itself is never removed and no edge collapses onto it.
	assert.NotEmpty(t, m.NNList[halo], "halo vertex must survive")
	require.NoError(t, m.Verify())
}

func TestCoarsenParallelPartitions(t *testing.T) {
	m := squareMesh(t, 12, 0.5, 2)
	nodesBefore, _ := aliveCounts(m)

	s := surface.New(m)
	NewCoarsen2D(m, s).Coarsen(1/math.Sqrt2, math.Sqrt2)

	nodesAfter, _ := aliveCounts(m)
	assert.Less(t, nodesAfter, nodesBefore)
	require.NoError(t, m.Verify())
}
