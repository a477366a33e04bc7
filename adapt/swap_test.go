package adapt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/adaptmesh/mesh"
	"github.com/notargets/adaptmesh/surface"
)

// Two slivers sharing the long edge (0,1); flipping to the short apex-apex
// edge is a clear quality win.
//
//	      2
//	0-----------1
//	      3
func sliverPair(t *testing.T, threads int) *mesh.Mesh {
	t.Helper()
	coords := []float64{
		0, 0,
		2, 0,
		1, 0.1,
		1, -0.1,
	}
	enlist := []int{
		0, 1, 2,
		0, 3, 1,
	}
	m, err := mesh.New(2, coords, enlist, nil, nil, mesh.Config{Threads: threads})
	require.NoError(t, err)
	return m
}

func TestSwap2DFlipsSliverPair(t *testing.T) {
	m := sliverPair(t, 1)
	qBefore := minQuality(m)
	require.Less(t, qBefore, 0.2)

	sw := NewSwap(m, surface.New(m))
	sw.Swap(0.5)

	qAfter := minQuality(m)
	assert.Greater(t, qAfter, qBefore, "accepted flip strictly improves the pair")
	assert.Greater(t, qAfter, 0.3)

	// The long edge is gone, the apex edge exists.
	assert.NotContains(t, m.NNList[0], 1)
	assert.NotContains(t, m.NNList[1], 0)
	assert.Contains(t, m.NNList[2], 3)
	assert.Contains(t, m.NNList[3], 2)

	require.NoError(t, m.Verify())
}

func TestSwap2DIdempotent(t *testing.T) {
	m := sliverPair(t, 1)
	NewSwap(m, surface.New(m)).Swap(0.5)
	enlist := append([]int(nil), m.ENList...)

	NewSwap(m, surface.New(m)).Swap(0.5)
	assert.Equal(t, enlist, m.ENList, "second sweep performs zero mutations")
}

func TestSwap2DRespectsQMin(t *testing.T) {
	// With QMin below the pair quality no flip is considered.
	m := sliverPair(t, 1)
	enlist := append([]int(nil), m.ENList...)
	NewSwap(m, surface.New(m)).Swap(0.01)
	assert.Equal(t, enlist, m.ENList)
}

func TestSwap2DHaloFrozen(t *testing.T) {
	m := sliverPair(t, 1)
	m.RecvHalo[0] = true
	enlist := append([]int(nil), m.ENList...)

	NewSwap(m, surface.New(m)).Swap(0.5)

	assert.Equal(t, enlist, m.ENList, "no element incident to the halo vertex is modified")
	require.NoError(t, m.Verify())
}

func TestSwap2DGlobalMinNonDecreasing(t *testing.T) {
	// A grid with one interior vertex dragged toward a neighbour produces
	// several poor pairs; a sweep must not lower the global minimum.
	m := squareMesh(t, 4, 0.25, 1)
	c := m.GetCoords(12) // interior vertex
	c[0] += 0.1
	c[1] += 0.08

	qBefore := minQuality(m)
	require.Greater(t, qBefore, 0.0)

	NewSwap(m, surface.New(m)).Swap(0.9)
	qAfter := minQuality(m)
	assert.GreaterOrEqual(t, qAfter, qBefore)
	require.NoError(t, m.Verify())
}

func TestSwap2DParallel(t *testing.T) {
	m := squareMesh(t, 8, 0.125, 4)
	c := m.GetCoords(40)
	c[0] += 0.05

	qBefore := minQuality(m)
	NewSwap(m, surface.New(m)).Swap(0.9)
	assert.GreaterOrEqual(t, minQuality(m), qBefore)
	require.NoError(t, m.Verify())
}
