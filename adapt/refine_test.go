package adapt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefineUniform(t *testing.T) {
	// 4x4 grid, h = 0.25; the metric targets h = 1/6 so every edge measures
	// 1.5 or longer and all 32 triangles split uniformly in four.
	m := squareMesh(t, 4, 1.0/6.0, 1)

	NewRefine2D(m).Refine(math.Sqrt2)

	assert.Equal(t, int64(81), m.NNodes, "every edge gains a midpoint")
	assert.Equal(t, int64(128), m.NElements)
	require.NoError(t, m.Verify())

	nodes, elements := aliveCounts(m)
	assert.Equal(t, 81, nodes)
	assert.Equal(t, 128, elements)

	// Refine never inverts.
	for e := 0; e < int(m.NElements); e++ {
		assert.Greater(t, m.ElementSize(e), 0.0)
	}
	assert.LessOrEqual(t, maxEdgeLength(m), math.Sqrt2*(1+1e-12))
}

func TestRefineIdempotent(t *testing.T) {
	m := squareMesh(t, 4, 1.0/6.0, 1)
	r := NewRefine2D(m)
	r.Refine(math.Sqrt2)
	nodes := m.NNodes

	NewRefine2D(m).Refine(math.Sqrt2)
	assert.Equal(t, nodes, m.NNodes, "converged mesh is untouched")
	require.NoError(t, m.Verify())
}

func TestRefineParallelMatchesInvariants(t *testing.T) {
	m := squareMesh(t, 8, 1.0/12.0, 4)
	NewRefine2D(m).Refine(math.Sqrt2)

	assert.Equal(t, int64(17*17), m.NNodes)
	assert.Equal(t, int64(512), m.NElements)
	require.NoError(t, m.Verify())
}

func TestRefineAnisotropicStaysValid(t *testing.T) {
	// A strongly anisotropic metric: refinement only along x.
	m := squareMesh(t, 2, 0, 1)
	for v := 0; v < int(m.NNodes); v++ {
		mm := m.GetMetric(v)
		mm[0] = 1e6 // wants h_x ~ 1e-3
		mm[1] = 0
		mm[2] = 1
	}

	for sweep := 0; sweep < 3; sweep++ {
		NewRefine2D(m).Refine(math.Sqrt2)
	}
	require.NoError(t, m.Verify())
	assert.Greater(t, minQuality(m), 0.0, "no inverted or degenerate elements")

	_, elements := aliveCounts(m)
	assert.Greater(t, elements, 8, "anisotropy drives splitting")
}

func TestRefineBoundaryTagsPropagate(t *testing.T) {
	m := squareMesh(t, 2, 1.0/6.0, 1)
	NewRefine2D(m).Refine(math.Sqrt2)

	// Verify includes the closed-manifold boundary walk; additionally the
	// count of tagged facets must have doubled with the boundary edges.
	require.NoError(t, m.Verify())
	tagged := 0
	for _, b := range m.Boundary[:int(m.NElements)*3] {
		if b > 0 {
			tagged++
		}
	}
	assert.Equal(t, 16, tagged, "each of the 8 boundary edges split once")
}
