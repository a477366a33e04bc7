package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/adaptmesh/mesh"
)

// A 2x1 strip of the unit square: six vertices, four triangles.
//
//	3---4---5
//	| \ | \ |
//	0---1---2
func stripMesh(t *testing.T) *mesh.Mesh {
	t.Helper()
	coords := []float64{
		0, 0,
		1, 0,
		2, 0,
		0, 1,
		1, 1,
		2, 1,
	}
	enlist := []int{
		0, 1, 3,
		1, 4, 3,
		1, 2, 4,
		2, 5, 4,
	}
	m, err := mesh.New(2, coords, enlist, nil, nil, mesh.Config{Threads: 1})
	require.NoError(t, err)
	return m
}

func TestSurfaceExtraction(t *testing.T) {
	m := stripMesh(t)
	s := New(m)

	// Perimeter has six facets; interior diagonals none.
	assert.Equal(t, 6, len(s.Boundary))
	for v := 0; v < 6; v++ {
		assert.True(t, s.Contains(v), "vertex %d lies on the perimeter", v)
	}
}

func TestCornerDetection(t *testing.T) {
	m := stripMesh(t)
	s := New(m)

	for _, corner := range []int{0, 2, 3, 5} {
		assert.True(t, s.IsCornerVertex(corner), "vertex %d", corner)
	}
	// Mid-side vertices sit on straight segments.
	assert.False(t, s.IsCornerVertex(1))
	assert.False(t, s.IsCornerVertex(4))
}

func TestIsCollapsible(t *testing.T) {
	m := stripMesh(t)
	s := New(m)

	// Along the bottom segment.
	assert.True(t, s.IsCollapsible(1, 0))
	assert.True(t, s.IsCollapsible(1, 2))
	// Off the boundary pulls the edge inward.
	assert.False(t, s.IsCollapsible(1, 4))
	// A surface vertex cannot collapse along an interior diagonal.
	assert.False(t, s.IsCollapsible(1, 3))
}

func TestCollapseMirrorsSurface(t *testing.T) {
	m := stripMesh(t)
	s := New(m)

	s.Collapse(1, 0)
	assert.False(t, s.Contains(1))
	// Vertex 0 inherits the facet running to vertex 2.
	found := false
	for _, f := range s.SNEList[0] {
		n := s.ENList[f*2 : f*2+2]
		if n[0] < 0 {
			continue
		}
		if (n[0] == 0 && n[1] == 2) || (n[0] == 2 && n[1] == 0) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestFindFacetsAndAppend(t *testing.T) {
	m := stripMesh(t)
	s := New(m)

	facets := s.FindFacets([]int{0, 1, 3})
	assert.Len(t, facets, 2) // edges (0,1) and (0,3)

	before := len(s.Boundary)
	s.AppendFacet([]int{0, 1}, 1, 1, true)
	assert.Equal(t, before, len(s.Boundary), "duplicate shared facet is dropped")
	s.AppendFacet([]int{2, 5}, 1, 2, false)
	assert.Equal(t, before+1, len(s.Boundary))
}
