package adapt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/notargets/adaptmesh/mesh"
)

// squareMesh builds an n x n structured triangulation of the unit square
// with an isotropic metric targeting edge length hTarget.
func squareMesh(t *testing.T, n int, hTarget float64, threads int) *mesh.Mesh {
	t.Helper()
	nn := n + 1
	coords := make([]float64, 0, 2*nn*nn)
	for j := 0; j < nn; j++ {
		for i := 0; i < nn; i++ {
			coords = append(coords, float64(i)/float64(n), float64(j)/float64(n))
		}
	}
	vid := func(i, j int) int { return j*nn + i }
	enlist := make([]int, 0, 6*n*n)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			a, b := vid(i, j), vid(i+1, j)
			c, d := vid(i+1, j+1), vid(i, j+1)
			enlist = append(enlist, a, b, c)
			enlist = append(enlist, a, c, d)
		}
	}

	var metric []float64
	if hTarget > 0 {
		eig := 1.0 / (hTarget * hTarget)
		metric = make([]float64, 3*nn*nn)
		for v := 0; v < nn*nn; v++ {
			metric[v*3] = eig
			metric[v*3+2] = eig
		}
	}

	m, err := mesh.New(2, coords, enlist, metric, nil, mesh.Config{Threads: threads})
	require.NoError(t, err)
	return m
}

// aliveCounts returns the number of live vertices and elements.
func aliveCounts(m *mesh.Mesh) (nodes, elements int) {
	for v := 0; v < int(m.NNodes); v++ {
		if len(m.NNList[v]) > 0 {
			nodes++
		}
	}
	for e := 0; e < int(m.NElements); e++ {
		if m.GetElement(e)[0] >= 0 {
			elements++
		}
	}
	return
}

// maxEdgeLength returns the longest live metric edge length.
func maxEdgeLength(m *mesh.Mesh) float64 {
	max := 0.0
	for i := 0; i < int(m.NNodes); i++ {
		for _, j := range m.NNList[i] {
			if j > i {
				if l := m.CalcEdgeLength(i, j); l > max {
					max = l
				}
			}
		}
	}
	return max
}

// minQuality returns the worst live element quality.
func minQuality(m *mesh.Mesh) float64 {
	sw := &Swap{m: m, np: 1}
	min := 2.0
	for e := 0; e < int(m.NElements); e++ {
		n := m.GetElement(e)
		if n[0] < 0 {
			continue
		}
		var q float64
		if m.NDim == 2 {
			q = sw.triQuality(n[0], n[1], n[2])
		} else {
			q = sw.tetQuality(n[0], n[1], n[2], n[3])
		}
		if q < min {
			min = q
		}
	}
	return min
}
