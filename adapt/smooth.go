package adapt

import (
	"math"

	"github.com/notargets/adaptmesh/colour"
	"github.com/notargets/adaptmesh/geometry"
	"github.com/notargets/adaptmesh/mesh"
	"github.com/notargets/adaptmesh/surface"
	"github.com/notargets/adaptmesh/utils"
)

// Smooth relocates interior vertices to the plain (unweighted) average of
// their neighbours' positions, accepting a move only when the minimum
// Lipnikov quality of the surrounding elements does not decrease. The moved
// vertex keeps its own metric. Vertices are processed by
// colour so that no two adjacent vertices move in the same round.
type Smooth struct {
	m  *mesh.Mesh
	s  *surface.Surface
	np int
}

func NewSmooth(m *mesh.Mesh, s *surface.Surface) *Smooth {
	return &Smooth{m: m, s: s, np: m.Threads}
}

// Run iterates until the largest accepted displacement, measured in the
// metric, falls below tol or maxIter rounds have run. It returns the number
// of iterations taken.
func (sm *Smooth) Run(maxIter int, tol float64) int {
	m := sm.m
	nnodes := int(m.NNodes)

	colours := colour.Greedy(m.NNList[:nnodes])
	maxColour := colour.MaxColour(colours)
	sets := make([][]int, maxColour+1)
	for v := 0; v < nnodes; v++ {
		if len(m.NNList[v]) == 0 {
			continue
		}
		if sm.s.Contains(v) || m.IsHaloNode(v) || !m.IsOwnedNode(v) {
			continue
		}
		sets[colours[v]] = append(sets[colours[v]], v)
	}

	iter := 0
	for ; iter < maxIter; iter++ {
		residual := 0.0
		for _, set := range sets {
			if len(set) == 0 {
				continue
			}
			partial := make([]float64, sm.np)
			pm := utils.NewPartitionMap(sm.np, len(set))
			utils.RunParallel(sm.np, func(tid int) {
				lo, hi := pm.GetBucketRange(tid)
				for k := lo; k < hi; k++ {
					if move := sm.smoothKernel(set[k]); move > partial[tid] {
						partial[tid] = move
					}
				}
			})
			for _, p := range partial {
				if p > residual {
					residual = p
				}
			}
		}
		if residual < tol {
			iter++
			break
		}
	}
	return iter
}

// smoothKernel proposes the Laplacian position for v and returns the metric
// displacement if the move was accepted, 0 otherwise.
func (sm *Smooth) smoothKernel(v int) float64 {
	m := sm.m
	nn := m.NNList[v]
	if len(nn) == 0 {
		return 0
	}

	proposed := make([]float64, m.NDim)
	for _, w := range nn {
		x := m.GetCoords(w)
		for d := 0; d < m.NDim; d++ {
			proposed[d] += x[d]
		}
	}
	for d := 0; d < m.NDim; d++ {
		proposed[d] /= float64(len(nn))
	}

	before := sm.patchQuality(v)
	old := append([]float64(nil), m.GetCoords(v)...)
	copy(m.GetCoords(v), proposed)
	after := sm.patchQuality(v)

	if after < before || after <= 0 {
		copy(m.GetCoords(v), old)
		return 0
	}
	return geometry.LengthM(old, proposed, m.GetMetric(v))
}

func (sm *Smooth) patchQuality(v int) float64 {
	m := sm.m
	minQ := math.Inf(1)
	for e := range m.NEList[v] {
		n := m.GetElement(e)
		if n[0] < 0 {
			continue
		}
		var q float64
		if m.NDim == 2 {
			q = geometry.Lipnikov2D(
				m.GetCoords(n[0]), m.GetCoords(n[1]), m.GetCoords(n[2]),
				m.GetMetric(n[0]), m.GetMetric(n[1]), m.GetMetric(n[2]))
		} else {
			q = geometry.Lipnikov3D(
				m.GetCoords(n[0]), m.GetCoords(n[1]), m.GetCoords(n[2]), m.GetCoords(n[3]),
				m.GetMetric(n[0]), m.GetMetric(n[1]), m.GetMetric(n[2]), m.GetMetric(n[3]))
		}
		if q < minQ {
			minQ = q
		}
	}
	if math.IsInf(minQ, 1) {
		return 0
	}
	return minQ
}
