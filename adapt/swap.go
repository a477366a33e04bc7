package adapt

import (
	"math"
	"sort"
	"sync/atomic"

	"github.com/notargets/adaptmesh/geometry"
	"github.com/notargets/adaptmesh/mesh"
	"github.com/notargets/adaptmesh/surface"
	"github.com/notargets/adaptmesh/utils"
)

// Swap raises the minimum Lipnikov quality of element pairs by edge flips in
// 2D and by face-to-edge / edge-to-face reconfigurations in 3D.
type Swap struct {
	m  *mesh.Mesh
	s  *surface.Surface
	np int

	// MaxPasses bounds the 2D mark-propagation loop.
	MaxPasses int

	quality              []float64
	originalVertexDegree []int
}

func NewSwap(m *mesh.Mesh, s *surface.Surface) *Swap {
	return &Swap{m: m, s: s, np: m.Threads, MaxPasses: 10}
}

// Swap improves every element pair whose minimum quality is below QMin.
func (sw *Swap) Swap(QMin float64) {
	sw.cacheQuality()
	if sw.m.NDim == 2 {
		sw.swap2D(QMin)
	} else {
		sw.swap3D(QMin)
	}
}

func (sw *Swap) cacheQuality() {
	m := sw.m
	nelements := int(m.NElements)
	sw.quality = make([]float64, nelements)
	pm := utils.NewPartitionMap(sw.np, nelements)
	utils.RunParallel(sw.np, func(tid int) {
		lo, hi := pm.GetBucketRange(tid)
		for e := lo; e < hi; e++ {
			n := m.GetElement(e)
			if n[0] < 0 {
				sw.quality[e] = 0
				continue
			}
			if m.NDim == 2 {
				sw.quality[e] = geometry.Lipnikov2D(
					m.GetCoords(n[0]), m.GetCoords(n[1]), m.GetCoords(n[2]),
					m.GetMetric(n[0]), m.GetMetric(n[1]), m.GetMetric(n[2]))
			} else {
				sw.quality[e] = geometry.Lipnikov3D(
					m.GetCoords(n[0]), m.GetCoords(n[1]), m.GetCoords(n[2]), m.GetCoords(n[3]),
					m.GetMetric(n[0]), m.GetMetric(n[1]), m.GetMetric(n[2]), m.GetMetric(n[3]))
			}
		}
	})
}

// swap2D is the parallel marked-edges flip loop. Every NNList is extended to
// three times its original degree so neighbours gained by flips append into
// sentinel slots without reallocation; a doubled working copy of NEList gets
// the same treatment. Edge (i, NNList[i][it]) with i < neighbour is
// considered when markedEdges[i][it] is set. Conflicts between concurrent
// flips are avoided by skipping any edge whose lateral edges are themselves
// marked and by detecting stale adjacency through the original-degree table.
func (sw *Swap) swap2D(QMin float64) {
	m := sw.m
	nnodes := int(m.NNodes)

	sw.originalVertexDegree = make([]int, nnodes)
	markedEdges := make([][]byte, nnodes)
	neList := make([][]int, nnodes)

	var nMarkedEdges int64
	pm := utils.NewPartitionMap(sw.np, nnodes)
	utils.RunParallel(sw.np, func(tid int) {
		lo, hi := pm.GetBucketRange(tid)
		var local int64
		for i := lo; i < hi; i++ {
			size := len(m.NNList[i])
			if size == 0 {
				continue
			}
			sw.originalVertexDegree[i] = size
			for len(m.NNList[i]) < 3*size {
				m.NNList[i] = append(m.NNList[i], -1)
			}
			markedEdges[i] = make([]byte, size)

			ne := make([]int, 2*len(m.NEList[i]))
			for k := range ne {
				ne[k] = -1
			}
			elems := make([]int, 0, len(m.NEList[i]))
			for e := range m.NEList[i] {
				elems = append(elems, e)
			}
			sort.Ints(elems)
			copy(ne, elems)
			neList[i] = ne

			for it := 0; it < size; it++ {
				if i < m.NNList[i][it] {
					markedEdges[i][it] = 1
					local++
				}
			}
		}
		atomic.AddInt64(&nMarkedEdges, local)
	})

	for pass := 0; nMarkedEdges > 0 && pass < sw.MaxPasses; pass++ {
		queue := utils.NewChunkQueue(nnodes, 64)
		utils.RunParallel(sw.np, func(tid int) {
			for {
				lo, hi, ok := queue.Next()
				if !ok {
					break
				}
				for i := lo; i < hi; i++ {
					sw.processVertex2D(i, QMin, markedEdges, neList)
				}
			}
		})

		nMarkedEdges = 0
		utils.RunParallel(sw.np, func(tid int) {
			lo, hi := pm.GetBucketRange(tid)
			var local int64
			for i := lo; i < hi; i++ {
				for _, mk := range markedEdges[i] {
					if mk == 1 {
						local++
					}
				}
			}
			atomic.AddInt64(&nMarkedEdges, local)
		})

		// When swapping is finished the lists need no sentinel headroom.
		nnExtend, neExtend := 3, 2
		if nMarkedEdges == 0 {
			nnExtend, neExtend = 1, 1
		}
		sw.compactLists(markedEdges, neList, nnExtend, neExtend)
	}
	if nMarkedEdges > 0 {
		// Pass cap reached; strip the remaining sentinels.
		sw.compactLists(markedEdges, neList, 1, 1)
	}

	// Publish the working NEList copies back into the mesh.
	utils.RunParallel(sw.np, func(tid int) {
		lo, hi := pm.GetBucketRange(tid)
		for i := lo; i < hi; i++ {
			if len(m.NEList[i]) == 0 && len(neList[i]) == 0 {
				continue
			}
			ne := make(map[int]bool, len(neList[i]))
			for _, e := range neList[i] {
				if e >= 0 {
					ne[e] = true
				}
			}
			m.NEList[i] = ne
		}
	})
}

// originalNeighborIndex finds target inside the original-degree prefix of
// source's NNList. An index past the original degree means the adjacency is
// stale and the caller skips the edge.
func (sw *Swap) originalNeighborIndex(source, target int) int {
	nn := sw.m.NNList[source]
	for pos := 0; pos < sw.originalVertexDegree[source]; pos++ {
		if nn[pos] == target {
			return pos
		}
	}
	return math.MaxInt32
}

func (sw *Swap) processVertex2D(i int, QMin float64, markedEdges [][]byte, neList [][]int) {
	m := sw.m

	if m.IsHaloNode(i) {
		for k := range markedEdges[i] {
			markedEdges[i][k] = 0
		}
		return
	}

	for it := 0; it < sw.originalVertexDegree[i]; it++ {
		if it >= len(markedEdges[i]) || markedEdges[i][it] != 1 {
			continue
		}

		opposite := m.NNList[i][it]
		if opposite < 0 {
			markedEdges[i][it] = 0
			continue
		}
		if m.IsHaloNode(opposite) {
			markedEdges[i][it] = 0
			continue
		}

		// The two elements sharing this edge, from the working copies.
		var neighElements []int
		for k := 0; k < len(neList[i])/2; k++ {
			if neList[i][k] == -1 {
				continue
			}
			for l := 0; l < len(neList[opposite])/2; l++ {
				if neList[i][k] == neList[opposite][l] {
					neighElements = append(neighElements, neList[i][k])
				}
			}
		}
		if len(neighElements) != 2 {
			markedEdges[i][it] = 0
			continue
		}

		eid0, eid1 := neighElements[0], neighElements[1]

		if math.Min(sw.quality[eid0], sw.quality[eid1]) > QMin {
			markedEdges[i][it] = 0
			continue
		}

		n := m.GetElement(eid0)
		mm := m.GetElement(eid1)

		nOff, mOff := -1, -1
		for k := 0; k < 3; k++ {
			if n[k] != i && n[k] != opposite {
				nOff = k
				break
			}
		}
		for k := 0; k < 3; k++ {
			if mm[k] != i && mm[k] != opposite {
				mOff = k
				break
			}
		}

		// A mismatch here means this worker had a stale view of the
		// adjacency: a neighbouring flip already happened, so this edge is
		// not a candidate during this round.
		if nOff < 0 || mOff < 0 || n[(nOff+2)%3] != mm[(mOff+1)%3] || n[(nOff+1)%3] != mm[(mOff+2)%3] {
			continue
		}

		lateralN := n[nOff]
		lateralM := mm[mOff]

		idxInN, idxInM := -1, -1
		idxOfN, idxOfM := -1, -1
		minOppN, maxOppN, idxOppN := -1, -1, -1
		minOppM, maxOppM, idxOppM := -1, -1, -1

		// Are the lateral edges queued for processing by another worker?
		// The probes double as a check that the four participating
		// vertices are still original neighbours of one another.
		if i > lateralN {
			idxInN = sw.originalNeighborIndex(lateralN, i)
			if idxInN >= sw.originalVertexDegree[lateralN] {
				continue
			}
			if markedEdges[lateralN][idxInN] == 1 {
				continue
			}
			if opposite < lateralN {
				minOppN, maxOppN = opposite, lateralN
			} else {
				minOppN, maxOppN = lateralN, opposite
			}
			idxOppN = sw.originalNeighborIndex(minOppN, maxOppN)
			if idxOppN >= sw.originalVertexDegree[minOppN] {
				continue
			}
			if markedEdges[minOppN][idxOppN] == 1 {
				continue
			}
		}

		if i > lateralM {
			idxInM = sw.originalNeighborIndex(lateralM, i)
			if idxInM >= sw.originalVertexDegree[lateralM] {
				continue
			}
			if markedEdges[lateralM][idxInM] == 1 {
				continue
			}
			if opposite < lateralM {
				minOppM, maxOppM = opposite, lateralM
			} else {
				minOppM, maxOppM = lateralM, opposite
			}
			idxOppM = sw.originalNeighborIndex(minOppM, maxOppM)
			if idxOppM >= sw.originalVertexDegree[minOppM] {
				continue
			}
			if markedEdges[minOppM][idxOppM] == 1 {
				continue
			}
		}

		if idxInN == -1 {
			idxOfN = sw.originalNeighborIndex(i, lateralN)
			if idxOfN >= sw.originalVertexDegree[i] {
				continue
			}
		}
		if idxInM == -1 {
			idxOfM = sw.originalNeighborIndex(i, lateralM)
			if idxOfM >= sw.originalVertexDegree[i] {
				continue
			}
		}
		if idxOppN == -1 {
			if opposite < lateralN {
				minOppN, maxOppN = opposite, lateralN
			} else {
				minOppN, maxOppN = lateralN, opposite
			}
			idxOppN = sw.originalNeighborIndex(minOppN, maxOppN)
			if idxOppN >= sw.originalVertexDegree[minOppN] {
				continue
			}
		}
		if idxOppM == -1 {
			if opposite < lateralM {
				minOppM, maxOppM = opposite, lateralM
			} else {
				minOppM, maxOppM = lateralM, opposite
			}
			idxOppM = sw.originalNeighborIndex(minOppM, maxOppM)
			if idxOppM >= sw.originalVertexDegree[minOppM] {
				continue
			}
		}

		// The edge can be processed: score the flip.
		nSwap := [3]int{n[nOff], mm[mOff], n[(nOff+2)%3]} // new eid0
		mSwap := [3]int{n[nOff], n[(nOff+1)%3], mm[mOff]} // new eid1

		worstQ := math.Min(sw.quality[eid0], sw.quality[eid1])
		q0 := geometry.Lipnikov2D(
			m.GetCoords(nSwap[0]), m.GetCoords(nSwap[1]), m.GetCoords(nSwap[2]),
			m.GetMetric(nSwap[0]), m.GetMetric(nSwap[1]), m.GetMetric(nSwap[2]))
		q1 := geometry.Lipnikov2D(
			m.GetCoords(mSwap[0]), m.GetCoords(mSwap[1]), m.GetCoords(mSwap[2]),
			m.GetMetric(mSwap[0]), m.GetMetric(mSwap[1]), m.GetMetric(mSwap[2]))
		newWorstQ := math.Min(q0, q1)

		if newWorstQ > worstQ {
			sw.quality[eid0] = q0
			sw.quality[eid1] = q1

			// Boundary tags ride on element facets, so they are re-keyed by
			// edge before the two elements are rewritten. The flipped and
			// created edges are both interior.
			tagOf := make(map[[2]int]int, 6)
			for _, eid := range []int{eid0, eid1} {
				en := m.GetElement(eid)
				eb := m.GetBoundary(eid)
				for k := 0; k < 3; k++ {
					if eb[k] > 0 {
						tagOf[edgeKey(en[(k+1)%3], en[(k+2)%3])] = eb[k]
					}
				}
			}
			b0 := make([]int, 3)
			b1 := make([]int, 3)
			for k := 0; k < 3; k++ {
				b0[k] = tagOf[edgeKey(nSwap[(k+1)%3], nSwap[(k+2)%3])]
				b1[k] = tagOf[edgeKey(mSwap[(k+1)%3], mSwap[(k+2)%3])]
			}

			// Remove the flipped edge from both endpoint lists.
			m.NNList[i][it] = -1
			m.NNList[opposite][sw.originalNeighborIndex(opposite, i)] = -1

			// Connect the lateral vertices through the extended regions.
			if idxInN == -1 {
				idxInN = sw.originalNeighborIndex(lateralN, i)
			}
			pos := sw.originalVertexDegree[lateralN] + idxInN
			if m.NNList[lateralN][pos] != -1 {
				pos += sw.originalVertexDegree[lateralN]
			}
			m.NNList[lateralN][pos] = lateralM

			if idxInM == -1 {
				idxInM = sw.originalNeighborIndex(lateralM, i)
			}
			pos = sw.originalVertexDegree[lateralM] + idxInM
			if m.NNList[lateralM][pos] != -1 {
				pos += sw.originalVertexDegree[lateralM]
			}
			m.NNList[lateralM][pos] = lateralN

			// Node-element surgery on the doubled working copies.
			replaceInHalf(neList, nSwap[0], eid0, eid1, true)  // lateralN gains eid1
			replaceInHalf(neList, nSwap[1], eid1, eid0, true)  // lateralM gains eid0
			replaceInHalf(neList, nSwap[2], eid1, -1, false)   // i or opposite loses eid1
			replaceInHalf(neList, mSwap[1], eid0, -1, false)   // opposite or i loses eid0

			m.SetElement(eid0, nSwap[:], b0)
			m.SetElement(eid1, mSwap[:], b1)

			// The four lateral edges get another chance.
			if i < lateralN {
				markedEdges[i][idxOfN] = 1
			} else {
				markedEdges[lateralN][idxInN] = 1
			}
			if i < lateralM {
				markedEdges[i][idxOfM] = 1
			} else {
				markedEdges[lateralM][idxInM] = 1
			}
			markedEdges[minOppN][idxOppN] = 1
			markedEdges[minOppM][idxOppM] = 1
		}

		markedEdges[i][it] = 0
	}
}

func edgeKey(a, b int) [2]int {
	if a < b {
		return [2]int{a, b}
	}
	return [2]int{b, a}
}

// replaceInHalf performs the sentinel-slot NEList surgery: locate old in the
// live half of vertex's list, then either mirror a new element into the
// shadow slot (add) or clear the live slot (remove).
func replaceInHalf(neList [][]int, vertex, old, repl int, add bool) {
	half := len(neList[vertex]) / 2
	for k := 0; k < half; k++ {
		if neList[vertex][k] == old {
			if add {
				neList[vertex][k+half] = repl
			} else {
				neList[vertex][k] = -1
			}
			return
		}
	}
}

// compactLists removes sentinels from the extended NNList and NEList copies,
// updating the original-degree table and re-extending by the given factors.
func (sw *Swap) compactLists(markedEdges [][]byte, neList [][]int, nnExtend, neExtend int) {
	m := sw.m
	nnodes := int(m.NNodes)
	queue := utils.NewChunkQueue(nnodes, 128)
	utils.RunParallel(sw.np, func(tid int) {
		for {
			clo, chi, ok := queue.Next()
			if !ok {
				break
			}
			for i := clo; i < chi; i++ {
				if len(m.NNList[i]) == 0 {
					continue
				}

				forward, backward := 0, len(m.NNList[i])-1
				for forward < backward {
					for forward < backward && m.NNList[i][forward] != -1 {
						forward++
					}
					for forward < backward && m.NNList[i][backward] == -1 {
						backward--
					}
					if forward < backward && m.NNList[i][forward] == -1 && m.NNList[i][backward] != -1 {
						m.NNList[i][forward] = m.NNList[i][backward]
						m.NNList[i][backward] = -1
						if backward < sw.originalVertexDegree[i] && forward < len(markedEdges[i]) && backward < len(markedEdges[i]) {
							markedEdges[i][forward] = markedEdges[i][backward]
							markedEdges[i][backward] = 0
						}
						forward++
						backward--
					}
				}
				if forward < len(m.NNList[i]) && m.NNList[i][forward] != -1 {
					forward++
				}

				sw.originalVertexDegree[i] = forward
				if forward <= len(markedEdges[i]) {
					markedEdges[i] = markedEdges[i][:forward]
				} else {
					for len(markedEdges[i]) < forward {
						markedEdges[i] = append(markedEdges[i], 0)
					}
				}
				m.NNList[i] = m.NNList[i][:forward]
				for len(m.NNList[i]) < nnExtend*forward {
					m.NNList[i] = append(m.NNList[i], -1)
				}

				// Same two-pointer compaction for the working NEList.
				ne := neList[i]
				if len(ne) == 0 {
					continue
				}
				forward, backward = 0, len(ne)-1
				for forward < backward {
					for forward < backward && ne[forward] != -1 {
						forward++
					}
					for forward < backward && ne[backward] == -1 {
						backward--
					}
					if forward < backward && ne[forward] == -1 && ne[backward] != -1 {
						ne[forward] = ne[backward]
						ne[backward] = -1
						forward++
						backward--
					}
				}
				if forward < len(ne) && ne[forward] != -1 {
					forward++
				}
				ne = ne[:forward]
				for len(ne) < neExtend*forward {
					ne = append(ne, -1)
				}
				neList[i] = ne
			}
		}
	})
}
