package adapt

import (
	"sort"

	"github.com/notargets/adaptmesh/geometry"
	"github.com/notargets/adaptmesh/mesh"
	"github.com/notargets/adaptmesh/surface"
	"github.com/notargets/adaptmesh/utils"
)

// collapseAreaRatio rejects a collapse when any surviving element would keep
// less than this fraction of its original area. The test is geometric rather
// than metric: it exists to catch elements driven to inversion, and the sign
// and scale of the geometric area are what detect that.
const collapseAreaRatio = 1.0e-3

// Coarsen2D removes vertices by collapsing their shortest sub-L_low incident
// edge, following Figure 15 of Li et al, Comp Methods Appl Mech Engrg 194
// (2005) 4915-4950.
//
// dynamicVertex[i] >= 0 is the collapse target for vertex i, -1 marks the
// vertex inactive (deleted or locked), -2 requests re-evaluation.
type Coarsen2D struct {
	m  *mesh.Mesh
	s  *surface.Surface
	np int

	LLow, LMax    float64
	dynamicVertex []int
}

func NewCoarsen2D(m *mesh.Mesh, s *surface.Surface) *Coarsen2D {
	return &Coarsen2D{m: m, s: s, np: m.Threads}
}

// Coarsen runs the three-phase collapse sweep. Phase 1 partitions the vertex
// graph across the workers and collapses partition-interior vertices to a
// fixpoint; phase 2 finishes the partition-boundary collapses on a single
// goroutine. Phase 3, the distributed halo exchange, belongs to the
// surrounding layer.
func (c *Coarsen2D) Coarsen(LLow, LMax float64) {
	m := c.m
	c.LLow, c.LMax = LLow, LMax
	nnodes := int(m.NNodes)
	c.dynamicVertex = make([]int, nnodes)

	pm := utils.NewPartitionMap(c.np, nnodes)
	utils.RunParallel(c.np, func(tid int) {
		lo, hi := pm.GetBucketRange(tid)
		for i := lo; i < hi; i++ {
			if len(m.NNList[i]) == 0 {
				c.dynamicVertex[i] = -1
			} else {
				c.dynamicVertex[i] = -2
			}
		}
	})

	// Initial identification, dynamically scheduled: earlier coarsening may
	// have left large gaps in the node list.
	queue := utils.NewChunkQueue(nnodes, 128)
	utils.RunParallel(c.np, func(tid int) {
		for {
			lo, hi, ok := queue.Next()
			if !ok {
				break
			}
			for i := lo; i < hi; i++ {
				if c.dynamicVertex[i] == -2 {
					c.dynamicVertex[i] = c.identifyKernel(i)
				}
			}
		}
	})

	if c.np > 1 {
		tpartition := partitionVertexGraph(m, c.dynamicVertex, c.np)

		utils.RunParallel(c.np, func(tid int) {
			local := func(v int) bool {
				if tpartition[v] != tid {
					return false
				}
				for _, w := range m.NNList[v] {
					if tpartition[w] != tid {
						return false
					}
				}
				return true
			}

			// Vertices this worker may collapse: interior to its partition
			// and not on the halo, so no other worker can touch their
			// adjacency.
			var tdynamic []int
			for i := 0; i < nnodes; i++ {
				if tpartition[i] == tid && c.dynamicVertex[i] >= 0 && !m.IsHaloNode(i) && local(i) {
					tdynamic = append(tdynamic, i)
				}
			}

			for {
				cnt := 0
				for _, rmVertex := range tdynamic {
					targetVertex := c.dynamicVertex[rmVertex]
					if targetVertex < 0 {
						continue
					}
					c.coarsenKernel(rmVertex, targetVertex, local)
					cnt++
				}
				if cnt == 0 {
					break
				}
			}
		})
	}

	// Phase 2: anything the thread partitions constrained is finished here
	// sequentially. Candidates are re-identified first since phase 1 may
	// have left stale targets near partition boundaries.
	for {
		phase2 := false
		for i := 0; i < nnodes; i++ {
			if c.dynamicVertex[i] == -1 || m.IsHaloNode(i) {
				continue
			}
			c.dynamicVertex[i] = c.identifyKernel(i)
			if c.dynamicVertex[i] < 0 {
				continue
			}
			targetVertex := c.dynamicVertex[i]
			c.coarsenKernel(i, targetVertex, func(int) bool { return true })
			if c.dynamicVertex[targetVertex] >= 0 {
				phase2 = true
			} else {
				for _, jt := range m.NNList[targetVertex] {
					if c.dynamicVertex[jt] >= 0 {
						phase2 = true
						break
					}
				}
			}
		}
		if !phase2 {
			break
		}
	}
}

// identifyKernel decides what, if anything, rmVertex should be collapsed
// onto. It returns the target vertex id, -1 if the vertex cannot be
// collapsed, or -2 if every qualifying edge was rejected and the vertex
// should be revisited.
func (c *Coarsen2D) identifyKernel(rmVertex int) int {
	m := c.m
	if len(m.NNList[rmVertex]) == 0 {
		return -1
	}
	if c.s.IsCornerVertex(rmVertex) {
		return -1
	}
	if !m.IsOwnedNode(rmVertex) {
		return -1
	}

	// Candidates sorted by length; the shortest collapsible edge wins.
	type shortEdge struct {
		length float64
		vertex int
	}
	var shortEdges []shortEdge
	for _, nn := range m.NNList[rmVertex] {
		// No coarsening across partition boundaries.
		if m.RecvHalo[nn] {
			continue
		}
		if !c.s.IsCollapsible(rmVertex, nn) {
			continue
		}
		if length := m.CalcEdgeLength(rmVertex, nn); length < c.LLow {
			shortEdges = append(shortEdges, shortEdge{length, nn})
		}
	}
	sort.Slice(shortEdges, func(i, j int) bool {
		if shortEdges[i].length != shortEdges[j].length {
			return shortEdges[i].length < shortEdges[j].length
		}
		return shortEdges[i].vertex < shortEdges[j].vertex
	})

	rejectCollapse := false
	targetVertex := -1
	for _, se := range shortEdges {
		targetVertex = se.vertex
		rejectCollapse = false

		collapsed := make(map[int]bool)
		for e := range m.NEList[rmVertex] {
			if m.NEList[targetVertex][e] {
				collapsed[e] = true
			}
		}

		// The surviving elements must keep a sane area.
		for e := range m.NEList[rmVertex] {
			if collapsed[e] {
				continue
			}
			origN := m.GetElement(e)
			var n [3]int
			for i := 0; i < 3; i++ {
				if origN[i] == rmVertex {
					n[i] = targetVertex
				} else {
					n[i] = origN[i]
				}
			}
			origArea := geometry.Area(m.GetCoords(origN[0]), m.GetCoords(origN[1]), m.GetCoords(origN[2]))
			area := geometry.Area(m.GetCoords(n[0]), m.GetCoords(n[1]), m.GetCoords(n[2]))
			if area/origArea <= collapseAreaRatio {
				rejectCollapse = true
				break
			}
		}

		// No new edge may come out longer than L_max.
		if !rejectCollapse {
			for _, nn := range m.NNList[rmVertex] {
				if nn == targetVertex {
					continue
				}
				if m.CalcEdgeLength(targetVertex, nn) > c.LMax {
					rejectCollapse = true
					break
				}
			}
		}

		if !rejectCollapse {
			return targetVertex
		}
	}

	if rejectCollapse {
		return -2
	}
	if targetVertex < 0 {
		return -1
	}
	return targetVertex
}

// coarsenKernel collapses rmVertex onto targetVertex. The local predicate
// bounds which vertices may be re-identified afterwards; phase 1 passes its
// partition membership test, phase 2 passes a tautology.
func (c *Coarsen2D) coarsenKernel(rmVertex, targetVertex int, local func(int) bool) {
	m := c.m

	var deletedElements []int
	for e := range m.NEList[rmVertex] {
		if m.NEList[targetVertex][e] {
			deletedElements = append(deletedElements, e)
		}
	}
	sort.Ints(deletedElements)

	if c.s.Contains(rmVertex) && c.s.Contains(targetVertex) {
		c.s.Collapse(rmVertex, targetVertex)
	}

	for _, de := range deletedElements {
		m.EraseElement(de)
	}

	// Renumber rmVertex in the surviving incident elements.
	for e := range m.NEList[rmVertex] {
		n := m.GetElement(e)
		for i := 0; i < 3; i++ {
			if n[i] == rmVertex {
				n[i] = targetVertex
				break
			}
		}
		m.NEList[targetVertex][e] = true
	}

	// Patch the neighbourhood NNLists.
	newPatch := m.NodePatch(targetVertex)
	for _, nn := range m.NNList[rmVertex] {
		if nn == targetVertex {
			continue
		}
		list := m.NNList[nn]
		for i, x := range list {
			if x == rmVertex {
				if newPatch[nn] {
					m.NNList[nn] = append(list[:i], list[i+1:]...)
				} else {
					list[i] = targetVertex
				}
				break
			}
		}
		newPatch[nn] = true
	}

	nn := make([]int, 0, len(newPatch))
	for v := range newPatch {
		if v != rmVertex {
			nn = append(nn, v)
		}
	}
	sort.Ints(nn)
	m.NNList[targetVertex] = nn

	m.EraseVertex(rmVertex)
	c.dynamicVertex[rmVertex] = -1

	// Re-evaluate the target and its neighbourhood; anything outside the
	// caller's locality is flagged for a later pass instead.
	if m.IsOwnedNode(targetVertex) {
		if local(targetVertex) {
			c.dynamicVertex[targetVertex] = c.identifyKernel(targetVertex)
		} else {
			c.dynamicVertex[targetVertex] = -2
		}
	}
	for _, jt := range m.NNList[targetVertex] {
		if !m.IsOwnedNode(jt) {
			continue
		}
		if local(jt) {
			c.dynamicVertex[jt] = c.identifyKernel(jt)
		} else {
			c.dynamicVertex[jt] = -2
		}
	}
}
