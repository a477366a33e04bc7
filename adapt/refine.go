// Package adapt implements the parallel topological transformations of the
// remeshing engine: edge refinement, edge collapse, edge/face swapping,
// vertex smoothing and the sweep driver that sequences them.
package adapt

import (
	"math"
	"sync/atomic"

	"github.com/notargets/adaptmesh/geometry"
	"github.com/notargets/adaptmesh/mesh"
	"github.com/notargets/adaptmesh/utils"
)

type directedEdge struct {
	first, second int // endpoint vertices, lesser global id first
	id            int // index assigned to the midpoint vertex
}

// Refine2D splits every edge whose metric length exceeds L_max and
// retemplates the affected triangles. Following Li et al (2005) for the
// marking and midpoint placement; the 1/2/3-edge bisection templates follow
// Biswas & Strawn (1994).
type Refine2D struct {
	m  *mesh.Mesh
	np int

	newVertices [][]directedEdge
	newCoords   [][]float64
	newMetric   [][]float64
	threadIdx   []int
	splitCnt    []int

	newVertexPerElement []int
}

func NewRefine2D(m *mesh.Mesh) *Refine2D {
	np := m.Threads
	return &Refine2D{
		m:           m,
		np:          np,
		newVertices: make([][]directedEdge, np),
		newCoords:   make([][]float64, np),
		newMetric:   make([][]float64, np),
		threadIdx:   make([]int, np),
		splitCnt:    make([]int, np),
	}
}

// Refine performs one level of refinement. Edge marking is deterministic:
// each edge is evaluated once, ordered by global vertex id. Edge count
// strictly increases whenever any edge exceeds LMax; no element is inverted.
func (r *Refine2D) Refine(LMax float64) {
	m := r.m
	origNElements := int(m.NElements)
	origNNodes := int(m.NNodes)

	if len(r.newVertexPerElement) < 3*origNElements {
		r.newVertexPerElement = make([]int, 3*origNElements)
	}
	for i := 0; i < 3*origNElements; i++ {
		r.newVertexPerElement[i] = -1
	}

	// Mark long edges and stage midpoints in thread-local buffers.
	pm := utils.NewPartitionMap(r.np, origNNodes)
	utils.RunParallel(r.np, func(tid int) {
		r.splitCnt[tid] = 0
		r.newVertices[tid] = r.newVertices[tid][:0]
		r.newCoords[tid] = r.newCoords[tid][:0]
		r.newMetric[tid] = r.newMetric[tid][:0]

		lo, hi := pm.GetBucketRange(tid)
		for i := lo; i < hi; i++ {
			for _, other := range m.NNList[i] {
				// Evaluate each edge once, lesser global id first; on a halo
				// the ordering makes every process agree on the length.
				if m.Lnn2Gnn[i] < m.Lnn2Gnn[other] {
					if m.CalcEdgeLength(i, other) > LMax {
						r.splitCnt[tid]++
						r.refineEdge(i, other, tid)
					}
				}
			}
		}
		// Atomic capture reserves a contiguous vertex index range.
		r.threadIdx[tid] = int(atomic.AddInt64(&m.NNodes, int64(r.splitCnt[tid]))) - r.splitCnt[tid]
	})

	totalNew := int(m.NNodes) - origNNodes
	if totalNew == 0 {
		return
	}
	m.ReserveNodes(int(m.NNodes))
	allNewVertices := make([]directedEdge, totalNew)

	// Append staged coordinates and metrics at each thread's reserved range.
	utils.RunParallel(r.np, func(tid int) {
		base := r.threadIdx[tid]
		copy(m.Coords[base*m.NDim:], r.newCoords[tid])
		copy(m.Metric[base*m.MSize:], r.newMetric[tid])
		for i := range r.newVertices[tid] {
			r.newVertices[tid][i].id = base + i
		}
		copy(allNewVertices[base-origNNodes:], r.newVertices[tid])
	})

	// Mark each element with its new vertices and rewire the split edges.
	pm2 := utils.NewPartitionMap(r.np, totalNew)
	utils.RunParallel(r.np, func(tid int) {
		lo, hi := pm2.GetBucketRange(tid)
		for k := lo; k < hi; k++ {
			vid := allNewVertices[k].id
			firstid := allNewVertices[k].first
			secondid := allNewVertices[k].second

			for _, eid := range m.EdgeElements(firstid, secondid) {
				offset := edgeNumber(m, eid, firstid, secondid)
				r.newVertexPerElement[3*eid+offset] = vid
			}

			// The split edge is shared between elements, so its NNList
			// surgery happens here, once, rather than per element.
			m.NNList[vid] = append(m.NNList[vid], firstid, secondid)
			m.DeferredRemNN(firstid, secondid, tid)
			m.DeferredAddNN(firstid, vid, tid)
			m.DeferredRemNN(secondid, firstid, tid)
			m.DeferredAddNN(secondid, vid, tid)

			m.NodeOwner[vid] = minInt(m.NodeOwner[firstid], m.NodeOwner[secondid])
			m.Lnn2Gnn[vid] = vid
		}
	})

	// Worst case every original element splits in four.
	m.ReserveElements(4 * origNElements)

	queue := utils.NewChunkQueue(origNElements, 64)
	utils.RunParallel(r.np, func(tid int) {
		for {
			lo, hi, ok := queue.Next()
			if !ok {
				break
			}
			for eid := lo; eid < hi; eid++ {
				if m.ENList[eid*3] < 0 {
					continue
				}
				for j := 0; j < 3; j++ {
					if r.newVertexPerElement[3*eid+j] != -1 {
						r.refineElement(eid, tid)
						break
					}
				}
			}
		}
	})

	m.CommitAllDeferred()
	m.TrimElements()
}

func (r *Refine2D) refineEdge(n0, n1 int, tid int) {
	m := r.m
	if m.Lnn2Gnn[n0] > m.Lnn2Gnn[n1] {
		n0, n1 = n1, n0
	}
	r.newVertices[tid] = append(r.newVertices[tid], directedEdge{first: n0, second: n1})

	// Weighted midpoint, equation 16 of Li et al (2005): the two half-edges
	// come out with equal metric length.
	x0, m0 := m.GetCoords(n0), m.GetMetric(n0)
	x1, m1 := m.GetCoords(n1), m.GetMetric(n1)
	weight := 1.0 / (1.0 + math.Sqrt(geometry.LengthM(x0, x1, m0)/geometry.LengthM(x0, x1, m1)))

	for i := 0; i < m.NDim; i++ {
		r.newCoords[tid] = append(r.newCoords[tid], x0[i]+weight*(x1[i]-x0[i]))
	}
	for i := 0; i < m.MSize; i++ {
		r.newMetric[tid] = append(r.newMetric[tid], m0[i]+weight*(m1[i]-m0[i]))
	}
}

func (r *Refine2D) refineElement(eid int, tid int) {
	m := r.m
	n := m.GetElement(eid)
	boundary := m.GetBoundary(eid)

	// The i'th edge is opposite the i'th vertex of the element.
	var newVertex [3]int
	refineCnt := 0
	for i := 0; i < 3; i++ {
		newVertex[i] = r.newVertexPerElement[3*eid+i]
		if newVertex[i] != -1 {
			refineCnt++
		}
	}

	switch refineCnt {
	case 1:
		var rotatedEle, rotatedBoundary [3]int
		vertexID := -1
		for j := 0; j < 3; j++ {
			if newVertex[j] >= 0 {
				vertexID = newVertex[j]
				rotatedEle = [3]int{n[j], n[(j+1)%3], n[(j+2)%3]}
				rotatedBoundary = [3]int{boundary[j], boundary[(j+1)%3], boundary[(j+2)%3]}
				break
			}
		}

		ele0 := []int{rotatedEle[0], rotatedEle[1], vertexID}
		ele1 := []int{rotatedEle[0], vertexID, rotatedEle[2]}
		ele0Boundary := []int{rotatedBoundary[0], 0, rotatedBoundary[2]}
		ele1Boundary := []int{rotatedBoundary[0], rotatedBoundary[1], 0}

		ele1ID := int(atomic.AddInt64(&m.NElements, 1)) - 1

		m.DeferredAddNN(vertexID, rotatedEle[0], tid)
		m.DeferredAddNN(rotatedEle[0], vertexID, tid)

		m.DeferredAddNE(rotatedEle[0], ele1ID, tid)
		m.DeferredAddNE(vertexID, eid, tid)
		m.DeferredAddNE(vertexID, ele1ID, tid)
		m.DeferredRemNE(rotatedEle[2], eid, tid)
		m.DeferredAddNE(rotatedEle[2], ele1ID, tid)

		m.SetElement(eid, ele0, ele0Boundary)
		m.SetElement(ele1ID, ele1, ele1Boundary)

	case 2:
		var rotatedEle, rotatedBoundary [3]int
		var vertexID [2]int
		for j := 0; j < 3; j++ {
			if newVertex[j] < 0 {
				vertexID = [2]int{newVertex[(j+1)%3], newVertex[(j+2)%3]}
				rotatedEle = [3]int{n[j], n[(j+1)%3], n[(j+2)%3]}
				rotatedBoundary = [3]int{boundary[j], boundary[(j+1)%3], boundary[(j+2)%3]}
				break
			}
		}

		// Choose the shorter diagonal of the remaining quadrilateral.
		ldiag0 := m.CalcEdgeLength(rotatedEle[1], vertexID[0])
		ldiag1 := m.CalcEdgeLength(rotatedEle[2], vertexID[1])
		offset := 0
		if ldiag0 >= ldiag1 {
			offset = 1
		}

		ele0 := []int{rotatedEle[0], vertexID[1], vertexID[0]}
		ele1 := []int{vertexID[offset], rotatedEle[1], rotatedEle[2]}
		ele2 := []int{vertexID[0], vertexID[1], rotatedEle[offset+1]}

		ele0Boundary := []int{0, rotatedBoundary[1], rotatedBoundary[2]}
		var ele1Boundary, ele2Boundary []int
		if offset == 0 {
			ele1Boundary = []int{rotatedBoundary[0], rotatedBoundary[1], 0}
			ele2Boundary = []int{rotatedBoundary[2], 0, 0}
		} else {
			ele1Boundary = []int{rotatedBoundary[0], 0, rotatedBoundary[2]}
			ele2Boundary = []int{0, rotatedBoundary[1], 0}
		}

		ele0ID := int(atomic.AddInt64(&m.NElements, 2)) - 2
		ele2ID := ele0ID + 1

		m.DeferredAddNN(vertexID[0], vertexID[1], tid)
		m.DeferredAddNN(vertexID[1], vertexID[0], tid)

		// vertexID[offset] and rotatedEle[offset+1] span the diagonal.
		m.DeferredAddNN(vertexID[offset], rotatedEle[offset+1], tid)
		m.DeferredAddNN(rotatedEle[offset+1], vertexID[offset], tid)

		m.DeferredAddNE(rotatedEle[offset+1], ele2ID, tid)
		m.DeferredRemNE(rotatedEle[0], eid, tid)
		m.DeferredAddNE(rotatedEle[0], ele0ID, tid)

		m.DeferredAddNE(vertexID[offset], eid, tid)
		m.DeferredAddNE(vertexID[offset], ele0ID, tid)
		m.DeferredAddNE(vertexID[offset], ele2ID, tid)

		m.DeferredAddNE(vertexID[(offset+1)%2], ele0ID, tid)
		m.DeferredAddNE(vertexID[(offset+1)%2], ele2ID, tid)

		m.SetElement(eid, ele1, ele1Boundary)
		m.SetElement(ele0ID, ele0, ele0Boundary)
		m.SetElement(ele2ID, ele2, ele2Boundary)

	default: // refineCnt == 3, uniform subdivision
		ele0 := []int{n[0], newVertex[2], newVertex[1]}
		ele1 := []int{n[1], newVertex[0], newVertex[2]}
		ele2 := []int{n[2], newVertex[1], newVertex[0]}
		ele3 := []int{newVertex[0], newVertex[1], newVertex[2]}

		ele0Boundary := []int{0, boundary[1], boundary[2]}
		ele1Boundary := []int{0, boundary[2], boundary[0]}
		ele2Boundary := []int{0, boundary[0], boundary[1]}
		ele3Boundary := []int{0, 0, 0}

		ele1ID := int(atomic.AddInt64(&m.NElements, 3)) - 3
		ele2ID := ele1ID + 1
		ele3ID := ele1ID + 2

		m.DeferredAddNN(newVertex[0], newVertex[1], tid)
		m.DeferredAddNN(newVertex[0], newVertex[2], tid)
		m.DeferredAddNN(newVertex[1], newVertex[0], tid)
		m.DeferredAddNN(newVertex[1], newVertex[2], tid)
		m.DeferredAddNN(newVertex[2], newVertex[0], tid)
		m.DeferredAddNN(newVertex[2], newVertex[1], tid)

		m.DeferredRemNE(n[1], eid, tid)
		m.DeferredAddNE(n[1], ele1ID, tid)
		m.DeferredRemNE(n[2], eid, tid)
		m.DeferredAddNE(n[2], ele2ID, tid)

		m.DeferredAddNE(newVertex[0], ele1ID, tid)
		m.DeferredAddNE(newVertex[0], ele2ID, tid)
		m.DeferredAddNE(newVertex[0], ele3ID, tid)

		m.DeferredAddNE(newVertex[1], eid, tid)
		m.DeferredAddNE(newVertex[1], ele2ID, tid)
		m.DeferredAddNE(newVertex[1], ele3ID, tid)

		m.DeferredAddNE(newVertex[2], eid, tid)
		m.DeferredAddNE(newVertex[2], ele1ID, tid)
		m.DeferredAddNE(newVertex[2], ele3ID, tid)

		m.SetElement(eid, ele0, ele0Boundary)
		m.SetElement(ele1ID, ele1, ele1Boundary)
		m.SetElement(ele2ID, ele2, ele2Boundary)
		m.SetElement(ele3ID, ele3, ele3Boundary)
	}
}

// edgeNumber returns which edge of eid joins v1 and v2: edge i is opposite
// vertex i.
func edgeNumber(m *mesh.Mesh, eid, v1, v2 int) int {
	n := m.GetElement(eid)
	if n[1] == v1 || n[1] == v2 {
		if n[2] == v1 || n[2] == v2 {
			return 0
		}
		return 2
	}
	return 1
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
