// Package mesh owns the unstructured simplicial mesh: vertex and element
// arenas, the adjacency lists the adaptation operators mutate, halo
// bookkeeping for distributed layers, and the deferred-mutation queue that
// makes concurrent adjacency edits race-free by construction.
package mesh

import (
	"fmt"
	"sort"

	"github.com/notargets/adaptmesh/geometry"
)

// Config carries the concurrency parameters of a mesh instance.
type Config struct {
	Threads       int // worker goroutines used by the operators
	BucketScaling int // deferred-op buckets per thread
}

func (c Config) withDefaults() Config {
	if c.Threads < 1 {
		c.Threads = 1
	}
	if c.BucketScaling < 1 {
		c.BucketScaling = 8
	}
	return c
}

// Mesh is the shared adjacency store. Counters NNodes and NElements are the
// authoritative sizes; the backing slices may carry reserve capacity beyond
// them while an operator is growing the arenas.
type Mesh struct {
	NDim  int // spatial dimension, 2 or 3
	NLoc  int // vertices per element, NDim+1
	MSize int // packed metric size, NDim*(NDim+1)/2

	NNodes    int64 // grown via atomic capture during refinement
	NElements int64

	Coords   []float64 // NNodes x NDim
	Metric   []float64 // NNodes x MSize
	ENList   []int     // NElements x NLoc; ENList[e*NLoc] < 0 marks e erased
	Boundary []int     // NElements x NLoc; tag of the facet opposite each node

	NNList [][]int        // vertex -> neighbouring vertices
	NEList []map[int]bool // vertex -> incident elements

	NodeOwner []int // owning process id per vertex
	Lnn2Gnn   []int // local to global vertex numbering
	RecvHalo  map[int]bool
	SendHalo  map[int]bool

	Threads       int
	BucketScaling int

	def *deferredOps
}

// New validates the import tuple and builds the adjacency structure.
// metric may be nil (identity metric) and boundary may be nil (derived from
// facets with a single incident element, tagged 1).
func New(ndim int, coords []float64, enlist []int, metric []float64, boundary []int, cfg Config) (*Mesh, error) {
	if ndim != 2 && ndim != 3 {
		return nil, fmt.Errorf("unsupported dimension %d", ndim)
	}
	nloc := ndim + 1
	msize := geometry.MetricSize(ndim)
	if len(coords)%ndim != 0 {
		return nil, fmt.Errorf("coordinate array length %d is not a multiple of %d", len(coords), ndim)
	}
	nnodes := len(coords) / ndim
	if len(enlist)%nloc != 0 {
		return nil, fmt.Errorf("element array length %d is not a multiple of %d", len(enlist), nloc)
	}
	nelements := len(enlist) / nloc

	cfg = cfg.withDefaults()
	m := &Mesh{
		NDim:          ndim,
		NLoc:          nloc,
		MSize:         msize,
		NNodes:        int64(nnodes),
		NElements:     int64(nelements),
		Coords:        coords,
		ENList:        enlist,
		NodeOwner:     make([]int, nnodes),
		Lnn2Gnn:       make([]int, nnodes),
		RecvHalo:      make(map[int]bool),
		SendHalo:      make(map[int]bool),
		Threads:       cfg.Threads,
		BucketScaling: cfg.BucketScaling,
	}
	for i := 0; i < nnodes; i++ {
		m.Lnn2Gnn[i] = i
	}

	if metric == nil {
		metric = make([]float64, nnodes*msize)
		for i := 0; i < nnodes; i++ {
			if ndim == 2 {
				metric[i*msize] = 1
				metric[i*msize+2] = 1
			} else {
				metric[i*msize] = 1
				metric[i*msize+3] = 1
				metric[i*msize+5] = 1
			}
		}
	}
	if len(metric) != nnodes*msize {
		return nil, fmt.Errorf("metric array length %d, want %d", len(metric), nnodes*msize)
	}
	m.Metric = metric
	if err := VerifyMetric(ndim, metric); err != nil {
		return nil, err
	}

	for e := 0; e < nelements; e++ {
		n := enlist[e*nloc : (e+1)*nloc]
		for i := 0; i < nloc; i++ {
			if n[i] < 0 || n[i] >= nnodes {
				return nil, fmt.Errorf("element %d references vertex %d outside [0,%d)", e, n[i], nnodes)
			}
			for j := i + 1; j < nloc; j++ {
				if n[i] == n[j] {
					return nil, fmt.Errorf("element %d has duplicate vertex %d", e, n[i])
				}
			}
		}
		if v := m.ElementSize(e); v <= 0 {
			return nil, fmt.Errorf("element %d has non-positive size %g", e, v)
		}
	}

	if boundary == nil {
		m.Boundary = make([]int, nelements*nloc)
	} else {
		if len(boundary) != nelements*nloc {
			return nil, fmt.Errorf("boundary array length %d, want %d", len(boundary), nelements*nloc)
		}
		m.Boundary = boundary
	}

	m.CreateAdjacency()
	if boundary == nil {
		m.deriveBoundary()
	}
	m.def = newDeferredOps(cfg.BucketScaling*cfg.Threads, cfg.Threads)
	return m, nil
}

// deriveBoundary tags every facet with exactly one incident element.
func (m *Mesh) deriveBoundary() {
	nloc := m.NLoc
	for e := 0; e < int(m.NElements); e++ {
		n := m.ENList[e*nloc : (e+1)*nloc]
		for i := 0; i < nloc; i++ {
			// Facet i is opposite vertex i.
			facet := make([]int, 0, nloc-1)
			for j := 0; j < nloc; j++ {
				if j != i {
					facet = append(facet, n[j])
				}
			}
			if len(m.facetElements(facet)) == 1 {
				m.Boundary[e*nloc+i] = 1
			}
		}
	}
}

// facetElements returns the elements incident to every vertex of the facet.
func (m *Mesh) facetElements(facet []int) []int {
	var out []int
	for e := range m.NEList[facet[0]] {
		inAll := true
		for _, v := range facet[1:] {
			if !m.NEList[v][e] {
				inAll = false
				break
			}
		}
		if inAll {
			out = append(out, e)
		}
	}
	return out
}

// GetCoords returns the coordinate slice of vertex v.
func (m *Mesh) GetCoords(v int) []float64 {
	return m.Coords[v*m.NDim : (v+1)*m.NDim]
}

// GetMetric returns the packed metric of vertex v.
func (m *Mesh) GetMetric(v int) []float64 {
	return m.Metric[v*m.MSize : (v+1)*m.MSize]
}

// GetElement returns the vertex tuple of element e. The first entry is
// negative when e has been erased.
func (m *Mesh) GetElement(e int) []int {
	return m.ENList[e*m.NLoc : (e+1)*m.NLoc]
}

// GetBoundary returns the per-facet boundary tags of element e.
func (m *Mesh) GetBoundary(e int) []int {
	return m.Boundary[e*m.NLoc : (e+1)*m.NLoc]
}

// SetElement rewrites the vertex tuple and boundary tags of element e.
func (m *Mesh) SetElement(e int, n, boundary []int) {
	copy(m.ENList[e*m.NLoc:(e+1)*m.NLoc], n)
	copy(m.Boundary[e*m.NLoc:(e+1)*m.NLoc], boundary)
}

// ElementSize returns the signed area (2D) or volume (3D) of element e.
func (m *Mesh) ElementSize(e int) float64 {
	n := m.GetElement(e)
	if m.NDim == 2 {
		return geometry.Area(m.GetCoords(n[0]), m.GetCoords(n[1]), m.GetCoords(n[2]))
	}
	return geometry.Volume(m.GetCoords(n[0]), m.GetCoords(n[1]), m.GetCoords(n[2]), m.GetCoords(n[3]))
}

// CalcEdgeLength returns the metric length of edge (i,j).
func (m *Mesh) CalcEdgeLength(i, j int) float64 {
	return geometry.EdgeLength(m.GetCoords(i), m.GetCoords(j), m.GetMetric(i), m.GetMetric(j))
}

// IsHaloNode reports whether v is visible to another process.
func (m *Mesh) IsHaloNode(v int) bool {
	return m.RecvHalo[v] || m.SendHalo[v]
}

// IsOwnedNode reports whether v is owned by this process.
func (m *Mesh) IsOwnedNode(v int) bool {
	return !m.RecvHalo[v]
}

// NodePatch returns the neighbour set of v.
func (m *Mesh) NodePatch(v int) map[int]bool {
	patch := make(map[int]bool, len(m.NNList[v]))
	for _, w := range m.NNList[v] {
		patch[w] = true
	}
	return patch
}

// AppendVertex adds a vertex with the given coordinates and metric and
// returns its index. Not safe for concurrent use; the operators grow the
// arenas through ReserveNodes plus atomic capture instead.
func (m *Mesh) AppendVertex(x, metric []float64) int {
	v := int(m.NNodes)
	m.NNodes++
	m.ReserveNodes(int(m.NNodes))
	copy(m.Coords[v*m.NDim:], x)
	copy(m.Metric[v*m.MSize:], metric)
	m.Lnn2Gnn[v] = v
	return v
}

// AppendElement adds an element with interior facets and returns its index.
// Adjacency lists are not updated; callers either maintain them through the
// deferred queue or rebuild with CreateAdjacency. Not safe for concurrent
// use.
func (m *Mesh) AppendElement(n []int) int {
	e := int(m.NElements)
	m.NElements++
	m.ReserveElements(int(m.NElements))
	copy(m.ENList[e*m.NLoc:], n)
	for i := 0; i < m.NLoc; i++ {
		m.Boundary[e*m.NLoc+i] = 0
	}
	return e
}

// EraseElement logically deletes e: it is removed from the node-element
// adjacency of its vertices and its first vertex index is set to a sentinel.
func (m *Mesh) EraseElement(e int) {
	n := m.GetElement(e)
	for i := 0; i < m.NLoc; i++ {
		if n[i] >= 0 {
			delete(m.NEList[n[i]], e)
		}
	}
	m.ENList[e*m.NLoc] = -1
}

// EraseVertex logically deletes v by clearing its adjacency. Storage is
// reclaimed by Defragment.
func (m *Mesh) EraseVertex(v int) {
	m.NNList[v] = nil
	m.NEList[v] = make(map[int]bool)
}

// ReserveNodes grows the per-vertex arrays to hold n vertices.
func (m *Mesh) ReserveNodes(n int) {
	for len(m.NNList) < n {
		m.NNList = append(m.NNList, nil)
	}
	for len(m.NEList) < n {
		m.NEList = append(m.NEList, make(map[int]bool))
	}
	for len(m.Coords) < n*m.NDim {
		m.Coords = append(m.Coords, 0)
	}
	for len(m.Metric) < n*m.MSize {
		m.Metric = append(m.Metric, 0)
	}
	for len(m.NodeOwner) < n {
		m.NodeOwner = append(m.NodeOwner, 0)
	}
	for len(m.Lnn2Gnn) < n {
		m.Lnn2Gnn = append(m.Lnn2Gnn, len(m.Lnn2Gnn))
	}
}

// ReserveElements grows the element arrays to hold n elements.
func (m *Mesh) ReserveElements(n int) {
	for len(m.ENList) < n*m.NLoc {
		m.ENList = append(m.ENList, -1)
	}
	for len(m.Boundary) < n*m.NLoc {
		m.Boundary = append(m.Boundary, 0)
	}
}

// TrimElements truncates the element arrays to the live counter after a
// growth pass reserved more capacity than was consumed.
func (m *Mesh) TrimElements() {
	m.ENList = m.ENList[:int(m.NElements)*m.NLoc]
	m.Boundary = m.Boundary[:int(m.NElements)*m.NLoc]
}

// CreateAdjacency rebuilds NNList and NEList from the element-node list.
func (m *Mesh) CreateAdjacency() {
	nnodes := int(m.NNodes)
	m.NNList = make([][]int, nnodes)
	m.NEList = make([]map[int]bool, nnodes)
	for i := 0; i < nnodes; i++ {
		m.NEList[i] = make(map[int]bool)
	}
	nloc := m.NLoc
	for e := 0; e < int(m.NElements); e++ {
		n := m.ENList[e*nloc : (e+1)*nloc]
		if n[0] < 0 {
			continue
		}
		for i := 0; i < nloc; i++ {
			m.NEList[n[i]][e] = true
			for j := i + 1; j < nloc; j++ {
				if !containsInt(m.NNList[n[i]], n[j]) {
					m.NNList[n[i]] = append(m.NNList[n[i]], n[j])
				}
				if !containsInt(m.NNList[n[j]], n[i]) {
					m.NNList[n[j]] = append(m.NNList[n[j]], n[i])
				}
			}
		}
	}
}

// EdgeElements returns the elements shared by edge (i,j), sorted ascending.
func (m *Mesh) EdgeElements(i, j int) []int {
	var shared []int
	for e := range m.NEList[i] {
		if m.NEList[j][e] {
			shared = append(shared, e)
		}
	}
	sort.Ints(shared)
	return shared
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
