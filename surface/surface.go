// Package surface models the boundary of a mesh as a set of facets (line
// segments in 2D, triangles in 3D) with boundary markers and coplanar ids.
// Coarsening and swapping consult its predicates before accepting an edit so
// the boundary topology is never changed.
package surface

import (
	"math"
	"sort"

	"github.com/notargets/adaptmesh/mesh"
)

// Facets whose unit normals deviate by less than this dot-product tolerance
// are assigned the same coplanar id.
const coplanarTolerance = 0.9999

// Surface holds the boundary facets of a mesh snapshot. It is rebuilt from
// the element boundary tags whenever an operator needs it; Collapse keeps it
// in step with the mesh during a coarsening sweep.
type Surface struct {
	m     *mesh.Mesh
	snloc int // vertices per facet, NDim

	ENList   []int // facet-vertex list, snloc entries per facet
	Boundary []int // boundary marker per facet
	Coplanar []int // coplanar id per facet
	Normals  []float64

	SNEList [][]int // vertex -> incident facets, indexed by vertex id
}

// Outward-facing vertex orderings of the facet opposite each vertex of a
// positively oriented tetrahedron.
var tetFacets = [4][3]int{{1, 3, 2}, {0, 2, 3}, {0, 3, 1}, {0, 1, 2}}

// New extracts the surface of a mesh from its per-facet boundary tags.
func New(m *mesh.Mesh) *Surface {
	s := &Surface{
		m:       m,
		snloc:   m.NDim,
		SNEList: make([][]int, int(m.NNodes)),
	}
	nloc := m.NLoc
	for e := 0; e < int(m.NElements); e++ {
		n := m.GetElement(e)
		if n[0] < 0 {
			continue
		}
		for i := 0; i < nloc; i++ {
			b := m.Boundary[e*nloc+i]
			if b <= 0 {
				continue
			}
			if m.NDim == 2 {
				s.appendFacetRaw([]int{n[(i+1)%3], n[(i+2)%3]}, b)
			} else {
				f := tetFacets[i]
				s.appendFacetRaw([]int{n[f[0]], n[f[1]], n[f[2]]}, b)
			}
		}
	}
	s.calcCoplanarIDs()
	return s
}

func (s *Surface) appendFacetRaw(nodes []int, boundaryID int) {
	fid := len(s.Boundary)
	s.ENList = append(s.ENList, nodes...)
	s.Boundary = append(s.Boundary, boundaryID)
	s.Coplanar = append(s.Coplanar, 0)
	s.Normals = append(s.Normals, s.facetNormal(nodes)...)
	for _, v := range nodes {
		for len(s.SNEList) <= v {
			s.SNEList = append(s.SNEList, nil)
		}
		s.SNEList[v] = append(s.SNEList[v], fid)
	}
}

func (s *Surface) facetNormal(nodes []int) []float64 {
	x0 := s.m.GetCoords(nodes[0])
	x1 := s.m.GetCoords(nodes[1])
	if s.snloc == 2 {
		dx, dy := x1[0]-x0[0], x1[1]-x0[1]
		l := math.Hypot(dx, dy)
		if l == 0 {
			return []float64{0, 0}
		}
		return []float64{dy / l, -dx / l}
	}
	x2 := s.m.GetCoords(nodes[2])
	ax, ay, az := x1[0]-x0[0], x1[1]-x0[1], x1[2]-x0[2]
	bx, by, bz := x2[0]-x0[0], x2[1]-x0[1], x2[2]-x0[2]
	nx, ny, nz := ay*bz-az*by, az*bx-ax*bz, ax*by-ay*bx
	l := math.Sqrt(nx*nx + ny*ny + nz*nz)
	if l == 0 {
		return []float64{0, 0, 0}
	}
	return []float64{nx / l, ny / l, nz / l}
}

// calcCoplanarIDs groups facets whose normals agree within tolerance,
// flood-filling along shared vertices so each straight boundary segment gets
// one id.
func (s *Surface) calcCoplanarIDs() {
	nfacets := len(s.Boundary)
	next := 1
	for seed := 0; seed < nfacets; seed++ {
		if s.Coplanar[seed] != 0 {
			continue
		}
		s.Coplanar[seed] = next
		stack := []int{seed}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for i := 0; i < s.snloc; i++ {
				for _, g := range s.SNEList[s.ENList[f*s.snloc+i]] {
					if s.Coplanar[g] != 0 {
						continue
					}
					dot := 0.0
					for d := 0; d < s.snloc; d++ {
						dot += s.Normals[f*s.snloc+d] * s.Normals[g*s.snloc+d]
					}
					if dot > coplanarTolerance {
						s.Coplanar[g] = next
						stack = append(stack, g)
					}
				}
			}
		}
		next++
	}
}

// Contains reports whether v lies on the surface.
func (s *Surface) Contains(v int) bool {
	return len(s.SNEList[v]) > 0
}

// IsCornerVertex reports whether v joins facets of different coplanar ids or
// has an irregular facet valency; corners are never moved or collapsed.
func (s *Surface) IsCornerVertex(v int) bool {
	facets := s.SNEList[v]
	if len(facets) == 0 {
		return false
	}
	if s.snloc == 2 && len(facets) != 2 {
		return true
	}
	for _, f := range facets[1:] {
		if s.Coplanar[f] != s.Coplanar[facets[0]] {
			return true
		}
	}
	return false
}

// IsCollapsible reports whether collapsing rmVertex onto targetVertex
// preserves the boundary: interior vertices may collapse along any edge;
// surface vertices only along a facet of their own coplanar segment.
func (s *Surface) IsCollapsible(rmVertex, targetVertex int) bool {
	if !s.Contains(rmVertex) {
		return true
	}
	if !s.Contains(targetVertex) {
		return false
	}
	// The collapse must run along a facet shared by the pair.
	shared := -1
	for _, f := range s.SNEList[rmVertex] {
		for i := 0; i < s.snloc; i++ {
			if s.ENList[f*s.snloc+i] == targetVertex {
				shared = f
				break
			}
		}
		if shared >= 0 {
			break
		}
	}
	if shared < 0 {
		return false
	}
	for _, f := range s.SNEList[rmVertex] {
		if s.Coplanar[f] != s.Coplanar[shared] {
			return false
		}
	}
	return true
}

// Collapse mirrors an edge collapse rmVertex -> targetVertex on the surface:
// the facet joining the pair disappears and remaining facets at rmVertex are
// renumbered to targetVertex.
func (s *Surface) Collapse(rmVertex, targetVertex int) {
	facets := append([]int(nil), s.SNEList[rmVertex]...)
	for _, f := range facets {
		n := s.ENList[f*s.snloc : (f+1)*s.snloc]
		if containsInt(n, targetVertex) {
			// Facet degenerates; drop it from its other vertices too.
			for _, v := range n {
				if v != rmVertex {
					s.removeFacet(v, f)
				}
			}
			s.removeFacet(rmVertex, f)
			s.ENList[f*s.snloc] = -1
			continue
		}
		for i := 0; i < s.snloc; i++ {
			if n[i] == rmVertex {
				n[i] = targetVertex
			}
		}
		s.removeFacet(rmVertex, f)
		s.SNEList[targetVertex] = append(s.SNEList[targetVertex], f)
	}
	s.SNEList[rmVertex] = nil
}

func (s *Surface) removeFacet(v, f int) {
	list := s.SNEList[v]
	for i, g := range list {
		if g == f {
			s.SNEList[v] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// FindFacets returns the surface facets whose vertices all belong to the
// given element, sorted ascending.
func (s *Surface) FindFacets(elementNodes []int) []int {
	inElem := make(map[int]bool, len(elementNodes))
	for _, v := range elementNodes {
		inElem[v] = true
	}
	var out []int
	for _, v := range elementNodes {
		for _, f := range s.SNEList[v] {
			if s.ENList[f*s.snloc] < 0 {
				continue
			}
			all := true
			for i := 0; i < s.snloc; i++ {
				if !inElem[s.ENList[f*s.snloc+i]] {
					all = false
					break
				}
			}
			if all && !containsInt(out, f) {
				out = append(out, f)
			}
		}
	}
	sort.Ints(out)
	return out
}

// AppendFacet registers an externally supplied facet, used when a
// distributed layer migrates boundary data into the local halo.
func (s *Surface) AppendFacet(nodes []int, boundaryID, coplanarID int, shared bool) {
	if shared {
		// Reject duplicates of facets already present.
		for _, f := range s.SNEList[nodes[0]] {
			n := s.ENList[f*s.snloc : (f+1)*s.snloc]
			same := true
			for _, v := range nodes {
				if !containsInt(n, v) {
					same = false
					break
				}
			}
			if same {
				return
			}
		}
	}
	fid := len(s.Boundary)
	s.appendFacetRaw(nodes, boundaryID)
	s.Coplanar[fid] = coplanarID
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
