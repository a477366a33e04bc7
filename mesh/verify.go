package mesh

import "fmt"

// Verify checks the structural invariants that must hold between operator
// calls: element/vertex adjacency consistency, edge sharing counts,
// orientation, boundary manifoldness (2D) and metric positive-definiteness.
// A failure indicates a programming error in an operator; the returned error
// names the offending indices.
func (m *Mesh) Verify() error {
	nloc := m.NLoc
	for e := 0; e < int(m.NElements); e++ {
		n := m.ENList[e*nloc : (e+1)*nloc]
		if n[0] < 0 {
			continue
		}
		for i := 0; i < nloc; i++ {
			if !m.NEList[n[i]][e] {
				return fmt.Errorf("element %d missing from NEList of its vertex %d", e, n[i])
			}
			for j := i + 1; j < nloc; j++ {
				if !containsInt(m.NNList[n[i]], n[j]) {
					return fmt.Errorf("edge (%d,%d) of element %d missing from NNList[%d]", n[i], n[j], e, n[i])
				}
				if !containsInt(m.NNList[n[j]], n[i]) {
					return fmt.Errorf("edge (%d,%d) of element %d missing from NNList[%d]", n[i], n[j], e, n[j])
				}
			}
		}
		if v := m.ElementSize(e); v <= 0 {
			return fmt.Errorf("element %d has non-positive size %g", e, v)
		}
	}

	// Symmetry of NNList and edge-element sharing counts.
	for i := 0; i < int(m.NNodes); i++ {
		seen := make(map[int]bool, len(m.NNList[i]))
		for _, j := range m.NNList[i] {
			if j < 0 {
				continue
			}
			if seen[j] {
				return fmt.Errorf("duplicate neighbour %d in NNList[%d]", j, i)
			}
			seen[j] = true
			if !containsInt(m.NNList[j], i) {
				return fmt.Errorf("NNList asymmetry: %d lists %d but not vice versa", i, j)
			}
			if m.NDim == 2 && i < j {
				if k := len(m.EdgeElements(i, j)); k < 1 || k > 2 {
					return fmt.Errorf("edge (%d,%d) shared by %d elements", i, j, k)
				}
			}
		}
		for e := range m.NEList[i] {
			if m.ENList[e*nloc] < 0 {
				return fmt.Errorf("erased element %d still in NEList[%d]", e, i)
			}
			if !containsInt(m.GetElement(e), i) {
				return fmt.Errorf("element %d in NEList[%d] does not reference %d", e, i, i)
			}
		}
	}

	if m.NDim == 2 {
		if err := m.verifyBoundary2D(); err != nil {
			return err
		}
	}
	return VerifyMetric(m.NDim, m.Metric[:int(m.NNodes)*m.MSize])
}

// verifyBoundary2D checks the boundary facets form a closed 1-manifold:
// every vertex touched by a boundary facet lies on exactly two of them.
func (m *Mesh) verifyBoundary2D() error {
	nloc := m.NLoc
	facetCount := make(map[int]int)
	for e := 0; e < int(m.NElements); e++ {
		n := m.ENList[e*nloc : (e+1)*nloc]
		if n[0] < 0 {
			continue
		}
		for i := 0; i < nloc; i++ {
			if m.Boundary[e*nloc+i] > 0 {
				facetCount[n[(i+1)%3]]++
				facetCount[n[(i+2)%3]]++
			}
		}
	}
	for v, cnt := range facetCount {
		if cnt != 2 {
			return fmt.Errorf("boundary vertex %d lies on %d boundary facets, want 2", v, cnt)
		}
	}
	return nil
}
