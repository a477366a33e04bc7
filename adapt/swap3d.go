package adapt

import (
	"math"
	"sort"

	"github.com/notargets/adaptmesh/colour"
	"github.com/notargets/adaptmesh/geometry"
)

// swap3D applies face-to-edge (2-to-3) and edge-to-face (3-to-2, 4-to-4,
// 5-to-6, 6-to-8) swaps to tetrahedra whose quality is below QMin. Poor
// elements are gathered with their face neighbours into a partial
// element-element graph which is coloured; cavities are then reconfigured one
// colour at a time so no two overlapping cavities are touched in the same
// round. Adjacency is rebuilt wholesale afterwards.
func (sw *Swap) swap3D(QMin float64) {
	m := sw.m
	nelements := int(m.NElements)

	// Partial element-element adjacency for the poor elements.
	partialEEList := make(map[int][]int)
	for e := 0; e < nelements; e++ {
		n := m.GetElement(e)
		if n[0] < 0 {
			continue
		}
		if sw.quality[e] >= QMin {
			continue
		}
		ee := []int{-1, -1, -1, -1}
		for j := 0; j < 4; j++ {
			// The face opposite vertex j.
			for cand := range m.NEList[n[(j+1)%4]] {
				if cand == e {
					continue
				}
				if m.NEList[n[(j+2)%4]][cand] && m.NEList[n[(j+3)%4]][cand] {
					ee[j] = cand
					break
				}
			}
		}
		partialEEList[e] = ee
	}
	if len(partialEEList) == 0 {
		return
	}

	// Colour the graph spanned by the poor elements and their neighbours.
	inGraph := make(map[int]bool)
	var edges [][2]int
	for e, ee := range partialEEList {
		inGraph[e] = true
		for _, f := range ee {
			if f >= 0 {
				inGraph[f] = true
				edges = append(edges, [2]int{e, f})
			}
		}
	}
	renumber := make([]int, 0, len(inGraph))
	for e := range inGraph {
		renumber = append(renumber, e)
	}
	sort.Ints(renumber)
	irenumber := make(map[int]int, len(renumber))
	for loc, e := range renumber {
		irenumber[e] = loc
	}
	for k := range edges {
		edges[k][0] = irenumber[edges[k][0]]
		edges[k][1] = irenumber[edges[k][1]]
	}
	adj := colour.GraphAdjacency(len(renumber), edges)
	colours := colour.Greedy(adj)
	maxColour := colour.MaxColour(colours)

	// Face-to-edge (2-to-3) swaps.
	for c := 0; c <= maxColour; c++ {
		for loc, eid0 := range renumber {
			if colours[loc] != c {
				continue
			}
			ee, isPoor := partialEEList[eid0]
			if !isPoor {
				continue
			}
			sw.faceToEdge(eid0, ee)
		}
	}

	// Edge-to-face swaps.
	for c := 0; c <= maxColour; c++ {
		for loc, eid0 := range renumber {
			if colours[loc] != c {
				continue
			}
			if _, isPoor := partialEEList[eid0]; !isPoor {
				continue
			}
			sw.edgeToFace(eid0)
		}
	}

	m.CreateAdjacency()
}

// faceToEdge tries to replace eid0 and one of its face neighbours by three
// tets around the edge joining the two apexes.
func (sw *Swap) faceToEdge(eid0 int, ee []int) {
	m := sw.m
	n := m.GetElement(eid0)
	if n[0] < 0 {
		return
	}

	// A deleted neighbour means another cavity already consumed it.
	for _, eid1 := range ee {
		if eid1 == -1 {
			continue
		}
		if m.GetElement(eid1)[0] < 0 {
			return
		}
	}

	ele0Set := map[int]bool{n[0]: true, n[1]: true, n[2]: true, n[3]: true}

	for j := 0; j < 4; j++ {
		eid1 := ee[j]
		if eid1 == -1 {
			continue
		}

		// Shared face ordered so the hull stays right-handed.
		hull := [5]int{-1, -1, -1, -1, -1}
		switch j {
		case 0:
			hull[0], hull[1], hull[2], hull[3] = n[1], n[3], n[2], n[0]
		case 1:
			hull[0], hull[1], hull[2], hull[3] = n[2], n[3], n[0], n[1]
		case 2:
			hull[0], hull[1], hull[2], hull[3] = n[0], n[3], n[1], n[2]
		case 3:
			hull[0], hull[1], hull[2], hull[3] = n[0], n[1], n[2], n[3]
		}

		mm := m.GetElement(eid1)
		for k := 0; k < 4; k++ {
			if !ele0Set[mm[k]] {
				hull[4] = mm[k]
				break
			}
		}
		if hull[4] == -1 {
			return
		}

		q0 := sw.tetQuality(hull[0], hull[1], hull[4], hull[3])
		q1 := sw.tetQuality(hull[1], hull[2], hull[4], hull[3])
		q2 := sw.tetQuality(hull[2], hull[0], hull[4], hull[3])

		if math.Min(sw.quality[eid0], sw.quality[eid1]) < math.Min(q0, math.Min(q1, q2)) {
			m.EraseElement(eid0)
			m.EraseElement(eid1)

			m.AppendElement([]int{hull[0], hull[1], hull[4], hull[3]})
			sw.quality = append(sw.quality, q0)
			m.AppendElement([]int{hull[1], hull[2], hull[4], hull[3]})
			sw.quality = append(sw.quality, q1)
			m.AppendElement([]int{hull[2], hull[0], hull[4], hull[3]})
			sw.quality = append(sw.quality, q2)
			return
		}
	}
}

// edgeToFace enumerates the retriangulations of the k-tet cavity around each
// edge of eid0 from swap3dTables, keeps the best-scoring option with
// automatic orientation correction, and accepts it if it strictly beats the
// cavity's minimum quality.
func (sw *Swap) edgeToFace(eid0 int) {
	m := sw.m
	n := m.GetElement(eid0)
	if n[0] < 0 {
		return
	}

	for k := 0; k < 3; k++ {
		for l := k + 1; l < 4; l++ {
			neighElements := m.EdgeElements(n[k], n[l])

			minQuality := sw.quality[eid0]
			var ringUnsorted []int
			toxic := false
			for _, it := range neighElements {
				minQuality = math.Min(minQuality, sw.quality[it])
				mm := m.GetElement(it)
				if mm[0] < 0 {
					toxic = true
					break
				}
				for j := 0; j < 4; j++ {
					if mm[j] != n[k] && mm[j] != n[l] {
						ringUnsorted = append(ringUnsorted, mm[j])
					}
				}
			}
			if toxic {
				return
			}

			nelements := len(neighElements)
			if nelements*2 != len(ringUnsorted) {
				continue
			}
			templates, known := swap3dTables[nelements]
			if !known {
				continue
			}

			// Chain the per-tet apex pairs into a cyclic ring.
			ring := make([]int, 0, nelements+1)
			sorted := make([]bool, nelements)
			ring = append(ring, ringUnsorted[0], ringUnsorted[1])
			for j := 1; j < nelements; j++ {
				for e := 1; e < nelements; e++ {
					if sorted[e] {
						continue
					}
					last := ring[len(ring)-1]
					if last == ringUnsorted[e*2] {
						ring = append(ring, ringUnsorted[e*2+1])
						sorted[e] = true
						break
					} else if last == ringUnsorted[e*2+1] {
						ring = append(ring, ringUnsorted[e*2])
						sorted[e] = true
						break
					}
				}
			}
			if len(ring) != nelements+1 || ring[0] != ring[len(ring)-1] {
				// Open ring: the edge runs along the surface.
				return
			}
			ring = ring[:nelements]

			// Materialise the candidate element sets.
			newElements := make([][][4]int, len(templates))
			for opt := range templates {
				tets := make([][4]int, len(templates[opt]))
				for t, tpl := range templates[opt] {
					for v := 0; v < 4; v++ {
						switch tpl[v] {
						case ringL:
							tets[t][v] = n[l]
						case ringK:
							tets[t][v] = n[k]
						default:
							tets[t][v] = ring[tpl[v]]
						}
					}
				}
				newElements[opt] = tets
			}
			ntets := len(newElements[0])

			newQ := make([][]float64, len(newElements))
			newMinQuality := make([]float64, len(newElements))
			bestOption := 0
			for invert := 0; invert < 2; invert++ {
				bestOption = 0
				for opt := range newElements {
					newQ[opt] = make([]float64, ntets)
					for t := 0; t < ntets; t++ {
						e := newElements[opt][t]
						newQ[opt][t] = sw.tetQuality(e[0], e[1], e[2], e[3])
					}
					newMinQuality[opt] = newQ[opt][0]
					for t := 1; t < ntets; t++ {
						newMinQuality[opt] = math.Min(newMinQuality[opt], newQ[opt][t])
					}
				}
				for opt := 1; opt < len(newElements); opt++ {
					if newMinQuality[opt] > newMinQuality[bestOption] {
						bestOption = opt
					}
				}
				if newMinQuality[bestOption] < 0 {
					// Every candidate came out inverted: the ring was chained
					// in the wrong sense, so flip the orientation of every
					// tet and score again.
					for opt := range newElements {
						for t := 0; t < ntets; t++ {
							newElements[opt][t][0], newElements[opt][t][1] =
								newElements[opt][t][1], newElements[opt][t][0]
						}
					}
					continue
				}
				break
			}

			if newMinQuality[bestOption] <= minQuality {
				continue
			}

			for _, it := range neighElements {
				m.EraseElement(it)
			}
			for t := 0; t < ntets; t++ {
				e := newElements[bestOption][t]
				m.AppendElement(e[:])
				sw.quality = append(sw.quality, newQ[bestOption][t])
			}
			return
		}
	}
}

func (sw *Swap) tetQuality(a, b, c, d int) float64 {
	m := sw.m
	return geometry.Lipnikov3D(
		m.GetCoords(a), m.GetCoords(b), m.GetCoords(c), m.GetCoords(d),
		m.GetMetric(a), m.GetMetric(b), m.GetMetric(c), m.GetMetric(d))
}
