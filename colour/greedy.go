// Package colour implements greedy graph colouring, used to extract
// independent sets of mesh operations that can proceed without conflict.
package colour

import (
	"github.com/james-bowman/sparse"
)

// Greedy assigns a first-fit colour to every vertex of the graph given by
// per-vertex neighbour lists. Vertices sharing an edge receive different
// colours; at most maxDegree+1 colours are used. Colour 0 is the first
// assigned. No balance between colour classes is attempted.
func Greedy(adj [][]int) []int {
	colours := make([]int, len(adj))
	for i := range colours {
		colours[i] = -1
	}
	for i := range adj {
		used := make(map[int]bool, len(adj[i]))
		for _, j := range adj[i] {
			if j >= 0 && j < len(colours) && colours[j] >= 0 {
				used[colours[j]] = true
			}
		}
		c := 0
		for used[c] {
			c++
		}
		colours[i] = c
	}
	return colours
}

// MaxColour returns the largest colour in the assignment, -1 when empty.
func MaxColour(colours []int) int {
	max := -1
	for _, c := range colours {
		if c > max {
			max = c
		}
	}
	return max
}

// GraphAdjacency assembles symmetric adjacency lists for an n-vertex graph
// from an edge list, deduplicating through a sparse matrix: edges are
// scattered into a DOK and read back row-by-row from its CSR form.
func GraphAdjacency(n int, edges [][2]int) [][]int {
	adj := make([][]int, n)
	if len(edges) == 0 {
		return adj
	}
	dok := sparse.NewDOK(n, n)
	for _, e := range edges {
		if e[0] == e[1] {
			continue
		}
		dok.Set(e[0], e[1], 1)
		dok.Set(e[1], e[0], 1)
	}
	csr := dok.ToCSR()
	for i := 0; i < n; i++ {
		csr.DoRowNonZero(i, func(_, j int, _ float64) {
			adj[i] = append(adj[i], j)
		})
	}
	return adj
}
