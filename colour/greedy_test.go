package colour

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validColouring(t *testing.T, adj [][]int, colours []int) {
	t.Helper()
	for i := range adj {
		require.GreaterOrEqual(t, colours[i], 0)
		for _, j := range adj[i] {
			assert.NotEqual(t, colours[i], colours[j], "edge (%d,%d) shares colour %d", i, j, colours[i])
		}
	}
}

func TestGreedyPath(t *testing.T) {
	adj := [][]int{{1}, {0, 2}, {1, 3}, {2}}
	colours := Greedy(adj)
	validColouring(t, adj, colours)
	assert.Equal(t, 0, colours[0])
	assert.LessOrEqual(t, MaxColour(colours), 2)
}

func TestGreedyStar(t *testing.T) {
	// Hub 0 with five spokes: two colours suffice.
	adj := [][]int{{1, 2, 3, 4, 5}, {0}, {0}, {0}, {0}, {0}}
	colours := Greedy(adj)
	validColouring(t, adj, colours)
	assert.LessOrEqual(t, MaxColour(colours), 1)
}

func TestGreedyEmptyAndIsolated(t *testing.T) {
	assert.Empty(t, Greedy(nil))
	colours := Greedy([][]int{nil, nil})
	assert.Equal(t, []int{0, 0}, colours)
}

func TestGraphAdjacency(t *testing.T) {
	edges := [][2]int{{0, 1}, {1, 2}, {0, 1}, {2, 0}, {3, 3}}
	adj := GraphAdjacency(4, edges)
	assert.ElementsMatch(t, []int{1, 2}, adj[0])
	assert.ElementsMatch(t, []int{0, 2}, adj[1])
	assert.ElementsMatch(t, []int{0, 1}, adj[2])
	assert.Empty(t, adj[3], "self loops are dropped")

	colours := Greedy(adj)
	validColouring(t, adj, colours)
}
