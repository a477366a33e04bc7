package mesh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two triangles sharing the diagonal of the unit square.
func twoTriangles(t *testing.T, threads int) *Mesh {
	t.Helper()
	coords := []float64{
		0, 0,
		1, 0,
		1, 1,
		0, 1,
	}
	enlist := []int{
		0, 1, 2,
		0, 2, 3,
	}
	m, err := New(2, coords, enlist, nil, nil, Config{Threads: threads})
	require.NoError(t, err)
	return m
}

func TestNewBuildsAdjacency(t *testing.T) {
	m := twoTriangles(t, 1)

	assert.Equal(t, int64(4), m.NNodes)
	assert.Equal(t, int64(2), m.NElements)
	assert.ElementsMatch(t, []int{1, 2, 3}, m.NNList[0])
	assert.ElementsMatch(t, []int{0, 2}, m.NNList[1])
	assert.True(t, m.NEList[0][0])
	assert.True(t, m.NEList[0][1])
	assert.Equal(t, []int{0, 1}, m.EdgeElements(0, 2))
	assert.Equal(t, []int{0}, m.EdgeElements(0, 1))

	// Derived boundary: the four outer edges are tagged, the diagonal is not.
	s := 0
	for _, b := range m.Boundary {
		if b > 0 {
			s++
		}
	}
	assert.Equal(t, 4, s)

	require.NoError(t, m.Verify())
}

func TestNewRejectsBadInput(t *testing.T) {
	coords := []float64{0, 0, 1, 0, 1, 1}

	// Inverted element.
	_, err := New(2, coords, []int{0, 2, 1}, nil, nil, Config{})
	assert.Error(t, err)

	// Duplicate vertex.
	_, err = New(2, coords, []int{0, 1, 1}, nil, nil, Config{})
	assert.Error(t, err)

	// Out-of-range vertex.
	_, err = New(2, coords, []int{0, 1, 7}, nil, nil, Config{})
	assert.Error(t, err)

	// Non-SPD metric.
	metric := []float64{1, 0, 1, 1, 0, 1, -1, 0, -1}
	_, err = New(2, coords, []int{0, 1, 2}, metric, nil, Config{})
	assert.Error(t, err)
}

func TestEraseAndDefragment(t *testing.T) {
	m := twoTriangles(t, 1)

	m.EraseElement(1)
	assert.Less(t, m.ENList[3], 0)
	assert.False(t, m.NEList[0][1])

	// Vertex 3 is now orphaned; defragmentation drops it.
	m.EraseVertex(3)
	vertexMap := m.Defragment()
	assert.Equal(t, int64(3), m.NNodes)
	assert.Equal(t, int64(1), m.NElements)
	assert.Equal(t, -1, vertexMap[3])
	for v := 0; v < 3; v++ {
		assert.Equal(t, v, vertexMap[v])
	}
	assert.Equal(t, []int{0, 1, 2}, m.GetElement(0))
}

func TestDeferredOps(t *testing.T) {
	m := twoTriangles(t, 2)

	m.DeferredRemNN(0, 2, 0)
	m.DeferredAddNN(0, 9, 1)
	m.DeferredRemNE(0, 1, 0)
	m.DeferredAddNE(0, 5, 1)

	// Nothing applies before the commit fence.
	assert.Contains(t, m.NNList[0], 2)

	m.ReserveNodes(10)
	m.CommitAllDeferred()

	assert.NotContains(t, m.NNList[0], 2)
	assert.Contains(t, m.NNList[0], 9)
	assert.False(t, m.NEList[0][1])
	assert.True(t, m.NEList[0][5])
}

func TestDeferredBucketAssignment(t *testing.T) {
	m := twoTriangles(t, 2)
	nb := m.NBuckets()
	assert.Equal(t, 16, nb) // 8 buckets per thread by default

	// Mutations for vertex v land in bucket v mod nb no matter the thread.
	m.DeferredAddNN(1, 3, 0)
	m.DeferredAddNN(1, 3, 1)
	m.CommitDeferred(1 % nb)
	assert.Equal(t, 2, countOf(m.NNList[1], 3))
}

func countOf(s []int, v int) int {
	n := 0
	for _, x := range s {
		if x == v {
			n++
		}
	}
	return n
}

func TestVerifyCatchesCorruption(t *testing.T) {
	m := twoTriangles(t, 1)
	delete(m.NEList[2], 0)
	assert.Error(t, m.Verify())
}

func TestVerifyMetricSPD(t *testing.T) {
	assert.NoError(t, VerifyMetric(2, []float64{2, 0.5, 1}))
	assert.Error(t, VerifyMetric(2, []float64{1, 2, 1})) // indefinite
	assert.NoError(t, VerifyMetric(3, []float64{1, 0, 0, 1, 0, 1}))
	assert.Error(t, VerifyMetric(3, []float64{1, 0, 0, -1, 0, 1}))
}
