package utils

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionMapCoversRange(t *testing.T) {
	for _, tc := range []struct{ np, max int }{{1, 10}, {3, 10}, {4, 7}, {8, 3}, {2, 0}} {
		pm := NewPartitionMap(tc.np, tc.max)
		covered := 0
		prevHi := 0
		for n := 0; n < tc.np; n++ {
			lo, hi := pm.GetBucketRange(n)
			require.Equal(t, prevHi, lo, "np=%d max=%d bucket %d", tc.np, tc.max, n)
			require.LessOrEqual(t, lo, hi)
			covered += hi - lo
			prevHi = hi
		}
		assert.Equal(t, tc.max, covered)
	}
}

func TestPartitionMapBalance(t *testing.T) {
	pm := NewPartitionMap(4, 10)
	for n := 0; n < 4; n++ {
		lo, hi := pm.GetBucketRange(n)
		size := hi - lo
		assert.GreaterOrEqual(t, size, 2)
		assert.LessOrEqual(t, size, 3)
	}
}

func TestChunkQueueDrainsExactly(t *testing.T) {
	q := NewChunkQueue(1000, 64)
	seen := make([]int32, 1000)
	RunParallel(4, func(tid int) {
		for {
			lo, hi, ok := q.Next()
			if !ok {
				return
			}
			for i := lo; i < hi; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		}
	})
	for i, s := range seen {
		require.Equal(t, int32(1), s, "index %d", i)
	}
}

func TestRunParallelBarrier(t *testing.T) {
	var counter int64
	RunParallel(8, func(tid int) {
		atomic.AddInt64(&counter, 1)
	})
	assert.Equal(t, int64(8), counter)
}
