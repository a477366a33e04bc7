package mesh

import "github.com/notargets/adaptmesh/utils"

// The deferred-mutation queue stages adjacency edits raised concurrently by
// the operator worker goroutines. Mutations targeting vertex v always land in
// bucket v mod S, regardless of the raising thread; at a commit fence each
// bucket is drained by exactly one goroutine, so every write to a given
// adjacency list is serialised without locks.

type defOpKind uint8

const (
	opAddNN defOpKind = iota
	opRemNN
	opAddNE
	opRemNE
)

type defOp struct {
	kind defOpKind
	v, w int // target vertex and the neighbour/element operand
}

type deferredOps struct {
	nbuckets int
	queues   [][][]defOp // [bucket][tid]
}

func newDeferredOps(nbuckets, nthreads int) *deferredOps {
	d := &deferredOps{
		nbuckets: nbuckets,
		queues:   make([][][]defOp, nbuckets),
	}
	for b := range d.queues {
		d.queues[b] = make([][]defOp, nthreads)
	}
	return d
}

// NBuckets returns the number of deferred-op buckets (BucketScaling*Threads).
func (m *Mesh) NBuckets() int {
	return m.def.nbuckets
}

func (m *Mesh) push(kind defOpKind, v, w, tid int) {
	b := v % m.def.nbuckets
	m.def.queues[b][tid] = append(m.def.queues[b][tid], defOp{kind, v, w})
}

// DeferredAddNN queues the addition of w to NNList[v].
func (m *Mesh) DeferredAddNN(v, w, tid int) {
	m.push(opAddNN, v, w, tid)
}

// DeferredRemNN queues the removal of w from NNList[v].
func (m *Mesh) DeferredRemNN(v, w, tid int) {
	m.push(opRemNN, v, w, tid)
}

// DeferredAddNE queues the addition of element e to NEList[v].
func (m *Mesh) DeferredAddNE(v, e, tid int) {
	m.push(opAddNE, v, e, tid)
}

// DeferredRemNE queues the removal of element e from NEList[v].
func (m *Mesh) DeferredRemNE(v, e, tid int) {
	m.push(opRemNE, v, e, tid)
}

// CommitDeferred applies every queued mutation in the given bucket and clears
// it. All targets in a bucket share the same hash, so a single caller owns
// their adjacency lists for the duration of the commit.
func (m *Mesh) CommitDeferred(bucket int) {
	for tid := range m.def.queues[bucket] {
		for _, op := range m.def.queues[bucket][tid] {
			switch op.kind {
			case opAddNN:
				m.NNList[op.v] = append(m.NNList[op.v], op.w)
			case opRemNN:
				nn := m.NNList[op.v]
				for i, x := range nn {
					if x == op.w {
						m.NNList[op.v] = append(nn[:i], nn[i+1:]...)
						break
					}
				}
			case opAddNE:
				m.NEList[op.v][op.w] = true
			case opRemNE:
				delete(m.NEList[op.v], op.w)
			}
		}
		m.def.queues[bucket][tid] = m.def.queues[bucket][tid][:0]
	}
}

// CommitAllDeferred drains every bucket, distributing disjoint bucket sets
// over the worker pool.
func (m *Mesh) CommitAllDeferred() {
	pm := utils.NewPartitionMap(m.Threads, m.def.nbuckets)
	utils.RunParallel(m.Threads, func(tid int) {
		lo, hi := pm.GetBucketRange(tid)
		for b := lo; b < hi; b++ {
			m.CommitDeferred(b)
		}
	})
}
