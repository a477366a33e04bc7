package adapt

import (
	"log"

	metis "github.com/notargets/go-metis"

	"github.com/notargets/adaptmesh/mesh"
	"github.com/notargets/adaptmesh/utils"
)

// partitionVertexGraph splits the vertex adjacency graph into nparts thread
// partitions for phase-1 coarsening. Load balance is steered toward the
// vertices that actually have work: a dynamic vertex weighs double, and edges
// touching a dynamic vertex cost double to cut, discouraging partition
// boundaries through collapse candidates.
func partitionVertexGraph(m *mesh.Mesh, dynamicVertex []int, nparts int) []int {
	nnodes := int(m.NNodes)

	xadj := make([]int32, nnodes+1)
	adjncy := make([]int32, 0, 6*nnodes)
	vwgt := make([]int32, nnodes)
	adjwgt := make([]int32, 0, 6*nnodes)
	for i := 0; i < nnodes; i++ {
		vwgt[i] = 1
		if dynamicVertex[i] >= 0 {
			vwgt[i] = 2
		}
		for _, j := range m.NNList[i] {
			if j < 0 {
				continue
			}
			adjncy = append(adjncy, int32(j))
			w := int32(1)
			if dynamicVertex[i] >= 0 || dynamicVertex[j] >= 0 {
				w = 2
			}
			adjwgt = append(adjwgt, w)
		}
		xadj[i+1] = int32(len(adjncy))
	}

	opts := make([]int32, metis.NoOptions)
	if err := metis.SetDefaultOptions(opts); err != nil {
		log.Printf("METIS options unavailable, falling back to block partitions: %v", err)
		return blockPartition(nnodes, nparts)
	}
	opts[metis.OptionObjType] = metis.ObjTypeCut

	ubvec := []float32{1.05}
	part, _, err := metis.PartGraphKwayWeighted(
		xadj, adjncy, vwgt, adjwgt,
		int32(nparts), nil, ubvec, opts,
	)
	if err != nil {
		log.Printf("METIS partitioning failed, falling back to block partitions: %v", err)
		return blockPartition(nnodes, nparts)
	}

	tpartition := make([]int, nnodes)
	for i := range tpartition {
		tpartition[i] = int(part[i])
	}
	return tpartition
}

func blockPartition(nnodes, nparts int) []int {
	pm := utils.NewPartitionMap(nparts, nnodes)
	tpartition := make([]int, nnodes)
	for tid := 0; tid < nparts; tid++ {
		lo, hi := pm.GetBucketRange(tid)
		for i := lo; i < hi; i++ {
			tpartition[i] = tid
		}
	}
	return tpartition
}
