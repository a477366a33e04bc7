package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// VerifyMetric checks that every packed per-vertex metric is symmetric
// positive definite, via a Cholesky factorisation of the unpacked tensor.
func VerifyMetric(ndim int, metric []float64) error {
	msize := ndim * (ndim + 1) / 2
	nnodes := len(metric) / msize
	var chol mat.Cholesky
	for v := 0; v < nnodes; v++ {
		m := metric[v*msize : (v+1)*msize]
		sym := mat.NewSymDense(ndim, nil)
		if ndim == 2 {
			sym.SetSym(0, 0, m[0])
			sym.SetSym(0, 1, m[1])
			sym.SetSym(1, 1, m[2])
		} else {
			sym.SetSym(0, 0, m[0])
			sym.SetSym(0, 1, m[1])
			sym.SetSym(0, 2, m[2])
			sym.SetSym(1, 1, m[3])
			sym.SetSym(1, 2, m[4])
			sym.SetSym(2, 2, m[5])
		}
		if ok := chol.Factorize(sym); !ok {
			return fmt.Errorf("metric at vertex %d is not positive definite: %v", v, m)
		}
	}
	return nil
}
