package adapt

import (
	"log"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/notargets/adaptmesh/geometry"
	"github.com/notargets/adaptmesh/mesh"
	"github.com/notargets/adaptmesh/surface"
)

// Options are the control parameters of an adaptation run. The zero value is
// not useful; DefaultOptions gives the standard thresholds from the
// literature.
type Options struct {
	LLow             float64 // coarsen edges with metric length below this
	LMax             float64 // refine edges with metric length above this
	QMin             float64 // swap around elements with quality below this
	MaxSweeps        int     // outer loop cap
	SmoothIterations int
	SmoothTolerance  float64
}

func DefaultOptions() Options {
	return Options{
		LLow:             1.0 / math.Sqrt2,
		LMax:             math.Sqrt2,
		QMin:             0.4,
		MaxSweeps:        10,
		SmoothIterations: 50,
		SmoothTolerance:  1e-5,
	}
}

// Stats summarises edge lengths and element qualities of a mesh state. RMS
// values measure deviation from the ideal (unit metric length, unit
// quality).
type Stats struct {
	NNodes, NElements int
	EdgeRMS           float64
	MeanQuality       float64
	MinQuality        float64
	QualityRMS        float64
}

// MeshStats computes the adaptation statistics of the live mesh.
func MeshStats(m *mesh.Mesh) Stats {
	s := Stats{MinQuality: math.Inf(1)}

	var lengths []float64
	for i := 0; i < int(m.NNodes); i++ {
		if len(m.NNList[i]) > 0 {
			s.NNodes++
		}
		for _, j := range m.NNList[i] {
			if j > i {
				d := m.CalcEdgeLength(i, j) - 1.0
				lengths = append(lengths, d*d)
			}
		}
	}

	var qualities []float64
	sw := &Swap{m: m, np: 1}
	for e := 0; e < int(m.NElements); e++ {
		n := m.GetElement(e)
		if n[0] < 0 {
			continue
		}
		s.NElements++
		var q float64
		if m.NDim == 2 {
			q = sw.triQuality(n[0], n[1], n[2])
		} else {
			q = sw.tetQuality(n[0], n[1], n[2], n[3])
		}
		qualities = append(qualities, q)
		if q < s.MinQuality {
			s.MinQuality = q
		}
	}

	if len(lengths) > 0 {
		s.EdgeRMS = math.Sqrt(stat.Mean(lengths, nil))
	}
	if len(qualities) > 0 {
		s.MeanQuality = stat.Mean(qualities, nil)
		dev := make([]float64, len(qualities))
		for i, q := range qualities {
			dev[i] = (1 - q) * (1 - q)
		}
		s.QualityRMS = math.Sqrt(stat.Mean(dev, nil))
	} else {
		s.MinQuality = 0
	}
	return s
}

func (sw *Swap) triQuality(a, b, c int) float64 {
	m := sw.m
	return geometry.Lipnikov2D(
		m.GetCoords(a), m.GetCoords(b), m.GetCoords(c),
		m.GetMetric(a), m.GetMetric(b), m.GetMetric(c))
}

// Adapt runs coarsen/swap/refine/swap/smooth sweeps until the edge-length
// and quality statistics stabilise or opts.MaxSweeps is reached, then
// defragments the arenas so indices are dense. It returns the statistics of
// the final mesh.
func Adapt(m *mesh.Mesh, opts Options) Stats {
	prev := MeshStats(m)
	log.Printf("adapt: start %d nodes, %d elements, edge rms %.3f, min quality %.3f",
		prev.NNodes, prev.NElements, prev.EdgeRMS, prev.MinQuality)

	for sweep := 0; sweep < opts.MaxSweeps; sweep++ {
		// Refinement and coarsening templates are triangle-specific; on a
		// tetrahedral mesh the sweep degenerates to swap and smooth.
		if m.NDim == 2 {
			s := surface.New(m)
			NewCoarsen2D(m, s).Coarsen(opts.LLow, opts.LMax)

			s = surface.New(m)
			NewSwap(m, s).Swap(opts.QMin)

			NewRefine2D(m).Refine(opts.LMax)
		}

		s := surface.New(m)
		NewSwap(m, s).Swap(opts.QMin)

		if opts.SmoothIterations > 0 {
			s = surface.New(m)
			NewSmooth(m, s).Run(opts.SmoothIterations, opts.SmoothTolerance)
		}

		cur := MeshStats(m)
		log.Printf("adapt: sweep %d: %d nodes, %d elements, edge rms %.3f, min quality %.3f",
			sweep, cur.NNodes, cur.NElements, cur.EdgeRMS, cur.MinQuality)

		if converged(prev, cur) {
			prev = cur
			break
		}
		prev = cur
	}

	m.Defragment()
	return prev
}

func converged(a, b Stats) bool {
	const tol = 1e-3
	return a.NNodes == b.NNodes &&
		a.NElements == b.NElements &&
		math.Abs(a.EdgeRMS-b.EdgeRMS) < tol &&
		math.Abs(a.MeanQuality-b.MeanQuality) < tol
}
