// Package geometry provides the metric-space measurements shared by the
// adaptation operators: edge lengths under a Riemannian metric, signed
// element area/volume, and the Lipnikov shape-quality functional.
//
// Metric tensors are stored symmetric-packed per vertex:
//
//	2D: [m00 m01 m11]
//	3D: [m00 m01 m02 m11 m12 m22]
package geometry

import "math"

// MetricSize returns the packed storage size for a d-dimensional metric.
func MetricSize(ndim int) int {
	return ndim * (ndim + 1) / 2
}

// Area is the signed area of triangle (x0,x1,x2), positive for
// counter-clockwise orientation.
func Area(x0, x1, x2 []float64) float64 {
	return 0.5 * ((x1[0]-x0[0])*(x2[1]-x0[1]) - (x2[0]-x0[0])*(x1[1]-x0[1]))
}

// Volume is the signed volume of tetrahedron (x0,x1,x2,x3), positive for
// right-handed orientation.
func Volume(x0, x1, x2, x3 []float64) float64 {
	a1, a2, a3 := x1[0]-x0[0], x1[1]-x0[1], x1[2]-x0[2]
	b1, b2, b3 := x2[0]-x0[0], x2[1]-x0[1], x2[2]-x0[2]
	c1, c2, c3 := x3[0]-x0[0], x3[1]-x0[1], x3[2]-x0[2]
	return (a1*(b2*c3-b3*c2) - a2*(b1*c3-b3*c1) + a3*(b1*c2-b2*c1)) / 6.0
}

// quadratic form z'Mz for a packed 2D metric
func form2D(z, m []float64) float64 {
	return z[0]*(m[0]*z[0]+m[1]*z[1]) + z[1]*(m[1]*z[0]+m[2]*z[1])
}

// quadratic form z'Mz for a packed 3D metric
func form3D(z, m []float64) float64 {
	return z[0]*(m[0]*z[0]+m[1]*z[1]+m[2]*z[2]) +
		z[1]*(m[1]*z[0]+m[3]*z[1]+m[4]*z[2]) +
		z[2]*(m[2]*z[0]+m[4]*z[1]+m[5]*z[2])
}

// LengthM is the length of segment (x0,x1) measured under the single metric
// m: sqrt(z'Mz) with z = x1-x0.
func LengthM(x0, x1, m []float64) float64 {
	ndim := len(x0)
	z := make([]float64, ndim)
	for i := 0; i < ndim; i++ {
		z[i] = x1[i] - x0[i]
	}
	if ndim == 2 {
		return math.Sqrt(form2D(z, m))
	}
	return math.Sqrt(form3D(z, m))
}

// EdgeLength integrates the metric along segment (x0,x1) with a symmetric
// two-point rule: sqrt((z'Mbar z + z'M0 z + z'M1 z)/3), Mbar = (M0+M1)/2.
// The result is invariant under endpoint swap to machine precision.
func EdgeLength(x0, x1, m0, m1 []float64) float64 {
	ndim := len(x0)
	z := make([]float64, ndim)
	for i := 0; i < ndim; i++ {
		z[i] = x1[i] - x0[i]
	}
	var f0, f1 float64
	if ndim == 2 {
		f0, f1 = form2D(z, m0), form2D(z, m1)
	} else {
		f0, f1 = form3D(z, m0), form3D(z, m1)
	}
	fbar := 0.5 * (f0 + f1)
	return math.Sqrt((fbar + f0 + f1) / 3.0)
}

// MidpointWeight is the parametric position of the refinement midpoint on
// edge (x0,x1): w = 1/(1+sqrt(L(x0,x1;M0)/L(x0,x1;M1))). The weighting gives
// the two half-edges equal metric length.
func MidpointWeight(x0, x1, m0, m1 []float64) float64 {
	return 1.0 / (1.0 + math.Sqrt(LengthM(x0, x1, m0)/LengthM(x0, x1, m1)))
}

// InterpolateMetric writes m0 + w*(m1-m0) into dst.
func InterpolateMetric(dst, m0, m1 []float64, w float64) {
	for i := range dst {
		dst[i] = m0[i] + w*(m1[i]-m0[i])
	}
}

// Lipnikov2D evaluates the anisotropic shape quality of triangle (x0,x1,x2)
// under the element-averaged metric. The value is 1 for an element that is
// equilateral with unit edges in metric space, falls toward 0 as the shape or
// size degrades, and is <= 0 for inverted elements.
func Lipnikov2D(x0, x1, x2, m0, m1, m2 []float64) float64 {
	mbar := [3]float64{
		(m0[0] + m1[0] + m2[0]) / 3.0,
		(m0[1] + m1[1] + m2[1]) / 3.0,
		(m0[2] + m1[2] + m2[2]) / 3.0,
	}

	// Perimeter in metric space.
	l := LengthM(x0, x1, mbar[:]) + LengthM(x0, x2, mbar[:]) + LengthM(x1, x2, mbar[:])

	a := Area(x0, x1, x2)
	aM := a * math.Sqrt(mbar[0]*mbar[2]-mbar[1]*mbar[1])

	f := math.Min(l/3.0, 3.0/l)
	F := math.Pow(f*(2.0-f), 3.0)
	q := 12.0 * math.Sqrt(3.0) * aM * F / (l * l)
	if math.IsNaN(q) {
		return 0
	}
	return q
}

// Lipnikov3D is the tetrahedral analogue of Lipnikov2D.
func Lipnikov3D(x0, x1, x2, x3, m0, m1, m2, m3 []float64) float64 {
	var mbar [6]float64
	for i := 0; i < 6; i++ {
		mbar[i] = (m0[i] + m1[i] + m2[i] + m3[i]) / 4.0
	}

	// Sum of the six edge lengths in metric space.
	l := LengthM(x0, x1, mbar[:]) + LengthM(x0, x2, mbar[:]) + LengthM(x0, x3, mbar[:]) +
		LengthM(x1, x2, mbar[:]) + LengthM(x1, x3, mbar[:]) + LengthM(x2, x3, mbar[:])

	v := Volume(x0, x1, x2, x3)
	det := mbar[0]*(mbar[3]*mbar[5]-mbar[4]*mbar[4]) -
		mbar[1]*(mbar[1]*mbar[5]-mbar[4]*mbar[2]) +
		mbar[2]*(mbar[1]*mbar[4]-mbar[3]*mbar[2])
	vM := v * math.Sqrt(det)

	f := math.Min(l/6.0, 6.0/l)
	F := math.Pow(f*(2.0-f), 3.0)
	q := math.Pow(6, 4) * math.Sqrt(2.0) * vM * F / (l * l * l)
	if math.IsNaN(q) {
		return 0
	}
	return q
}
