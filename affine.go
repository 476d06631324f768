package maptransformer

import "fmt"

// affine is a 2D affine transform:
//
//	x' = a*x + b*y + c
//	y' = d*x + e*y + f
type affine struct {
	a, b, c float64
	d, e, f float64
}

func (m affine) apply(p Point) Point {
	return Point{
		X: m.a*p.X + m.b*p.Y + m.c,
		Y: m.d*p.X + m.e*p.Y + m.f,
	}
}

// affineFromTriangles computes the affine transform that maps the vertices of
// the source triangle onto the vertices of the destination triangle. A
// degenerate (zero-area) source triangle has no unique transform and is an
// error.
func affineFromTriangles(src, dst [3]Point) (affine, error) {
	det := src[0].X*(src[1].Y-src[2].Y) -
		src[0].Y*(src[1].X-src[2].X) +
		(src[1].X*src[2].Y - src[2].X*src[1].Y)
	if det == 0 {
		return affine{}, fmt.Errorf("degenerate triangle %v has no affine transform", src)
	}

	// Cramer's rule over the 3x3 system [x y 1] * [coef] = [x'] for each of
	// the two output coordinates.
	solve := func(v0, v1, v2 float64) (float64, float64, float64) {
		dA := v0*(src[1].Y-src[2].Y) - src[0].Y*(v1-v2) + (v1*src[2].Y - v2*src[1].Y)
		dB := src[0].X*(v1-v2) - v0*(src[1].X-src[2].X) + (src[1].X*v2 - src[2].X*v1)
		dC := src[0].X*(src[1].Y*v2-src[2].Y*v1) -
			src[0].Y*(src[1].X*v2-src[2].X*v1) +
			v0*(src[1].X*src[2].Y-src[2].X*src[1].Y)
		return dA / det, dB / det, dC / det
	}

	var m affine
	m.a, m.b, m.c = solve(dst[0].X, dst[1].X, dst[2].X)
	m.d, m.e, m.f = solve(dst[0].Y, dst[1].Y, dst[2].Y)
	return m, nil
}
