package maptransformer

import "math"

// delaunay computes the Delaunay triangulation of the given points using the
// Bowyer-Watson incremental algorithm. The returned triangles index into the
// input slice. Duplicate and collinear configurations produce fewer (possibly
// zero) triangles rather than an error.
func delaunay(points []Point) []Triangle {
	if len(points) < 3 {
		return nil
	}

	// Super-triangle enclosing all input points. Its vertices use indices
	// n, n+1 and n+2 and are stripped before returning.
	minP := points[0]
	maxP := points[0]
	for _, p := range points[1:] {
		minP.X = math.Min(minP.X, p.X)
		minP.Y = math.Min(minP.Y, p.Y)
		maxP.X = math.Max(maxP.X, p.X)
		maxP.Y = math.Max(maxP.Y, p.Y)
	}
	d := math.Max(maxP.X-minP.X, maxP.Y-minP.Y)
	if d == 0 {
		d = 1
	}
	mid := Point{X: (minP.X + maxP.X) / 2, Y: (minP.Y + maxP.Y) / 2}

	n := len(points)
	vertices := make([]Point, n, n+3)
	copy(vertices, points)
	vertices = append(vertices,
		Point{X: mid.X - 20*d, Y: mid.Y - d},
		Point{X: mid.X, Y: mid.Y + 20*d},
		Point{X: mid.X + 20*d, Y: mid.Y - d},
	)

	triangles := []Triangle{{n, n + 1, n + 2}}

	for i := range n {
		p := vertices[i]

		// Triangles whose circumcircle contains the new point.
		var bad []Triangle
		var kept []Triangle
		for _, tri := range triangles {
			if inCircumcircle(p, vertices[tri[0]], vertices[tri[1]], vertices[tri[2]]) {
				bad = append(bad, tri)
			} else {
				kept = append(kept, tri)
			}
		}

		// The boundary of the cavity: edges of bad triangles not shared
		// by another bad triangle.
		type edge struct{ a, b int }
		edgeCount := make(map[edge]int)
		norm := func(a, b int) edge {
			if a > b {
				a, b = b, a
			}
			return edge{a, b}
		}
		for _, tri := range bad {
			edgeCount[norm(tri[0], tri[1])]++
			edgeCount[norm(tri[1], tri[2])]++
			edgeCount[norm(tri[2], tri[0])]++
		}

		triangles = kept
		for e, count := range edgeCount {
			if count != 1 {
				continue
			}
			triangles = append(triangles, Triangle{e.a, e.b, i})
		}
	}

	// Strip triangles that share a super-triangle vertex.
	out := make([]Triangle, 0, len(triangles))
	for _, tri := range triangles {
		if tri[0] >= n || tri[1] >= n || tri[2] >= n {
			continue
		}
		out = append(out, tri)
	}
	return out
}

// inCircumcircle reports whether p lies strictly inside the circumcircle of
// triangle abc.
func inCircumcircle(p, a, b, c Point) bool {
	ax, ay := a.X-p.X, a.Y-p.Y
	bx, by := b.X-p.X, b.Y-p.Y
	cx, cy := c.X-p.X, c.Y-p.Y

	det := (ax*ax+ay*ay)*(bx*cy-cx*by) -
		(bx*bx+by*by)*(ax*cy-cx*ay) +
		(cx*cx+cy*cy)*(ax*by-bx*ay)

	// The sign convention depends on the triangle orientation.
	if orient(a, b, c) > 0 {
		return det > 0
	}
	return det < 0
}

// orient returns a positive value when abc wind counter-clockwise, negative
// when clockwise and zero when collinear.
func orient(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// pointInTriangle reports whether p lies inside or on the boundary of
// triangle abc.
func pointInTriangle(p, a, b, c Point) bool {
	d1 := orient(p, a, b)
	d2 := orient(p, b, c)
	d3 := orient(p, c, a)

	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}
