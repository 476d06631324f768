package maptransformer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDelaunaySquare(t *testing.T) {
	points := []Point{
		{X: 0, Y: 0},
		{X: 100, Y: 0},
		{X: 0, Y: 100},
		{X: 100, Y: 100},
	}

	triangles := delaunay(points)
	require.Len(t, triangles, 2)

	for _, tri := range triangles {
		for _, idx := range tri {
			require.GreaterOrEqual(t, idx, 0)
			require.Less(t, idx, len(points))
		}
		require.NotZero(t, orient(points[tri[0]], points[tri[1]], points[tri[2]]),
			"triangulation produced a degenerate triangle")
	}

	// Every input point appears in at least one triangle.
	used := make(map[int]bool)
	for _, tri := range triangles {
		for _, idx := range tri {
			used[idx] = true
		}
	}
	require.Len(t, used, len(points))
}

func TestDelaunayCoversInterior(t *testing.T) {
	points := []Point{
		{X: 0, Y: 0},
		{X: 100, Y: 0},
		{X: 0, Y: 100},
		{X: 100, Y: 100},
		{X: 50, Y: 50},
	}

	triangles := delaunay(points)
	require.NotEmpty(t, triangles)

	interior := []Point{
		{X: 25, Y: 25},
		{X: 75, Y: 25},
		{X: 25, Y: 75},
		{X: 75, Y: 75},
		{X: 50, Y: 10},
	}
	for _, p := range interior {
		require.GreaterOrEqual(t, containingTriangle(p, triangles, points), 0,
			"point %v not covered by any triangle", p)
	}

	require.Equal(t, -1, containingTriangle(Point{X: 200, Y: 200}, triangles, points))
}

func TestDelaunayDegenerateInputs(t *testing.T) {
	require.Nil(t, delaunay(nil))
	require.Nil(t, delaunay([]Point{{X: 1, Y: 1}}))
	require.Nil(t, delaunay([]Point{{X: 1, Y: 1}, {X: 2, Y: 2}}))

	// Collinear points have no valid triangulation.
	collinear := []Point{{X: 0, Y: 0}, {X: 10, Y: 10}, {X: 20, Y: 20}}
	require.Empty(t, delaunay(collinear))
}

func TestPointInTriangle(t *testing.T) {
	a := Point{X: 0, Y: 0}
	b := Point{X: 10, Y: 0}
	c := Point{X: 0, Y: 10}

	require.True(t, pointInTriangle(Point{X: 2, Y: 2}, a, b, c))
	require.True(t, pointInTriangle(a, a, b, c), "vertices are contained")
	require.True(t, pointInTriangle(Point{X: 5, Y: 0}, a, b, c), "edges are contained")
	require.True(t, pointInTriangle(Point{X: 5, Y: 5}, a, b, c), "hypotenuse is contained")
	require.False(t, pointInTriangle(Point{X: 6, Y: 6}, a, b, c))
	require.False(t, pointInTriangle(Point{X: -1, Y: 0}, a, b, c))
}
