package maptransformer

import "fmt"

// Point is a position or size in map coordinates. Units are arbitrary and
// equivalent to pixels when the map has an image.
type Point struct {
	X float64
	Y float64
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.X, p.Y)
}

// Add returns the component-wise sum of p and q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns the component-wise difference of p and q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Triangle references three correspondence points by index.
type Triangle [3]int
