// Package maptransformer transforms points between two maps of the same space.
//
// The two maps (a "reference" map, typically drawn by a human or produced by a
// CAD tool, and a "robot" map produced by a SLAM process) are related by a
// non-linear transformation: the relation between two equivalent points in one
// part of the map is not necessarily the same as between two other equivalent
// points elsewhere. The transformation is described by pairs of correspondence
// points, one list per map, matched by index. On load the midpoints of each
// pair are triangulated and an affine transform is precalculated per triangle
// in each direction; point transformation applies the transform of the
// containing triangle, falling back to the whole-map transform for points
// outside the triangulated region.
package maptransformer

import (
	"errors"
	"math"
)

// ErrEmpty is returned when a transform is requested before map information
// has been loaded.
var ErrEmpty = errors.New("maptransformer: no map information loaded")

// ErrNotEmpty is returned by Load when the transformer already holds map
// information. Call Reset first to load a different map pair.
var ErrNotEmpty = errors.New("maptransformer: map information already loaded")

// MapInfo describes one of the two maps.
type MapInfo struct {
	Name      string
	ImageFile string // optional path to the map image
	Size      Point
}

// MapTransform is the whole-map transform from reference coordinates to robot
// coordinates: scale, then rotation (radians, around the reference origin),
// then translation.
type MapTransform struct {
	Scale       Point
	Rotation    float64
	Translation Point
}

// Transformer transforms points between a reference map and a robot map.
// A zero-valued Transformer is empty; load map information with Load.
// Transformer is not safe for concurrent mutation, but all methods other than
// Load and Reset are read-only and may be called concurrently after loading.
type Transformer struct {
	refMap    MapInfo
	robotMap  MapInfo
	transform MapTransform

	refPoints   []Point
	robotPoints []Point

	triangles []Triangle
	toRef     []affine
	toRobot   []affine
}

// New returns an empty Transformer.
func New() *Transformer {
	t := &Transformer{}
	t.Reset()
	return t
}

// Reset clears any loaded map information, returning the transformer to the
// empty state.
func (t *Transformer) Reset() {
	*t = Transformer{transform: MapTransform{Scale: Point{X: 1, Y: 1}}}
}

// Empty reports whether the transformer holds no map information.
func (t *Transformer) Empty() bool {
	return t.refMap == (MapInfo{}) &&
		t.robotMap == (MapInfo{}) &&
		t.transform == (MapTransform{Scale: Point{X: 1, Y: 1}}) &&
		len(t.refPoints) == 0 &&
		len(t.robotPoints) == 0 &&
		len(t.triangles) == 0
}

// RefMap returns the reference map description. The zero value is returned
// while the transformer is empty.
func (t *Transformer) RefMap() MapInfo { return t.refMap }

// RobotMap returns the robot map description. The zero value is returned
// while the transformer is empty.
func (t *Transformer) RobotMap() MapInfo { return t.robotMap }

// MapTransform returns the whole-map transform relating the two maps.
func (t *Transformer) MapTransform() MapTransform { return t.transform }

// RefCorrespondencePoints returns the correspondence points in the reference
// map. Entry i is matched to entry i of RobotCorrespondencePoints. The
// returned slice must not be modified.
func (t *Transformer) RefCorrespondencePoints() []Point { return t.refPoints }

// RobotCorrespondencePoints returns the correspondence points in the robot
// map. Entry i is matched to entry i of RefCorrespondencePoints. The returned
// slice must not be modified.
func (t *Transformer) RobotCorrespondencePoints() []Point { return t.robotPoints }

// Triangles returns the triangles calculated by the Delaunay triangulation,
// as indices into the correspondence point lists. Provided for visualisation
// and debugging. The returned slice must not be modified.
func (t *Transformer) Triangles() []Triangle { return t.triangles }

// BoundingBox returns the box (top-left, bottom-right) enclosing both maps,
// with one corner at the origin when the robot map is not offset into
// negative coordinates.
func (t *Transformer) BoundingBox() (Point, Point) {
	topLeft := Point{
		X: math.Min(0, t.transform.Translation.X),
		Y: math.Min(0, t.transform.Translation.Y),
	}
	bottomRight := Point{
		X: math.Max(t.refMap.Size.X, t.robotMap.Size.X+t.transform.Translation.X),
		Y: math.Max(t.refMap.Size.Y, t.robotMap.Size.Y+t.transform.Translation.Y),
	}
	return topLeft, bottomRight
}

// ToRef transforms a point in the robot map to its equivalent point in the
// reference map.
//
// Points that lie outside the triangulated region are transformed only by the
// whole-map transform, which may or may not be accurate depending on the
// maps.
func (t *Transformer) ToRef(p Point) (Point, error) {
	if t.Empty() {
		return Point{}, ErrEmpty
	}

	// Correspondence points shortcircuit the triangle search.
	if i := pointIndex(p, t.robotPoints); i >= 0 {
		return t.refPoints[i], nil
	}

	if i := containingTriangle(p, t.triangles, t.robotPoints); i >= 0 {
		return t.toRef[i].apply(p), nil
	}
	return t.mapTransformToRef(p), nil
}

// ToRobot transforms a point in the reference map to its equivalent point in
// the robot map.
//
// Points that lie outside the triangulated region are transformed only by the
// whole-map transform, which may or may not be accurate depending on the
// maps.
func (t *Transformer) ToRobot(p Point) (Point, error) {
	if t.Empty() {
		return Point{}, ErrEmpty
	}

	if i := pointIndex(p, t.refPoints); i >= 0 {
		return t.robotPoints[i], nil
	}

	if i := containingTriangle(p, t.triangles, t.refPoints); i >= 0 {
		return t.toRobot[i].apply(p), nil
	}
	return t.mapTransformToRobot(p), nil
}

// mapTransformToRef applies the whole-map transform: scale, rotate,
// translate.
func (t *Transformer) mapTransformToRef(p Point) Point {
	out := Point{X: p.X * t.transform.Scale.X, Y: p.Y * t.transform.Scale.Y}
	if t.transform.Rotation != 0 {
		sin, cos := math.Sincos(t.transform.Rotation)
		out = Point{X: cos*out.X - sin*out.Y, Y: sin*out.X + cos*out.Y}
	}
	return out.Add(t.transform.Translation)
}

// mapTransformToRobot applies the inverse whole-map transform: unscale,
// unrotate, untranslate.
func (t *Transformer) mapTransformToRobot(p Point) Point {
	out := Point{X: p.X / t.transform.Scale.X, Y: p.Y / t.transform.Scale.Y}
	if t.transform.Rotation != 0 {
		sin, cos := math.Sincos(-t.transform.Rotation)
		out = Point{X: cos*out.X - sin*out.Y, Y: sin*out.X + cos*out.Y}
	}
	return out.Sub(t.transform.Translation)
}

// precalculate builds the triangulation and the per-triangle affine
// transforms in both directions.
func (t *Transformer) precalculate() error {
	midpoints := t.correspondenceMidpoints()
	t.triangles = delaunay(midpoints)

	t.toRef = make([]affine, len(t.triangles))
	t.toRobot = make([]affine, len(t.triangles))
	for i, tri := range t.triangles {
		ref := [3]Point{t.refPoints[tri[0]], t.refPoints[tri[1]], t.refPoints[tri[2]]}
		robot := [3]Point{t.robotPoints[tri[0]], t.robotPoints[tri[1]], t.robotPoints[tri[2]]}

		var err error
		if t.toRef[i], err = affineFromTriangles(robot, ref); err != nil {
			return err
		}
		if t.toRobot[i], err = affineFromTriangles(ref, robot); err != nil {
			return err
		}
	}
	return nil
}

// correspondenceMidpoints returns the midpoint of each correspondence pair.
// The triangulation is performed over these midpoints so that it is valid in
// both maps.
func (t *Transformer) correspondenceMidpoints() []Point {
	midpoints := make([]Point, len(t.refPoints))
	for i := range t.refPoints {
		midpoints[i] = Point{
			X: t.refPoints[i].X + (t.robotPoints[i].X-t.refPoints[i].X)/2,
			Y: t.refPoints[i].Y + (t.robotPoints[i].Y-t.refPoints[i].Y)/2,
		}
	}
	return midpoints
}

// pointIndex returns the index of p in points, or -1.
func pointIndex(p Point, points []Point) int {
	for i, q := range points {
		if p == q {
			return i
		}
	}
	return -1
}

// containingTriangle returns the index of the first triangle containing p
// (boundary included), or -1.
func containingTriangle(p Point, triangles []Triangle, points []Point) int {
	for i, tri := range triangles {
		if pointInTriangle(p, points[tri[0]], points[tri[1]], points[tri[2]]) {
			return i
		}
	}
	return -1
}
