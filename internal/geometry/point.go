package geometry

import (
	"fmt"
	"math"
)

// Point is a 2D coordinate in image-pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Mul returns p scaled by k.
func (p Point) Mul(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k}
}

// String formats the point as "(x,y)".
func (p Point) String() string {
	return fmt.Sprintf("(%g,%g)", p.X, p.Y)
}

// finite reports whether both coordinates are real numbers.
func (p Point) finite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Cross returns the z component of (b-a) x (c-a). It is zero when the three
// points are collinear and positive when a->b->c turns clockwise on screen.
func Cross(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// Scale multiplies every point by k and returns a new slice.
//
// Detection runs on a downscaled working copy; its corners are scaled by
// originalHeight/workingHeight before rectifying the full-resolution image.
func Scale(points []Point, k float64) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = p.Mul(k)
	}
	return out
}

// PolygonArea returns the unsigned shoelace area of a closed polygon.
func PolygonArea(poly []Point) float64 {
	if len(poly) < 3 {
		return 0
	}
	var sum float64
	for i := range poly {
		j := (i + 1) % len(poly)
		sum += poly[i].X*poly[j].Y - poly[j].X*poly[i].Y
	}
	return math.Abs(sum) / 2
}

// ArcLength returns the length of a polyline, including the closing segment
// when closed is true.
func ArcLength(poly []Point, closed bool) float64 {
	if len(poly) < 2 {
		return 0
	}
	var length float64
	for i := 0; i < len(poly)-1; i++ {
		length += Distance(poly[i], poly[i+1])
	}
	if closed {
		length += Distance(poly[len(poly)-1], poly[0])
	}
	return length
}
