package geometry

import (
	"math"

	"github.com/ironsheep/docscan/internal/scanerr"
)

// collinearEpsilon bounds |sin| of the angle at a corner below which three
// corners are treated as collinear.
const collinearEpsilon = 1e-9

// Quad is a quadrilateral with its corners in canonical order.
type Quad struct {
	TopLeft     Point `json:"top_left"`
	TopRight    Point `json:"top_right"`
	BottomRight Point `json:"bottom_right"`
	BottomLeft  Point `json:"bottom_left"`
}

// Corners returns the corners clockwise from the top-left.
func (q Quad) Corners() [4]Point {
	return [4]Point{q.TopLeft, q.TopRight, q.BottomRight, q.BottomLeft}
}

// Scale returns the quad with every corner multiplied by k.
func (q Quad) Scale(k float64) Quad {
	return Quad{
		TopLeft:     q.TopLeft.Mul(k),
		TopRight:    q.TopRight.Mul(k),
		BottomRight: q.BottomRight.Mul(k),
		BottomLeft:  q.BottomLeft.Mul(k),
	}
}

// Order assigns four points to canonical corner positions.
//
// For each point it computes sum = x + y and diff = y - x, then picks:
//   - top-left: minimum sum
//   - bottom-right: maximum sum
//   - top-right: minimum diff
//   - bottom-left: maximum diff
//
// Ties go to the first point in input order. Near-degenerate inputs can
// therefore map one point to two positions; Rectify rejects such quads.
//
// # Errors
//
//   - ErrInvalidInput if len(points) != 4 or a coordinate is NaN or infinite
func Order(points []Point) (Quad, error) {
	if len(points) != 4 {
		return Quad{}, scanerr.Invalid("order", "need exactly 4 points, got %d", len(points))
	}
	for i, p := range points {
		if !p.finite() {
			return Quad{}, scanerr.Invalid("order", "point %d %v is not finite", i, p)
		}
	}

	var sums, diffs [4]float64
	for i, p := range points {
		sums[i] = p.X + p.Y
		diffs[i] = p.Y - p.X
	}

	return Quad{
		TopLeft:     points[argmin(sums)],
		TopRight:    points[argmin(diffs)],
		BottomRight: points[argmax(sums)],
		BottomLeft:  points[argmax(diffs)],
	}, nil
}

func argmin(v [4]float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] < v[best] {
			best = i
		}
	}
	return best
}

func argmax(v [4]float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// Validate rejects quads that cannot define a projective transform: any
// three corners collinear, which includes coincident corners.
func (q Quad) Validate() error {
	c := q.Corners()
	for i := range c {
		if !c[i].finite() {
			return scanerr.Invalid("rectify", "corner %v is not finite", c[i])
		}
	}
	// Each triple omits one corner.
	for skip := 0; skip < 4; skip++ {
		var tri [3]Point
		n := 0
		for i := 0; i < 4; i++ {
			if i != skip {
				tri[n] = c[i]
				n++
			}
		}
		u := tri[1].Sub(tri[0])
		v := tri[2].Sub(tri[0])
		scale := math.Hypot(u.X, u.Y) * math.Hypot(v.X, v.Y)
		if scale == 0 || math.Abs(Cross(tri[0], tri[1], tri[2])) <= collinearEpsilon*scale {
			return scanerr.Degenerate("rectify", "corners %v %v %v are collinear", tri[0], tri[1], tri[2])
		}
	}
	return nil
}

// Dimensions holds the four edge lengths of an ordered quad.
type Dimensions struct {
	TopWidth    float64 `json:"top_width"`
	BottomWidth float64 `json:"bottom_width"`
	LeftHeight  float64 `json:"left_height"`
	RightHeight float64 `json:"right_height"`
}

// EdgeLengths measures the four sides of q.
func EdgeLengths(q Quad) Dimensions {
	return Dimensions{
		TopWidth:    Distance(q.TopLeft, q.TopRight),
		BottomWidth: Distance(q.BottomLeft, q.BottomRight),
		LeftHeight:  Distance(q.TopLeft, q.BottomLeft),
		RightHeight: Distance(q.TopRight, q.BottomRight),
	}
}

// maxSide keeps truncated dimensions representable on every platform.
const maxSide = math.MaxInt32

// OutputSize returns the pixel size of the rectified image for q.
//
// Width is the longer of the top and bottom edges and height the longer of
// the left and right edges, each truncated toward zero.
//
// # Errors
//
//   - ErrInvalidInput if either dimension exceeds math.MaxInt32
//   - ErrDegenerateGeometry if either dimension truncates below 1
func OutputSize(q Quad) (width, height int, err error) {
	d := EdgeLengths(q)
	w := math.Max(d.TopWidth, d.BottomWidth)
	h := math.Max(d.LeftHeight, d.RightHeight)
	if w > maxSide || h > maxSide {
		return 0, 0, scanerr.Invalid("rectify", "output size %.0fx%.0f is too large", w, h)
	}
	width, height = int(w), int(h)
	if width < 1 || height < 1 {
		return 0, 0, scanerr.Degenerate("rectify", "output size %dx%d is empty", width, height)
	}
	return width, height, nil
}

// TargetCorners returns the destination rectangle for an output of the given
// size: (0,0), (w-1,0), (w-1,h-1), (0,h-1).
func TargetCorners(width, height int) [4]Point {
	w := float64(width - 1)
	h := float64(height - 1)
	return [4]Point{{0, 0}, {w, 0}, {w, h}, {0, h}}
}
