package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ironsheep/docscan/internal/scanerr"
)

// Homography is a 3x3 projective transform in row-major order:
//
//	| h0 h1 h2 |
//	| h3 h4 h5 |
//	| h6 h7 h8 |
//
// A point (x, y) maps to ((h0x+h1y+h2)/w, (h3x+h4y+h5)/w) with
// w = h6x+h7y+h8.
type Homography [9]float64

// NewHomography solves for the transform mapping src[i] onto dst[i].
//
// With h8 fixed at 1 the eight remaining entries satisfy two linear equations
// per correspondence:
//
//	h0X + h1Y + h2 - h6Xx - h7Yx = x
//	h3X + h4Y + h5 - h6Xy - h7Yy = y
//
// # Errors
//
//   - ErrDegenerateGeometry if the system is singular, which happens when
//     three source or three destination points are collinear
func NewHomography(src, dst [4]Point) (Homography, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		X, Y := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y
		r := 2 * i
		a.SetRow(r, []float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x})
		a.SetRow(r+1, []float64{0, 0, 0, X, Y, 1, -X * y, -Y * y})
		b.SetVec(r, x)
		b.SetVec(r+1, y)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return Homography{}, scanerr.Wrap("homography", scanerr.ErrDegenerateGeometry,
			"point correspondences do not determine a transform", err)
	}

	var out Homography
	for i := 0; i < 8; i++ {
		out[i] = h.AtVec(i)
	}
	out[8] = 1
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Homography{}, scanerr.Degenerate("homography", "solution is not finite")
		}
	}
	return out, nil
}

// Apply maps p through the transform. Points on the transform's line at
// infinity come back with infinite coordinates.
func (h Homography) Apply(p Point) Point {
	w := h[6]*p.X + h[7]*p.Y + h[8]
	if w == 0 {
		return Point{X: math.Inf(1), Y: math.Inf(1)}
	}
	return Point{
		X: (h[0]*p.X + h[1]*p.Y + h[2]) / w,
		Y: (h[3]*p.X + h[4]*p.Y + h[5]) / w,
	}
}

// Inverse returns the transform mapping destination points back to source
// points, normalised so the last entry is 1 when possible.
func (h Homography) Inverse() (Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(mat.NewDense(3, 3, h[:])); err != nil {
		return Homography{}, scanerr.Wrap("homography", scanerr.ErrDegenerateGeometry,
			"transform is not invertible", err)
	}

	var out Homography
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*3+c] = inv.At(r, c)
		}
	}
	if out[8] != 0 {
		s := 1 / out[8]
		for i := range out {
			out[i] *= s
		}
	}
	return out, nil
}

// Matrix returns the transform as rows, convenient for JSON output.
func (h Homography) Matrix() [3][3]float64 {
	return [3][3]float64{
		{h[0], h[1], h[2]},
		{h[3], h[4], h[5]},
		{h[6], h[7], h[8]},
	}
}

// RectifyTransform validates q, computes its output size and returns the
// transform from q onto the axis-aligned output rectangle.
func RectifyTransform(q Quad) (Homography, int, int, error) {
	if err := q.Validate(); err != nil {
		return Homography{}, 0, 0, err
	}
	width, height, err := OutputSize(q)
	if err != nil {
		return Homography{}, 0, 0, err
	}
	// A one-pixel side collapses the target rectangle onto a line.
	if width < 2 || height < 2 {
		return Homography{}, 0, 0, scanerr.Degenerate("rectify", "output size %dx%d collapses the target rectangle", width, height)
	}
	h, err := NewHomography(q.Corners(), TargetCorners(width, height))
	if err != nil {
		return Homography{}, 0, 0, err
	}
	return h, width, height, nil
}
