// Package geometry holds the plane geometry behind document rectification:
// points, corner ordering, output-size inference and 4-point homographies.
//
// # Coordinate System
//
// Coordinates are image pixels as float64:
//   - Origin (0, 0) at the top-left corner
//   - X increases rightward
//   - Y increases downward
//
// # Corner Ordering
//
// Order assigns four unordered points to top-left, top-right, bottom-right and
// bottom-left using coordinate sums and differences. It assumes the
// quadrilateral is not rotated far from axis alignment and does not check
// convexity.
//
// # Homographies
//
// A Homography is a 3x3 projective matrix stored row-major. NewHomography
// solves the 8-unknown linear system defined by four point correspondences
// with gonum's dense solver.
//
// All functions in this package are pure and safe for concurrent use.
package geometry
