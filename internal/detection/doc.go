// Package detection locates the outline of a paper document in a photo.
//
// A Detector returns the four corners of the largest four-sided contour in
// the image, unordered, or an error wrapping scanerr.ErrNoDocumentFound.
// Callers order the corners with geometry.Order before rectifying.
//
// # Backends
//
//   - ContourDetector: pure Go. Canny edges, connected edge components,
//     convex hulls and Ramer-Douglas-Peucker simplification.
//   - OpenCVDetector: the same pipeline through gocv. Built only with
//     -tags gocv.
//
// # Coordinate System
//
// Returned corners are absolute pixel positions in the image passed to
// Detect, so sub-images report corners that include Bounds().Min.
//
// # Limitations
//
// Detection assumes the document is the largest strongly outlined region and
// that its edges contrast with the background. Documents on a background of
// similar brightness, or photos where a hand or another object breaks the
// outline, produce ErrNoDocumentFound. There is no internal retry.
package detection
