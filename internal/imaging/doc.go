// Package imaging provides the pixel-level operations of the document scanner.
//
// This package implements loading, the detection working copy, grayscale and
// Canny edge extraction, perspective rectification, local adaptive
// thresholding and debug overlays. All operations work with standard Go
// image.Image types and use a coordinate system where (0,0) is at the
// top-left corner, X increases rightward, and Y increases downward.
//
// # Coordinate System
//
// Quad corners passed to Rectify are absolute pixel positions in the source
// image, so they include Bounds().Min for sub-images. Every image this
// package produces has its origin at (0,0).
//
// # Rectification
//
// Rectify maps an ordered quadrilateral onto a width x height rectangle whose
// size follows the longest opposite edges. Each destination pixel is mapped
// back through the inverse homography and sampled bilinearly; source
// neighbours outside the image contribute RectifyOptions.Fill (opaque black
// by default). Grayscale sources stay grayscale.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Individual image operations
// are stateless and can be called concurrently on different images.
//
// # Error Handling
//
// Functions return scanerr kinds for invalid inputs:
//   - ErrInvalidInput for nil or empty images and malformed options
//   - ErrDegenerateGeometry for quadrilaterals that cannot be rectified
//
// File I/O and encoding failures are wrapped with fmt.Errorf.
//
// # Performance Considerations
//
// Phone photos are large. Detection runs on WorkingCopy, which downscales to
// a fixed height; only rectification touches the full-resolution image.
package imaging
