package detection

import (
	"image"
	"math"
	"sort"

	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/imaging"
	"github.com/ironsheep/docscan/internal/scanerr"
)

// Detector finds the four corners of a document in an image.
//
// Implementations return exactly four points in image coordinates, in no
// particular order, or an error wrapping scanerr.ErrNoDocumentFound.
type Detector interface {
	Detect(img image.Image) ([]geometry.Point, error)
}

// Options tunes boundary detection.
type Options struct {
	// BlurSigma is the Gaussian sigma applied before edge detection.
	BlurSigma float64 `json:"blur_sigma"`

	// CannyLow and CannyHigh are the hysteresis thresholds.
	CannyLow  float64 `json:"canny_low"`
	CannyHigh float64 `json:"canny_high"`

	// Candidates is how many of the largest contours are tried.
	Candidates int `json:"candidates"`

	// Epsilon is the polygon approximation tolerance as a fraction of the
	// contour perimeter.
	Epsilon float64 `json:"epsilon"`
}

// DefaultOptions returns the tuning used for phone photos of paper:
// sigma 1.1, thresholds 75/200, five candidates, epsilon 0.02.
func DefaultOptions() Options {
	return Options{
		BlurSigma:  imaging.DefaultBlurSigma,
		CannyLow:   75,
		CannyHigh:  200,
		Candidates: 5,
		Epsilon:    0.02,
	}
}

// Validate reports out-of-range options as ErrInvalidInput.
func (o Options) Validate() error {
	switch {
	case o.BlurSigma < 0 || math.IsNaN(o.BlurSigma):
		return scanerr.Invalid("detect", "blur sigma must be non-negative, got %v", o.BlurSigma)
	case o.CannyLow < 0 || o.CannyHigh < o.CannyLow:
		return scanerr.Invalid("detect", "canny thresholds must satisfy 0 <= low <= high, got %v/%v", o.CannyLow, o.CannyHigh)
	case o.Candidates < 1:
		return scanerr.Invalid("detect", "candidates must be at least 1, got %d", o.Candidates)
	case !(o.Epsilon > 0 && o.Epsilon < 1):
		return scanerr.Invalid("detect", "epsilon must be in (0, 1), got %v", o.Epsilon)
	}
	return nil
}

// Candidate is one contour considered during detection.
type Candidate struct {
	// Hull is the convex hull of the contour in image coordinates.
	Hull []geometry.Point `json:"hull"`

	// Area and Perimeter are measured on the hull.
	Area      float64 `json:"area"`
	Perimeter float64 `json:"perimeter"`

	// Approx is the simplified polygon; four vertices mark a document.
	Approx []geometry.Point `json:"approx"`
}

// Analysis records the intermediate results of a detection run.
type Analysis struct {
	// Edges is the Canny edge map, with its origin at (0, 0).
	Edges *image.Gray

	// Candidates are the largest contours in descending area order, as
	// far as they were examined.
	Candidates []Candidate

	// Corners holds the winning quadrilateral, or nil.
	Corners []geometry.Point
}

// ContourDetector is the pure Go boundary detector.
//
// # Algorithm
//
//  1. Grayscale and Gaussian blur
//  2. Canny edge detection
//  3. 8-connected edge components, each reduced to its convex hull
//  4. The Candidates largest hulls by area are approximated with
//     Ramer-Douglas-Peucker at Epsilon times their perimeter
//  5. The first approximation with exactly four vertices wins
//
// There is no retry with other parameters; an image without a clear
// four-sided outline yields ErrNoDocumentFound.
type ContourDetector struct {
	opts Options
}

// NewContourDetector creates a detector. A zero Options means the defaults;
// otherwise zero thresholds, candidates or epsilon take their default values.
func NewContourDetector(opts Options) *ContourDetector {
	def := DefaultOptions()
	if opts == (Options{}) {
		opts = def
	}
	if opts.CannyLow == 0 && opts.CannyHigh == 0 {
		opts.CannyLow, opts.CannyHigh = def.CannyLow, def.CannyHigh
	}
	if opts.Candidates == 0 {
		opts.Candidates = def.Candidates
	}
	if opts.Epsilon == 0 {
		opts.Epsilon = def.Epsilon
	}
	return &ContourDetector{opts: opts}
}

// Options returns the detector's effective options.
func (d *ContourDetector) Options() Options {
	return d.opts
}

// Detect implements Detector.
func (d *ContourDetector) Detect(img image.Image) ([]geometry.Point, error) {
	a, err := d.Analyze(img)
	if err != nil {
		return nil, err
	}
	return a.Corners, nil
}

// Analyze runs detection and returns the intermediate results. When no
// document is found the analysis is still returned alongside the error so
// callers can inspect the edge map.
func (d *ContourDetector) Analyze(img image.Image) (*Analysis, error) {
	if err := imaging.CheckImage(img); err != nil {
		return nil, err
	}
	if err := d.opts.Validate(); err != nil {
		return nil, err
	}

	origin := img.Bounds().Min
	edges := EdgeMap(img, d.opts)
	mask, width, height := edgeMask(edges, true)
	contours := findContours(mask, width, height)

	candidates := make([]Candidate, 0, len(contours))
	for _, c := range contours {
		pts := make([]geometry.Point, len(c))
		for i, p := range c {
			pts[i] = geometry.Pt(float64(p.X+origin.X), float64(p.Y+origin.Y))
		}
		hull := convexHull(pts)
		candidates = append(candidates, Candidate{
			Hull:      hull,
			Area:      geometry.PolygonArea(hull),
			Perimeter: geometry.ArcLength(hull, true),
		})
	}

	// Stable so equal areas keep scan order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Area > candidates[j].Area
	})
	if len(candidates) > d.opts.Candidates {
		candidates = candidates[:d.opts.Candidates]
	}

	a := &Analysis{Edges: edges}
	for i := range candidates {
		c := &candidates[i]
		c.Approx = approxClosed(c.Hull, d.opts.Epsilon*c.Perimeter)
		a.Candidates = candidates[:i+1]
		if len(c.Approx) == 4 {
			a.Corners = append([]geometry.Point(nil), c.Approx...)
			return a, nil
		}
	}
	return a, scanerr.NoDocument("detect", "none of %d contours approximates to four corners", len(candidates))
}

// EdgeMap returns the blurred Canny edge map the detector works on. The
// result has its origin at (0, 0).
func EdgeMap(img image.Image, opts Options) *image.Gray {
	return imaging.Canny(imaging.Smooth(img, opts.BlurSigma), opts.CannyLow, opts.CannyHigh)
}
