//go:build gocv

package detection

import (
	"fmt"
	"image"
	"sort"

	"gocv.io/x/gocv"

	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/imaging"
	"github.com/ironsheep/docscan/internal/scanerr"
)

// OpenCVDetector runs boundary detection through OpenCV. It is built only
// with the gocv tag and requires the OpenCV shared libraries.
//
// The steps match ContourDetector except that contours are traced by
// FindContours and simplified by ApproxPolyDP directly, without a hull.
type OpenCVDetector struct {
	opts Options
}

// NewOpenCVDetector creates an OpenCV-backed detector. A zero Options means
// the defaults.
func NewOpenCVDetector(opts Options) *OpenCVDetector {
	if opts == (Options{}) {
		opts = DefaultOptions()
	}
	return &OpenCVDetector{opts: opts}
}

// Detect implements Detector.
func (d *OpenCVDetector) Detect(img image.Image) ([]geometry.Point, error) {
	if err := imaging.CheckImage(img); err != nil {
		return nil, err
	}
	if err := d.opts.Validate(); err != nil {
		return nil, err
	}

	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorRGBToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Pt(5, 5), d.opts.BlurSigma, d.opts.BlurSigma, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, float32(d.opts.CannyLow), float32(d.opts.CannyHigh))

	contours := gocv.FindContours(edges, gocv.RetrievalList, gocv.ChainApproxSimple)
	defer contours.Close()

	type scored struct {
		idx  int
		area float64
	}
	ranked := make([]scored, contours.Size())
	for i := range ranked {
		ranked[i] = scored{idx: i, area: gocv.ContourArea(contours.At(i))}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].area > ranked[j].area
	})
	if len(ranked) > d.opts.Candidates {
		ranked = ranked[:d.opts.Candidates]
	}

	origin := img.Bounds().Min
	for _, r := range ranked {
		c := contours.At(r.idx)
		perimeter := gocv.ArcLength(c, true)
		approx := gocv.ApproxPolyDP(c, d.opts.Epsilon*perimeter, true)
		pts := approx.ToPoints()
		approx.Close()
		if len(pts) != 4 {
			continue
		}
		corners := make([]geometry.Point, 4)
		for i, p := range pts {
			corners[i] = geometry.Pt(float64(p.X+origin.X), float64(p.Y+origin.Y))
		}
		return corners, nil
	}
	return nil, scanerr.NoDocument("detect", "none of %d contours approximates to four corners", len(ranked))
}
