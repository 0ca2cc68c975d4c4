// Package scanner runs the full photo-to-scan pipeline: downscale, detect the
// document boundary, map the corners back to full resolution, order them,
// rectify, binarize and optionally OCR.
package scanner

import (
	"errors"
	"image"
	"image/color"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/docscan/internal/detection"
	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/imaging"
	"github.com/ironsheep/docscan/internal/logger"
	"github.com/ironsheep/docscan/internal/ocr"
	"github.com/ironsheep/docscan/internal/scanerr"
)

// Options controls a scan.
type Options struct {
	// WorkingHeight is the height of the copy detection runs on.
	WorkingHeight int

	// Threshold enables adaptive binarization of the rectified image.
	Threshold        bool
	ThresholdOptions imaging.ThresholdOptions

	// Fill colours samples that fall outside the photo. Nil means black.
	Fill color.Color

	// MaxOutputPixels caps the rectified image size. Zero means
	// imaging.DefaultMaxOutputPixels.
	MaxOutputPixels int

	// OCR runs text recognition on the final image. It needs a Recognizer.
	OCR         bool
	OCRLanguage string
}

// DefaultOptions returns a 500px working height and gaussian binarization.
func DefaultOptions() Options {
	return Options{
		WorkingHeight:    imaging.DefaultWorkingHeight,
		Threshold:        true,
		ThresholdOptions: imaging.DefaultThresholdOptions(),
		MaxOutputPixels:  imaging.DefaultMaxOutputPixels,
		OCRLanguage:      ocr.DefaultLanguage,
	}
}

// Result holds the output of every pipeline stage.
type Result struct {
	// Working is the downscaled copy detection ran on and Ratio maps its
	// coordinates back to the source.
	Working image.Image
	Ratio   float64

	// Edges is the detector's edge map when the detector exposes one.
	Edges *image.Gray

	// WorkingCorners are the detected corners on Working, unordered.
	WorkingCorners []geometry.Point

	// Corners are the detected corners at full resolution, unordered, and
	// Quad is their canonical ordering.
	Corners []geometry.Point
	Quad    geometry.Quad

	// Warped is the rectified colour image, Scan the final output (the
	// binarized image, or Warped when thresholding is off).
	Warped image.Image
	Scan   image.Image

	OCR *ocr.Result
}

// Width and Height report the size of the final scan.
func (r *Result) Width() int  { return r.Scan.Bounds().Dx() }
func (r *Result) Height() int { return r.Scan.Bounds().Dy() }

// analyzer is implemented by detectors that can report their edge map.
type analyzer interface {
	Analyze(img image.Image) (*detection.Analysis, error)
}

// Scanner runs the pipeline with a fixed detector and options. A Scanner holds
// no per-image state and is safe for concurrent use if its detector and
// recognizer are.
type Scanner struct {
	detector   detection.Detector
	recognizer ocr.Recognizer
	opts       Options
}

// New creates a scanner. A nil detector selects the pure Go contour detector
// with default options.
func New(detector detection.Detector, opts Options) *Scanner {
	if detector == nil {
		detector = detection.NewContourDetector(detection.DefaultOptions())
	}
	if opts.WorkingHeight == 0 {
		opts.WorkingHeight = imaging.DefaultWorkingHeight
	}
	if opts.ThresholdOptions == (imaging.ThresholdOptions{}) {
		opts.ThresholdOptions = imaging.DefaultThresholdOptions()
	}
	if opts.MaxOutputPixels == 0 {
		opts.MaxOutputPixels = imaging.DefaultMaxOutputPixels
	}
	if opts.OCRLanguage == "" {
		opts.OCRLanguage = ocr.DefaultLanguage
	}
	return &Scanner{detector: detector, opts: opts}
}

// WithRecognizer attaches a text recognizer used when Options.OCR is set.
func (s *Scanner) WithRecognizer(r ocr.Recognizer) *Scanner {
	s.recognizer = r
	return s
}

// Options returns the scanner's effective options.
func (s *Scanner) Options() Options {
	return s.opts
}

// Scan processes one photo.
//
// When no document is found the returned Result still carries the working
// copy and edge map, alongside an error wrapping scanerr.ErrNoDocumentFound.
// Any other error returns a nil Result.
func (s *Scanner) Scan(img image.Image) (*Result, error) {
	if s.opts.Threshold {
		if err := s.opts.ThresholdOptions.Validate(); err != nil {
			return nil, err
		}
	}
	if s.opts.OCR && s.recognizer == nil {
		return nil, scanerr.Invalid("scan", "ocr requested but no recognizer configured")
	}

	res, err := s.Locate(img)
	if err != nil {
		return res, err
	}

	res.Warped, err = imaging.Rectify(img, res.Quad, imaging.RectifyOptions{Fill: s.opts.Fill, MaxPixels: s.opts.MaxOutputPixels})
	if err != nil {
		return nil, err
	}
	logger.WithField("size", res.Warped.Bounds().Size().String()).Debug("rectified")

	res.Scan = res.Warped
	if s.opts.Threshold {
		bin, err := imaging.ThresholdLocal(res.Warped, s.opts.ThresholdOptions)
		if err != nil {
			return nil, err
		}
		res.Scan = bin
	}

	if s.opts.OCR {
		res.OCR, err = s.recognizer.Recognize(res.Scan, s.opts.OCRLanguage)
		if err != nil {
			return nil, err
		}
		logger.WithFields(logrus.Fields{
			"words":      len(res.OCR.Words),
			"confidence": res.OCR.MeanConfidence(),
		}).Debug("ocr complete")
	}
	return res, nil
}

// Locate runs the detection half of the pipeline: it finds the document on a
// working copy, maps the corners onto img and orders them. Warped and Scan
// are left empty. Errors follow Scan.
func (s *Scanner) Locate(img image.Image) (*Result, error) {
	if err := imaging.CheckImage(img); err != nil {
		return nil, err
	}
	if s.opts.WorkingHeight < 1 {
		return nil, scanerr.Invalid("scan", "working height must be positive, got %d", s.opts.WorkingHeight)
	}

	res := &Result{}
	res.Working, res.Ratio = imaging.WorkingCopy(img, s.opts.WorkingHeight)
	wb := res.Working.Bounds()
	logger.WithFields(logrus.Fields{
		"source":  img.Bounds().Size().String(),
		"working": wb.Size().String(),
		"ratio":   res.Ratio,
	}).Debug("working copy ready")

	corners, err := s.detect(res)
	if err != nil {
		if errors.Is(err, scanerr.ErrNoDocumentFound) {
			return res, err
		}
		return nil, err
	}
	res.WorkingCorners = corners
	res.Corners = toSource(corners, wb.Min, img.Bounds().Min, res.Ratio)

	res.Quad, err = geometry.Order(res.Corners)
	if err != nil {
		return nil, err
	}
	logger.WithField("quad", res.Quad).Debug("corners ordered")
	return res, nil
}

// ScanFile loads path through cache and scans it.
func (s *Scanner) ScanFile(cache *imaging.ImageCache, path string) (*Result, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	return s.Scan(img)
}

func (s *Scanner) detect(res *Result) ([]geometry.Point, error) {
	if a, ok := s.detector.(analyzer); ok {
		analysis, err := a.Analyze(res.Working)
		if analysis != nil {
			res.Edges = analysis.Edges
		}
		if err != nil {
			return nil, err
		}
		return analysis.Corners, nil
	}
	return s.detector.Detect(res.Working)
}

// toSource maps working-copy corners onto the source image. A resized working
// copy has its origin at (0, 0) while the source may not.
func toSource(corners []geometry.Point, working, source image.Point, ratio float64) []geometry.Point {
	out := make([]geometry.Point, len(corners))
	for i, c := range corners {
		p := c.Sub(geometry.Pt(float64(working.X), float64(working.Y))).Mul(ratio)
		out[i] = p.Add(geometry.Pt(float64(source.X), float64(source.Y)))
	}
	return out
}
