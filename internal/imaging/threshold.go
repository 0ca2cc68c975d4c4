package imaging

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/convolution"

	"github.com/ironsheep/docscan/internal/scanerr"
)

// ThresholdMethod selects the local statistic compared against each pixel.
type ThresholdMethod string

const (
	// ThresholdGaussian weights the neighbourhood with a Gaussian of
	// sigma (BlockSize-1)/6.
	ThresholdGaussian ThresholdMethod = "gaussian"

	// ThresholdMean uses the plain neighbourhood average.
	ThresholdMean ThresholdMethod = "mean"
)

// Defaults that give a clean "scanned paper" look on phone photos.
const (
	DefaultBlockSize = 11
	DefaultOffset    = 10
)

// ThresholdOptions configures ThresholdLocal.
type ThresholdOptions struct {
	// BlockSize is the odd side length of the neighbourhood, at least 3.
	BlockSize int

	// Offset is subtracted from the local statistic before comparison.
	Offset float64

	// Method is ThresholdGaussian or ThresholdMean. Empty means gaussian.
	Method ThresholdMethod
}

// DefaultThresholdOptions returns block size 11, offset 10, gaussian.
func DefaultThresholdOptions() ThresholdOptions {
	return ThresholdOptions{BlockSize: DefaultBlockSize, Offset: DefaultOffset, Method: ThresholdGaussian}
}

// Validate reports malformed options as ErrInvalidInput.
func (o ThresholdOptions) Validate() error {
	if o.BlockSize < 3 || o.BlockSize%2 == 0 {
		return scanerr.Invalid("threshold", "block size must be odd and at least 3, got %d", o.BlockSize)
	}
	switch o.Method {
	case "", ThresholdGaussian, ThresholdMean:
	default:
		return scanerr.Invalid("threshold", "unknown method %q", o.Method)
	}
	if math.IsNaN(o.Offset) || math.IsInf(o.Offset, 0) {
		return scanerr.Invalid("threshold", "offset must be finite")
	}
	return nil
}

// ParseThresholdMethod accepts "gaussian" or "mean".
func ParseThresholdMethod(s string) (ThresholdMethod, error) {
	switch m := ThresholdMethod(s); m {
	case ThresholdGaussian, ThresholdMean:
		return m, nil
	}
	return "", scanerr.Invalid("threshold", "unknown method %q", s)
}

// ThresholdLocal binarizes img against a per-pixel neighbourhood statistic.
// A pixel becomes white (255) when its luminance is greater than the local
// statistic minus Offset, black otherwise. Borders are mirrored about the
// edge (d c b a | a b c d | d c b a).
//
// BlockSize may not exceed MaxBlockSize for the image.
//
// The result has its origin at (0, 0) and the size of img.
func ThresholdLocal(img image.Image, opts ThresholdOptions) (*image.Gray, error) {
	if err := CheckImage(img); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	gray := ToGray(img)
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if limit := MaxBlockSize(w, h); opts.BlockSize > limit {
		return nil, scanerr.Invalid("threshold", "block size %d exceeds %d for a %dx%d image", opts.BlockSize, limit, w, h)
	}
	r := opts.BlockSize / 2

	padded := padReflect(gray, r)
	var stat *image.RGBA
	if opts.Method == ThresholdMean {
		stat = blur.Box(padded, float64(r))
	} else {
		sigma := float64(opts.BlockSize-1) / 6
		cfg := &convolution.Options{Bias: 0, Wrap: false, KeepAlpha: true}
		stat = convolution.Convolve(padded, gaussianKernel(opts.BlockSize, sigma, true), cfg)
		stat = convolution.Convolve(stat, gaussianKernel(opts.BlockSize, sigma, false), cfg)
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := gray.Pix[gray.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
		so := stat.PixOffset(r, y+r)
		for x := 0; x < w; x++ {
			local := float64(stat.Pix[so+4*x])
			if float64(src[x]) > local-opts.Offset {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out, nil
}

// gaussianKernel returns a normalised 1-D kernel laid out horizontally or
// vertically.
func gaussianKernel(size int, sigma float64, horizontal bool) *convolution.Kernel {
	var k *convolution.Kernel
	if horizontal {
		k = convolution.NewKernel(size, 1)
	} else {
		k = convolution.NewKernel(1, size)
	}
	c := size / 2
	var sum float64
	for i := 0; i < size; i++ {
		d := float64(i - c)
		v := math.Exp(-d * d / (2 * sigma * sigma))
		k.Matrix[i] = v
		sum += v
	}
	for i := range k.Matrix {
		k.Matrix[i] /= sum
	}
	return k
}

// MaxBlockSize is the largest neighbourhood ThresholdLocal accepts for a
// width x height image: one that spans the longer side from any pixel, but
// never less than DefaultBlockSize.
func MaxBlockSize(width, height int) int {
	limit := 2*max(width, height) + 1
	if limit < DefaultBlockSize {
		return DefaultBlockSize
	}
	return limit
}

// padReflect returns gray grown by r pixels on each side, the new border
// mirroring the image about its edge.
func padReflect(gray *image.Gray, r int) *image.Gray {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w+2*r, h+2*r))
	for y := 0; y < h+2*r; y++ {
		sy := reflectIndex(y-r, h) + b.Min.Y
		for x := 0; x < w+2*r; x++ {
			sx := reflectIndex(x-r, w) + b.Min.X
			out.Pix[y*out.Stride+x] = gray.Pix[gray.PixOffset(sx, sy)]
		}
	}
	return out
}

// reflectIndex folds i into [0, n) by mirroring, repeating with period 2n
// when i lies more than n outside.
func reflectIndex(i, n int) int {
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}
