package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/scanerr"
)

// snapEpsilon pulls sample coordinates that are integers up to rounding noise
// onto the integer, so exact pixel hits do not blend in a neighbour.
const snapEpsilon = 1e-9

// DefaultMaxOutputPixels bounds the rectified image at 64 megapixels.
const DefaultMaxOutputPixels = 1 << 26

// RectifyOptions controls resampling.
type RectifyOptions struct {
	// Fill is used for source neighbours outside the image. Nil means
	// opaque black.
	Fill color.Color

	// MaxPixels caps width*height of the output. Zero means
	// DefaultMaxOutputPixels.
	MaxPixels int
}

func (o RectifyOptions) maxPixels() int {
	if o.MaxPixels > 0 {
		return o.MaxPixels
	}
	return DefaultMaxOutputPixels
}

// Rectify maps the quadrilateral q of img onto an axis-aligned rectangle,
// producing a top-down view of the region.
//
// The output width is the longer of the top and bottom edges and the output
// height the longer of the left and right edges, both truncated to whole
// pixels. The corners of q land exactly on the output corners.
//
// Coordinates in q are absolute pixel positions in img (they include
// img.Bounds().Min). A *image.Gray source produces a *image.Gray result; any
// other colour model produces *image.NRGBA.
//
// # Errors
//
//   - ErrInvalidInput if img is nil or empty, a corner is not finite, or the
//     output would exceed opts.MaxPixels
//   - ErrDegenerateGeometry if three corners are collinear, the output would
//     be smaller than 2x2, or the transform cannot be solved
func Rectify(img image.Image, q geometry.Quad, opts RectifyOptions) (image.Image, error) {
	if err := CheckImage(img); err != nil {
		return nil, err
	}
	h, width, height, err := geometry.RectifyTransform(q)
	if err != nil {
		return nil, err
	}
	return Warp(img, h, width, height, opts)
}

// Warp resamples img into a width x height image. Each destination pixel is
// mapped back through the inverse of h and sampled bilinearly.
func Warp(img image.Image, h geometry.Homography, width, height int, opts RectifyOptions) (image.Image, error) {
	if err := CheckImage(img); err != nil {
		return nil, err
	}
	if width < 1 || height < 1 {
		return nil, scanerr.Degenerate("warp", "output size %dx%d is empty", width, height)
	}
	// Each side is checked first so the product cannot overflow.
	if limit := opts.maxPixels(); width > limit || height > limit || int64(width)*int64(height) > int64(limit) {
		return nil, scanerr.Invalid("warp", "output size %dx%d exceeds %d pixels", width, height, limit)
	}
	inv, err := h.Inverse()
	if err != nil {
		return nil, err
	}

	fill := opts.Fill
	if fill == nil {
		fill = color.Black
	}

	bounds := img.Bounds()
	if g, ok := img.(*image.Gray); ok {
		f := color.GrayModel.Convert(fill).(color.Gray)
		out := image.NewGray(image.Rect(0, 0, width, height))
		s := sampler{
			pix: g.Pix[g.PixOffset(bounds.Min.X, bounds.Min.Y):], stride: g.Stride,
			channels: 1, w: bounds.Dx(), h: bounds.Dy(), fill: []uint8{f.Y},
		}
		s.warp(out.Pix, out.Stride, width, height, inv, bounds.Min)
		return out, nil
	}

	// Clone rebases the copy at the origin.
	src := imaging.Clone(img)
	f := color.NRGBAModel.Convert(fill).(color.NRGBA)
	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	s := sampler{
		pix: src.Pix, stride: src.Stride,
		channels: 4, w: bounds.Dx(), h: bounds.Dy(), fill: []uint8{f.R, f.G, f.B, f.A},
	}
	s.warp(out.Pix, out.Stride, width, height, inv, bounds.Min)
	return out, nil
}

// sampler reads an 8-bit interleaved pixel buffer whose first pixel is the
// image's top-left corner.
type sampler struct {
	pix      []uint8
	stride   int
	channels int
	w, h     int
	fill     []uint8
}

func (s *sampler) warp(dst []uint8, dstStride, width, height int, inv geometry.Homography, origin image.Point) {
	acc := make([]float64, s.channels)
	for y := 0; y < height; y++ {
		row := dst[y*dstStride:]
		for x := 0; x < width; x++ {
			p := inv.Apply(geometry.Pt(float64(x), float64(y)))
			s.bilinear(acc, p.X-float64(origin.X), p.Y-float64(origin.Y))
			for c, v := range acc {
				row[x*s.channels+c] = uint8(math.Round(math.Max(0, math.Min(255, v))))
			}
		}
	}
}

// bilinear writes the interpolated value at (sx, sy) into acc.
func (s *sampler) bilinear(acc []float64, sx, sy float64) {
	for c := range acc {
		acc[c] = 0
	}
	if math.IsNaN(sx) || math.IsNaN(sy) || math.IsInf(sx, 0) || math.IsInf(sy, 0) {
		for c := range acc {
			acc[c] = float64(s.fill[c])
		}
		return
	}

	sx, sy = snap(sx), snap(sy)
	x0, y0 := math.Floor(sx), math.Floor(sy)
	fx, fy := sx-x0, sy-y0
	ix, iy := int(x0), int(y0)

	weights := [4]float64{(1 - fx) * (1 - fy), fx * (1 - fy), (1 - fx) * fy, fx * fy}
	offsets := [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	for i, wt := range weights {
		if wt == 0 {
			continue
		}
		px, py := ix+offsets[i][0], iy+offsets[i][1]
		var v []uint8
		if px < 0 || py < 0 || px >= s.w || py >= s.h {
			v = s.fill
		} else {
			o := py*s.stride + px*s.channels
			v = s.pix[o : o+s.channels]
		}
		for c := range acc {
			acc[c] += wt * float64(v[c])
		}
	}
}

func snap(v float64) float64 {
	if r := math.Round(v); math.Abs(v-r) < snapEpsilon {
		return r
	}
	return v
}
