package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// DefaultBlurSigma approximates a 5x5 Gaussian kernel with automatic sigma,
// 0.3*((5-1)*0.5-1)+0.8.
const DefaultBlurSigma = 1.1

// EdgeDetect converts img to grayscale, smooths it and runs Canny edge
// detection, returning the edge map as base64 PNG.
//
// Parameters:
//   - img: Source image (color or grayscale).
//   - thresholdLow: Gradients below this are discarded. Typical value: 75.
//   - thresholdHigh: Gradients above this are always edges. Typical value: 200.
//
// The output is white (255) on edges and black elsewhere.
func EdgeDetect(img image.Image, thresholdLow, thresholdHigh int) (*EncodedImage, error) {
	if err := CheckImage(img); err != nil {
		return nil, err
	}
	edges := Canny(Smooth(img, DefaultBlurSigma), float64(thresholdLow), float64(thresholdHigh))
	return EncodeBase64(edges)
}

// Smooth returns a grayscale copy of img blurred with a Gaussian of the given
// sigma. A sigma of zero skips blurring.
func Smooth(img image.Image, sigma float64) *image.NRGBA {
	gray := imaging.Grayscale(img)
	if sigma <= 0 {
		return gray
	}
	return imaging.Blur(gray, sigma)
}

// Canny performs Canny edge detection on the luminance of img. It does not
// blur; callers smooth first (see Smooth).
//
// Thresholds apply to the Sobel gradient magnitude of 0-255 luminance.
//
// # Algorithm
//
//  1. Luminance: ITU-R BT.601 weights (0.299*R + 0.587*G + 0.114*B)
//
//  2. Gradient computation: Sobel operators for X and Y gradients
//     magnitude = sqrt(Gx² + Gy²)
//     direction = atan2(Gy, Gx)
//
//  3. Non-maximum suppression: thin edges to 1-pixel width by keeping only
//     local maxima in the gradient direction
//
//  4. Hysteresis: pixels above thresholdHigh seed edges; pixels above
//     thresholdLow join an edge when 8-connected to a seed through other
//     such pixels
//
// The returned image has the same bounds as img.
func Canny(img image.Image, thresholdLow, thresholdHigh float64) *image.Gray {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := luminance(img)

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	magnitude := make([][]float64, height)
	direction := make([][]float64, height)
	for y := 0; y < height; y++ {
		magnitude[y] = make([]float64, width)
		direction[y] = make([]float64, width)

		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					py := clamp(y+ky, 0, height-1)
					px := clamp(x+kx, 0, width-1)
					gx += gray[py][px] * sobelX[ky+1][kx+1]
					gy += gray[py][px] * sobelY[ky+1][kx+1]
				}
			}
			magnitude[y][x] = math.Sqrt(gx*gx + gy*gy)
			direction[y][x] = math.Atan2(gy, gx)
		}
	}

	// Non-maximum suppression
	suppressed := make([][]float64, height)
	for y := 0; y < height; y++ {
		suppressed[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			if y == 0 || y == height-1 || x == 0 || x == width-1 {
				continue
			}

			angle := direction[y][x]
			mag := magnitude[y][x]

			var n1, n2 float64
			if (angle >= -math.Pi/8 && angle < math.Pi/8) || (angle >= 7*math.Pi/8 || angle < -7*math.Pi/8) {
				n1 = magnitude[y][x-1]
				n2 = magnitude[y][x+1]
			} else if (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8) {
				n1 = magnitude[y-1][x-1]
				n2 = magnitude[y+1][x+1]
			} else if (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8) {
				n1 = magnitude[y-1][x]
				n2 = magnitude[y+1][x]
			} else {
				n1 = magnitude[y-1][x+1]
				n2 = magnitude[y+1][x-1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[y][x] = mag
			}
		}
	}

	// Hysteresis: grow edges outward from strong pixels.
	result := image.NewGray(bounds)
	stack := make([]image.Point, 0, 256)
	mark := func(x, y int) {
		result.Pix[y*result.Stride+x] = 255
		stack = append(stack, image.Point{X: x, Y: y})
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if suppressed[y][x] >= thresholdHigh && result.Pix[y*result.Stride+x] == 0 {
				mark(x, y)
			}
			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for ky := -1; ky <= 1; ky++ {
					for kx := -1; kx <= 1; kx++ {
						nx, ny := p.X+kx, p.Y+ky
						if nx < 0 || nx >= width || ny < 0 || ny >= height {
							continue
						}
						if result.Pix[ny*result.Stride+nx] == 0 && suppressed[ny][nx] >= thresholdLow {
							mark(nx, ny)
						}
					}
				}
			}
		}
	}

	return result
}

// luminance returns the 0-255 luma of every pixel, indexed [y][x] relative to
// the image origin.
func luminance(img image.Image) [][]float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	gray := make([][]float64, height)
	if g, ok := img.(*image.Gray); ok {
		for y := 0; y < height; y++ {
			gray[y] = make([]float64, width)
			row := g.Pix[y*g.Stride : y*g.Stride+width]
			for x, v := range row {
				gray[y][x] = float64(v)
			}
		}
		return gray
	}

	for y := 0; y < height; y++ {
		gray[y] = make([]float64, width)
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			gray[y][x] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}
	return gray
}

// ToGray returns img as *image.Gray, converting through BT.601 luminance.
// A *image.Gray input is returned as is.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			out.SetGray(x, y, color.GrayModel.Convert(img.At(x, y)).(color.Gray))
		}
	}
	return out
}

// clamp constrains an integer value to the range [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
