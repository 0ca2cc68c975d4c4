package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/docscan/internal/geometry"
)

// OutlineColor is the default colour for detected document outlines.
var OutlineColor = color.NRGBA{R: 0, G: 255, B: 0, A: 255}

// DrawQuad returns a copy of img with the outline of q drawn on it.
//
// Parameters:
//   - img: Image the quad was detected on; q uses its absolute coordinates.
//   - q: Ordered corners.
//   - c: Line colour.
//   - thickness: Line width in pixels; values below 1 are treated as 1.
//   - labels: When true, each corner gets an "x,y" label.
//
// The result has its origin at (0, 0).
func DrawQuad(img image.Image, q geometry.Quad, c color.Color, thickness int, labels bool) *image.NRGBA {
	if thickness < 1 {
		thickness = 1
	}
	origin := img.Bounds().Min
	result := imaging.Clone(img)

	corners := q.Corners()
	for i := range corners {
		a := corners[i].Sub(geometry.Pt(float64(origin.X), float64(origin.Y)))
		b := corners[(i+1)%4].Sub(geometry.Pt(float64(origin.X), float64(origin.Y)))
		drawLine(result, a, b, c, thickness)
	}

	if labels {
		labelColor := color.NRGBA{255, 255, 255, 255}
		bgColor := color.NRGBA{0, 0, 0, 180}
		for _, p := range corners {
			x := int(math.Round(p.X)) - origin.X
			y := int(math.Round(p.Y)) - origin.Y
			drawLabel(result, x+2, y+2, fmt.Sprintf("%d,%d", int(math.Round(p.X)), int(math.Round(p.Y))), labelColor, bgColor)
		}
	}
	return result
}

// drawLine stamps a square brush along the segment a-b.
func drawLine(img *image.NRGBA, a, b geometry.Point, c color.Color, thickness int) {
	if !finite(a) || !finite(b) {
		return
	}
	steps := int(math.Ceil(math.Max(math.Abs(b.X-a.X), math.Abs(b.Y-a.Y))))
	if steps == 0 {
		steps = 1
	}
	half := thickness / 2
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		cx := int(math.Round(a.X + (b.X-a.X)*t))
		cy := int(math.Round(a.Y + (b.Y-a.Y)*t))
		for dy := -half; dy < thickness-half; dy++ {
			for dx := -half; dx < thickness-half; dx++ {
				setClipped(img, cx+dx, cy+dy, c)
			}
		}
	}
}

func finite(p geometry.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

func setClipped(img *image.NRGBA, x, y int, c color.Color) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.Set(x, y, c)
	}
}

// drawLabel draws a simple text label at the given position
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	// Simple 3x5 pixel font for digits, comma and minus
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		',': {"000", "000", "000", "010", "010"},
		'-': {"000", "000", "111", "000", "000"},
	}

	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	// Draw background
	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			setClipped(img, x+dx, y+dy, bg)
		}
	}

	// Draw text
	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					setClipped(img, cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
