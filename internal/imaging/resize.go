package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// DefaultWorkingHeight is the height detection runs at.
const DefaultWorkingHeight = 500

// WorkingCopy downscales img to the given height, preserving aspect ratio,
// and returns the factor that maps working-copy coordinates back onto img.
//
// Images already at or below the target height are returned unchanged with a
// ratio of 1; they are never upscaled.
func WorkingCopy(img image.Image, height int) (image.Image, float64) {
	orig := img.Bounds().Dy()
	if height <= 0 || orig <= height {
		return img, 1
	}
	return imaging.Resize(img, 0, height, imaging.Lanczos), float64(orig) / float64(height)
}
