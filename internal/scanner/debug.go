package scanner

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/imaging"
	"github.com/ironsheep/docscan/internal/logger"
)

// Debug image names written by WriteDebug.
const (
	EdgesFile   = "edges.png"
	ContourFile = "contour.png"
	WarpedFile  = "warped.png"
)

// WriteDebug saves the intermediate images of r into dir, creating it if
// needed. Stages that did not run are skipped, so a failed detection still
// leaves the edge map behind. It returns the paths written.
func WriteDebug(dir string, r *Result) ([]string, error) {
	if r == nil {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create debug directory: %w", err)
	}

	var written []string
	save := func(name string, img image.Image) error {
		path := filepath.Join(dir, name)
		if err := imaging.Save(img, path); err != nil {
			return err
		}
		written = append(written, path)
		logger.WithField("path", path).Debug("debug image written")
		return nil
	}

	if r.Edges != nil {
		if err := save(EdgesFile, r.Edges); err != nil {
			return written, err
		}
	}
	if r.Working != nil && len(r.WorkingCorners) == 4 {
		q, err := geometry.Order(r.WorkingCorners)
		if err != nil {
			return written, err
		}
		if err := save(ContourFile, imaging.DrawQuad(r.Working, q, imaging.OutlineColor, 2, false)); err != nil {
			return written, err
		}
	}
	if r.Warped != nil {
		if err := save(WarpedFile, r.Warped); err != nil {
			return written, err
		}
	}
	return written, nil
}
