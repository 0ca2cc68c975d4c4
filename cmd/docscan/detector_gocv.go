//go:build gocv

package main

import (
	"github.com/ironsheep/docscan/internal/config"
	"github.com/ironsheep/docscan/internal/detection"
)

// With the gocv tag the CLI detects through OpenCV.
func newDetector(cfg *config.Config) detection.Detector {
	return detection.NewOpenCVDetector(cfg.DetectionOptions())
}
