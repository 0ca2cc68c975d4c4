//go:build !gocv

package main

import (
	"github.com/ironsheep/docscan/internal/config"
	"github.com/ironsheep/docscan/internal/detection"
)

func newDetector(cfg *config.Config) detection.Detector {
	return cfg.Detector()
}
