package config

import (
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/ironsheep/docscan/internal/imaging"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}

	if cfg.WorkingHeight != 500 {
		t.Errorf("WorkingHeight: got %d, want 500", cfg.WorkingHeight)
	}
	if cfg.CannyLow != 75 || cfg.CannyHigh != 200 {
		t.Errorf("Canny: got %v/%v, want 75/200", cfg.CannyLow, cfg.CannyHigh)
	}
	if cfg.Candidates != 5 || cfg.Epsilon != 0.02 {
		t.Errorf("Candidates/Epsilon: got %d/%v", cfg.Candidates, cfg.Epsilon)
	}
	if cfg.BlockSize != 11 || cfg.Offset != 10 || cfg.Method != "gaussian" {
		t.Errorf("threshold: got %d/%v/%s", cfg.BlockSize, cfg.Offset, cfg.Method)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout: got %s", cfg.RequestTimeout)
	}
	if cfg.MaxUploadBytes != 20*1024*1024 {
		t.Errorf("MaxUploadBytes: got %d", cfg.MaxUploadBytes)
	}
	if cfg.MaxOutputPixels != imaging.DefaultMaxOutputPixels {
		t.Errorf("MaxOutputPixels: got %d", cfg.MaxOutputPixels)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("DOCSCAN_WORKING_HEIGHT", "800")
	t.Setenv("DOCSCAN_CANNY_LOW", "50")
	t.Setenv("DOCSCAN_CANNY_HIGH", "150")
	t.Setenv("DOCSCAN_BLOCK_SIZE", "21")
	t.Setenv("DOCSCAN_METHOD", "MEAN")
	t.Setenv("DOCSCAN_FILL", "#ffffff")
	t.Setenv("DOCSCAN_REQUEST_TIMEOUT", "5s")
	t.Setenv("DOCSCAN_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("DOCSCAN_MAX_OUTPUT_PIXELS", "1000000")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}
	if cfg.WorkingHeight != 800 {
		t.Errorf("WorkingHeight: got %d, want 800", cfg.WorkingHeight)
	}
	opts := cfg.DetectionOptions()
	if opts.CannyLow != 50 || opts.CannyHigh != 150 {
		t.Errorf("DetectionOptions: got %+v", opts)
	}
	th, err := cfg.ThresholdOptions()
	if err != nil {
		t.Fatalf("ThresholdOptions failed: %v", err)
	}
	if th.BlockSize != 21 || th.Method != imaging.ThresholdMean {
		t.Errorf("ThresholdOptions: got %+v", th)
	}
	fill, _ := cfg.FillColor()
	if fill != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("FillColor: got %v", fill)
	}
	if cfg.RequestTimeout != 5*time.Second || cfg.HTTPAddr != "127.0.0.1:9000" {
		t.Errorf("HTTP settings: got %s %s", cfg.RequestTimeout, cfg.HTTPAddr)
	}
	if ro := cfg.RectifyOptions(fill); ro.MaxPixels != 1000000 || ro.Fill != fill {
		t.Errorf("RectifyOptions: got %+v", ro)
	}
}

func TestLoadFromEnv_UnparseableFallsBack(t *testing.T) {
	t.Setenv("DOCSCAN_CANDIDATES", "lots")
	t.Setenv("DOCSCAN_REQUEST_TIMEOUT", "-3s")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}
	if cfg.Candidates != 5 {
		t.Errorf("Candidates: got %d, want default 5", cfg.Candidates)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout: got %s, want default", cfg.RequestTimeout)
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
		wantInErr  string
	}{
		{"DOCSCAN_BLOCK_SIZE", "10", "threshold"},
		{"DOCSCAN_METHOD", "otsu", "threshold"},
		{"DOCSCAN_FILL", "#zzz", "DOCSCAN_FILL"},
		{"DOCSCAN_CANNY_LOW", "300", "detection"},
		{"DOCSCAN_WORKING_HEIGHT", "4", "DOCSCAN_WORKING_HEIGHT"},
		{"DOCSCAN_MAX_UPLOAD_BYTES", "0", "DOCSCAN_MAX_UPLOAD_BYTES"},
		{"DOCSCAN_LOG_LEVEL", "loud", "DOCSCAN_LOG_LEVEL"},
		{"DOCSCAN_MAX_OUTPUT_PIXELS", "0", "DOCSCAN_MAX_OUTPUT_PIXELS"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadFromEnv()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantInErr) {
				t.Errorf("error %q should mention %q", err, tt.wantInErr)
			}
		})
	}
}

func TestScanOptions(t *testing.T) {
	cfg := Default()
	cfg.WorkingHeight = 640
	cfg.Fill = "#ff0000"

	opts, err := cfg.ScanOptions()
	if err != nil {
		t.Fatalf("ScanOptions failed: %v", err)
	}
	if opts.WorkingHeight != 640 || !opts.Threshold || opts.OCR {
		t.Errorf("unexpected options: %+v", opts)
	}
	if opts.ThresholdOptions != imaging.DefaultThresholdOptions() {
		t.Errorf("ThresholdOptions: got %+v", opts.ThresholdOptions)
	}
	if opts.Fill != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("Fill: got %v", opts.Fill)
	}
	if opts.MaxOutputPixels != imaging.DefaultMaxOutputPixels {
		t.Errorf("MaxOutputPixels: got %d", opts.MaxOutputPixels)
	}
	if got := cfg.Detector().Options(); got != cfg.DetectionOptions() {
		t.Errorf("Detector options: got %+v", got)
	}

	cfg.Method = "median"
	if _, err := cfg.ScanOptions(); err == nil {
		t.Error("expected error for unknown method")
	}
}
