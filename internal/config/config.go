package config

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ironsheep/docscan/internal/detection"
	"github.com/ironsheep/docscan/internal/imaging"
	"github.com/ironsheep/docscan/internal/scanner"
)

// Config holds the tunable settings shared by the CLI, the MCP server and the
// HTTP server.
type Config struct {
	// Detection
	WorkingHeight int
	CannyLow      float64
	CannyHigh     float64
	Candidates    int
	Epsilon       float64

	// Binarization
	BlockSize int
	Offset    float64
	Method    string

	// Rectification
	Fill            string
	MaxOutputPixels int

	// OCR
	OCRLanguage    string
	TessdataPrefix string

	// HTTP
	HTTPAddr       string
	RequestTimeout time.Duration
	MaxUploadBytes int64

	LogLevel string
}

// Default returns the built-in settings.
func Default() *Config {
	det := detection.DefaultOptions()
	return &Config{
		WorkingHeight:   imaging.DefaultWorkingHeight,
		CannyLow:        det.CannyLow,
		CannyHigh:       det.CannyHigh,
		Candidates:      det.Candidates,
		Epsilon:         det.Epsilon,
		BlockSize:       imaging.DefaultBlockSize,
		Offset:          imaging.DefaultOffset,
		Method:          string(imaging.ThresholdGaussian),
		Fill:            "#000000",
		MaxOutputPixels: imaging.DefaultMaxOutputPixels,
		OCRLanguage:     "eng",
		HTTPAddr:        ":8080",
		RequestTimeout:  30 * time.Second,
		MaxUploadBytes:  20 * 1024 * 1024, // 20MB
		LogLevel:        "info",
	}
}

// LoadFromEnv reads DOCSCAN_* variables over the defaults and validates the
// result.
func LoadFromEnv() (*Config, error) {
	d := Default()
	cfg := &Config{
		WorkingHeight:   int(parseIntOrDefault("DOCSCAN_WORKING_HEIGHT", int64(d.WorkingHeight))),
		CannyLow:        parseFloatOrDefault("DOCSCAN_CANNY_LOW", d.CannyLow),
		CannyHigh:       parseFloatOrDefault("DOCSCAN_CANNY_HIGH", d.CannyHigh),
		Candidates:      int(parseIntOrDefault("DOCSCAN_CANDIDATES", int64(d.Candidates))),
		Epsilon:         parseFloatOrDefault("DOCSCAN_APPROX_EPSILON", d.Epsilon),
		BlockSize:       int(parseIntOrDefault("DOCSCAN_BLOCK_SIZE", int64(d.BlockSize))),
		Offset:          parseFloatOrDefault("DOCSCAN_OFFSET", d.Offset),
		Method:          strings.ToLower(getEnvOrDefault("DOCSCAN_METHOD", d.Method)),
		Fill:            getEnvOrDefault("DOCSCAN_FILL", d.Fill),
		MaxOutputPixels: int(parseIntOrDefault("DOCSCAN_MAX_OUTPUT_PIXELS", int64(d.MaxOutputPixels))),
		OCRLanguage:     getEnvOrDefault("DOCSCAN_OCR_LANGUAGE", d.OCRLanguage),
		TessdataPrefix:  getEnvOrDefault("DOCSCAN_TESSDATA_PREFIX", ""),
		HTTPAddr:        getEnvOrDefault("DOCSCAN_HTTP_ADDR", d.HTTPAddr),
		RequestTimeout:  parseDurationOrDefault("DOCSCAN_REQUEST_TIMEOUT", d.RequestTimeout),
		MaxUploadBytes:  parseIntOrDefault("DOCSCAN_MAX_UPLOAD_BYTES", d.MaxUploadBytes),
		LogLevel:        strings.ToLower(getEnvOrDefault("DOCSCAN_LOG_LEVEL", d.LogLevel)),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field and reports the first problem.
func (c *Config) Validate() error {
	if c.WorkingHeight < 16 {
		return fmt.Errorf("DOCSCAN_WORKING_HEIGHT must be >= 16 (got %d)", c.WorkingHeight)
	}
	if err := c.DetectionOptions().Validate(); err != nil {
		return fmt.Errorf("invalid detection settings: %w", err)
	}
	if _, err := c.ThresholdOptions(); err != nil {
		return fmt.Errorf("invalid threshold settings: %w", err)
	}
	if _, err := c.FillColor(); err != nil {
		return fmt.Errorf("invalid DOCSCAN_FILL: %w", err)
	}
	if c.MaxOutputPixels < 4 {
		return fmt.Errorf("DOCSCAN_MAX_OUTPUT_PIXELS must be >= 4 (got %d)", c.MaxOutputPixels)
	}
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("DOCSCAN_HTTP_ADDR must not be empty")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("DOCSCAN_MAX_UPLOAD_BYTES must be > 0 (got %d)", c.MaxUploadBytes)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("DOCSCAN_REQUEST_TIMEOUT must be > 0 (got %s)", c.RequestTimeout)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("DOCSCAN_LOG_LEVEL must be debug, info, warn or error (got %q)", c.LogLevel)
	}
	return nil
}

// DetectionOptions returns the boundary detector tuning.
func (c *Config) DetectionOptions() detection.Options {
	opts := detection.DefaultOptions()
	opts.CannyLow = c.CannyLow
	opts.CannyHigh = c.CannyHigh
	opts.Candidates = c.Candidates
	opts.Epsilon = c.Epsilon
	return opts
}

// ThresholdOptions returns the binarization settings.
func (c *Config) ThresholdOptions() (imaging.ThresholdOptions, error) {
	method, err := imaging.ParseThresholdMethod(c.Method)
	if err != nil {
		return imaging.ThresholdOptions{}, err
	}
	opts := imaging.ThresholdOptions{BlockSize: c.BlockSize, Offset: c.Offset, Method: method}
	if err := opts.Validate(); err != nil {
		return imaging.ThresholdOptions{}, err
	}
	return opts, nil
}

// FillColor parses the out-of-bounds fill colour.
func (c *Config) FillColor() (color.NRGBA, error) {
	return imaging.ParseColor(c.Fill)
}

// RectifyOptions returns the resampling settings for fill.
func (c *Config) RectifyOptions(fill color.Color) imaging.RectifyOptions {
	return imaging.RectifyOptions{Fill: fill, MaxPixels: c.MaxOutputPixels}
}

// ScanOptions assembles pipeline options with binarization enabled and OCR
// off.
func (c *Config) ScanOptions() (scanner.Options, error) {
	th, err := c.ThresholdOptions()
	if err != nil {
		return scanner.Options{}, err
	}
	fill, err := c.FillColor()
	if err != nil {
		return scanner.Options{}, err
	}
	return scanner.Options{
		WorkingHeight:    c.WorkingHeight,
		Threshold:        true,
		ThresholdOptions: th,
		Fill:             fill,
		MaxOutputPixels:  c.MaxOutputPixels,
		OCRLanguage:      c.OCRLanguage,
	}, nil
}

// Detector returns the pure Go boundary detector tuned by c.
func (c *Config) Detector() *detection.ContourDetector {
	return detection.NewContourDetector(c.DetectionOptions())
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return defaultValue
}
