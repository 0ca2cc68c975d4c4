// Package transport exposes the scan pipeline over HTTP.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/docscan/internal/config"
	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/imaging"
	"github.com/ironsheep/docscan/internal/logger"
	"github.com/ironsheep/docscan/internal/ocr"
	"github.com/ironsheep/docscan/internal/scanerr"
	"github.com/ironsheep/docscan/internal/scanner"
)

// Version is reported by /health. It is set by main.
var Version = "dev"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ScanResponse is returned by POST /scan?format=json.
type ScanResponse struct {
	Corners     []geometry.Point `json:"corners"`
	Quad        geometry.Quad    `json:"quad"`
	Width       int              `json:"width"`
	Height      int              `json:"height"`
	Binarized   bool             `json:"binarized"`
	ImageBase64 string           `json:"image_base64"`
	MimeType    string           `json:"mime_type"`
	Text        string           `json:"text,omitempty"`
	Confidence  float64          `json:"confidence,omitempty"`
}

// NewHandler builds the gin router. recognizer may be nil, in which case
// requests with ocr=true fail with 400.
func NewHandler(cfg *config.Config, recognizer ocr.Recognizer) http.Handler {
	r := gin.New()

	r.Use(
		gin.Recovery(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxUploadBytes),
	)

	r.GET("/health", healthCheck)
	r.POST("/scan", scanDocument(cfg, recognizer))

	return r
}

type scanQuery struct {
	threshold bool
	ocr       bool
	json      bool
}

func parseScanQuery(c *gin.Context) (scanQuery, error) {
	q := scanQuery{threshold: true}
	var err error
	if v := c.Query("threshold"); v != "" {
		if q.threshold, err = strconv.ParseBool(v); err != nil {
			return q, scanerr.Invalid("scan", "threshold must be a boolean, got %q", v)
		}
	}
	if v := c.Query("ocr"); v != "" {
		if q.ocr, err = strconv.ParseBool(v); err != nil {
			return q, scanerr.Invalid("scan", "ocr must be a boolean, got %q", v)
		}
	}
	switch f := c.DefaultQuery("format", "png"); f {
	case "png":
	case "json":
		q.json = true
	default:
		return q, scanerr.Invalid("scan", "format must be png or json, got %q", f)
	}
	return q, nil
}

func scanDocument(cfg *config.Config, recognizer ocr.Recognizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		q, err := parseScanQuery(c)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid query", err)
			return
		}
		if q.ocr && recognizer == nil {
			respondError(c, http.StatusBadRequest, "invalid query", scanerr.Invalid("scan", "ocr is not available"))
			return
		}

		data, err := readUpload(c)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondError(c, http.StatusRequestEntityTooLarge, "upload too large", err)
				return
			}
			respondError(c, http.StatusBadRequest, "invalid upload", err)
			return
		}

		img, err := imaging.DecodeBytes(data)
		if err != nil {
			if scanerr.KindOf(err) == nil {
				err = scanerr.Wrap("decode", scanerr.ErrInvalidInput, "cannot decode upload", err)
			}
			respondError(c, http.StatusBadRequest, "invalid image", err)
			return
		}

		opts, err := cfg.ScanOptions()
		if err != nil {
			respondError(c, http.StatusInternalServerError, "bad configuration", err)
			return
		}
		opts.Threshold = q.threshold
		opts.OCR = q.ocr

		s := scanner.New(cfg.Detector(), opts).WithRecognizer(recognizer)
		res, err := runWithContext(ctx, func() (*scanner.Result, error) {
			return s.Scan(img)
		})
		if err != nil {
			respondError(c, determineStatusCode(err), "scan failed", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"width":              res.Width(),
			"height":             res.Height(),
			"binarized":          q.threshold,
			"ocr":                q.ocr,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Document scanned")

		if !q.json {
			data, err := imaging.EncodePNG(res.Scan)
			if err != nil {
				respondError(c, http.StatusInternalServerError, "encode failed", err)
				return
			}
			c.Data(http.StatusOK, "image/png", data)
			return
		}
		enc, err := imaging.EncodeBase64(res.Scan)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "encode failed", err)
			return
		}
		resp := ScanResponse{
			Corners:     res.Corners,
			Quad:        res.Quad,
			Width:       enc.Width,
			Height:      enc.Height,
			Binarized:   q.threshold,
			ImageBase64: enc.ImageBase64,
			MimeType:    enc.MimeType,
		}
		if res.OCR != nil {
			resp.Text = res.OCR.Text
			resp.Confidence = res.OCR.MeanConfidence()
		}
		c.JSON(http.StatusOK, resp)
	}
}

func readUpload(c *gin.Context) ([]byte, error) {
	header, err := c.FormFile("image")
	if err != nil {
		return nil, err
	}
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// runWithContext runs fn in its own goroutine so the request can give up at
// the deadline. fn itself is not interrupted.
func runWithContext(ctx context.Context, fn func() (*scanner.Result, error)) (*scanner.Result, error) {
	type outcome struct {
		res *scanner.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := fn()
		done <- outcome{res, err}
	}()
	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
			"ip":          c.ClientIP(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("Request handled")
	}
}

func determineStatusCode(err error) int {
	switch {
	case errors.Is(err, scanerr.ErrNoDocumentFound), errors.Is(err, scanerr.ErrDegenerateGeometry):
		return http.StatusUnprocessableEntity
	case errors.Is(err, scanerr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Info("Request rejected")
	}

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
