package server

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/docscan/internal/geometry"
	"github.com/ironsheep/docscan/internal/imaging"
	"github.com/ironsheep/docscan/internal/logger"
	"github.com/ironsheep/docscan/internal/ocr"
	"github.com/ironsheep/docscan/internal/scanerr"
	"github.com/ironsheep/docscan/internal/scanner"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "document_scan").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000
// and the error text in data.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		entry := logger.WithFields(logrus.Fields{"tool": params.Name}).WithError(err)
		if kind := scanerr.KindOf(err); kind != nil {
			entry.WithField("kind", kind.Error()).Info("tool failed")
		} else {
			entry.Error("tool failed")
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	logger.WithField("tool", params.Name).Debug("tool completed")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies configured defaults for optional parameters
//  3. Loads the photo from cache
//  4. Runs the pipeline stage and returns its result
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	// Inspection
	case "document_load":
		return s.handleDocumentLoad(args)
	case "document_edges":
		return s.handleDocumentEdges(args)

	// Geometry
	case "document_detect":
		return s.handleDocumentDetect(args)
	case "document_order_points":
		return s.handleDocumentOrderPoints(args)
	case "document_rectify":
		return s.handleDocumentRectify(args)

	// Pipeline
	case "document_scan":
		return s.handleDocumentScan(args)
	case "document_threshold":
		return s.handleDocumentThreshold(args)
	case "document_ocr":
		return s.handleDocumentOCR(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func (s *Server) newScanner(opts scanner.Options) *scanner.Scanner {
	return scanner.New(s.cfg.Detector(), opts).WithRecognizer(s.recognizer)
}

// === Inspection Handlers ===

type documentLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleDocumentLoad(args json.RawMessage) (interface{}, error) {
	var a documentLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type documentEdgesArgs struct {
	Path string `json:"path"`
	Low  int    `json:"low"`
	High int    `json:"high"`
}

func (s *Server) handleDocumentEdges(args json.RawMessage) (interface{}, error) {
	var a documentEdgesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Low == 0 {
		a.Low = int(s.cfg.CannyLow)
	}
	if a.High == 0 {
		a.High = int(s.cfg.CannyHigh)
	}
	if a.Low < 0 || a.High < a.Low {
		return nil, scanerr.Invalid("edges", "thresholds must satisfy 0 <= low <= high, got %d/%d", a.Low, a.High)
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EdgeDetect(img, a.Low, a.High)
}

// === Geometry Handlers ===

type documentDetectArgs struct {
	Path          string `json:"path"`
	WorkingHeight int    `json:"working_height"`
}

// DetectResult is returned by document_detect.
type DetectResult struct {
	Corners []geometry.Point `json:"corners"`
	Quad    geometry.Quad    `json:"quad"`
	Ratio   float64          `json:"ratio"`
	Width   int              `json:"output_width"`
	Height  int              `json:"output_height"`
}

func (s *Server) handleDocumentDetect(args json.RawMessage) (interface{}, error) {
	var a documentDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := s.cfg.ScanOptions()
	if err != nil {
		return nil, err
	}
	if a.WorkingHeight != 0 {
		opts.WorkingHeight = a.WorkingHeight
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := s.newScanner(opts).Locate(img)
	if err != nil {
		return nil, err
	}
	w, h, err := geometry.OutputSize(res.Quad)
	if err != nil {
		return nil, err
	}
	return &DetectResult{Corners: res.Corners, Quad: res.Quad, Ratio: res.Ratio, Width: w, Height: h}, nil
}

type documentOrderPointsArgs struct {
	Points []geometry.Point `json:"points"`
}

func (s *Server) handleDocumentOrderPoints(args json.RawMessage) (interface{}, error) {
	var a documentOrderPointsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	q, err := geometry.Order(a.Points)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"quad": q}, nil
}

type documentRectifyArgs struct {
	Path   string           `json:"path"`
	Points []geometry.Point `json:"points"`
	Fill   string           `json:"fill"`
}

// ImageResult pairs an encoded image with the quad it came from and the
// colour used for areas outside the photo.
type ImageResult struct {
	Quad *geometry.Quad       `json:"quad,omitempty"`
	Fill *imaging.ColorResult `json:"fill,omitempty"`
	*imaging.EncodedImage
}

func (s *Server) handleDocumentRectify(args json.RawMessage) (interface{}, error) {
	var a documentRectifyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Fill == "" {
		a.Fill = s.cfg.Fill
	}
	fill, err := imaging.ParseColor(a.Fill)
	if err != nil {
		return nil, err
	}
	q, err := geometry.Order(a.Points)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	out, err := imaging.Rectify(img, q, s.cfg.RectifyOptions(fill))
	if err != nil {
		return nil, err
	}
	enc, err := imaging.EncodeBase64(out)
	if err != nil {
		return nil, err
	}
	desc := imaging.DescribeColor(fill)
	return &ImageResult{Quad: &q, Fill: &desc, EncodedImage: enc}, nil
}

// === Pipeline Handlers ===

type thresholdArgs struct {
	BlockSize int      `json:"block_size"`
	Offset    *float64 `json:"offset"`
	Method    string   `json:"method"`
}

func (t thresholdArgs) apply(opts imaging.ThresholdOptions) (imaging.ThresholdOptions, error) {
	if t.BlockSize != 0 {
		opts.BlockSize = t.BlockSize
	}
	if t.Offset != nil {
		opts.Offset = *t.Offset
	}
	if t.Method != "" {
		m, err := imaging.ParseThresholdMethod(t.Method)
		if err != nil {
			return opts, err
		}
		opts.Method = m
	}
	return opts, opts.Validate()
}

type documentScanArgs struct {
	Path      string `json:"path"`
	Threshold *bool  `json:"threshold"`
	thresholdArgs
}

// ScanResult is returned by document_scan.
type ScanResult struct {
	Corners   []geometry.Point `json:"corners"`
	Quad      geometry.Quad    `json:"quad"`
	Binarized bool             `json:"binarized"`
	*imaging.EncodedImage
}

func (s *Server) handleDocumentScan(args json.RawMessage) (interface{}, error) {
	var a documentScanArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := s.cfg.ScanOptions()
	if err != nil {
		return nil, err
	}
	if a.Threshold != nil {
		opts.Threshold = *a.Threshold
	}
	if opts.ThresholdOptions, err = a.apply(opts.ThresholdOptions); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := s.newScanner(opts).Scan(img)
	if err != nil {
		return nil, err
	}
	enc, err := imaging.EncodeBase64(res.Scan)
	if err != nil {
		return nil, err
	}
	return &ScanResult{Corners: res.Corners, Quad: res.Quad, Binarized: opts.Threshold, EncodedImage: enc}, nil
}

type documentThresholdArgs struct {
	Path string `json:"path"`
	thresholdArgs
}

func (s *Server) handleDocumentThreshold(args json.RawMessage) (interface{}, error) {
	var a documentThresholdArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	base, err := s.cfg.ThresholdOptions()
	if err != nil {
		return nil, err
	}
	opts, err := a.apply(base)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	bin, err := imaging.ThresholdLocal(img, opts)
	if err != nil {
		return nil, err
	}
	return imaging.EncodeBase64(bin)
}

type documentOCRArgs struct {
	Path     string `json:"path"`
	Language string `json:"language"`
}

// OCRResult is returned by document_ocr.
type OCRResult struct {
	Quad       geometry.Quad `json:"quad"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Confidence float64       `json:"confidence"`
	*ocr.Result
}

func (s *Server) handleDocumentOCR(args json.RawMessage) (interface{}, error) {
	var a documentOCRArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := s.cfg.ScanOptions()
	if err != nil {
		return nil, err
	}
	opts.OCR = true
	if a.Language != "" {
		opts.OCRLanguage = a.Language
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := s.newScanner(opts).Scan(img)
	if err != nil {
		return nil, err
	}
	return &OCRResult{
		Quad:       res.Quad,
		Width:      res.Width(),
		Height:     res.Height(),
		Confidence: res.OCR.MeanConfidence(),
		Result:     res.OCR,
	}, nil
}
