// Package server implements the MCP (Model Context Protocol) server for
// document scanning.
//
// The server exposes the scan pipeline as JSON-RPC 2.0 tools so an assistant
// can detect, flatten and read paper documents in photos.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Inspection:
//   - document_load: Load a photo and get metadata
//   - document_edges: Canny edge map used by detection
//
// Geometry:
//   - document_detect: Find the four document corners
//   - document_order_points: Order four points TL, TR, BR, BL
//   - document_rectify: Warp a quadrilateral into a flat rectangle
//
// Pipeline:
//   - document_scan: Detect, flatten and binarize
//   - document_threshold: Adaptive local thresholding
//   - document_ocr: Scan and extract text with Tesseract
//
// Defaults for every optional argument come from the config.Config the
// server was created with.
//
// # Image Caching
//
// Decoded photos are cached by path for the lifetime of the process, so a
// detect followed by a rectify reads the file once.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: "Tool execution failed"
//   - data: the error text, which names the scanerr kind ("no document
//     found", "degenerate geometry" or "invalid input") when there is one
//
// # Usage
//
//	srv := server.New(cfg)
//	if err := srv.Run(); err != nil {
//	    logger.WithError(err).Fatal("server stopped")
//	}
package server
