package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the photo",
	}
}

func pointsProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": "Exactly four corner points in image pixels, in any order",
		"minItems":    4,
		"maxItems":    4,
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"x": map[string]interface{}{"type": "number"},
				"y": map[string]interface{}{"type": "number"},
			},
			"required": []string{"x", "y"},
		},
	}
}

func thresholdProperties(props map[string]interface{}) map[string]interface{} {
	props["block_size"] = map[string]interface{}{
		"type":        "integer",
		"description": "Odd neighbourhood size for the local threshold. Default 11",
		"default":     11,
	}
	props["offset"] = map[string]interface{}{
		"type":        "number",
		"description": "Bias subtracted from the local statistic. Default 10",
		"default":     10,
	}
	props["method"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"gaussian", "mean"},
		"description": "Local statistic. Default gaussian",
		"default":     "gaussian",
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Inspection
		{
			Name:        "document_load",
			Description: "Load a photo and return its dimensions and format. The image stays cached for later calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_edges",
			Description: "Return the Canny edge map the document detector works on, as base64 PNG. Useful when detection fails.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"low": map[string]interface{}{
						"type":        "integer",
						"description": "Low hysteresis threshold. Default 75",
						"default":     75,
					},
					"high": map[string]interface{}{
						"type":        "integer",
						"description": "High hysteresis threshold. Default 200",
						"default":     200,
					},
				},
				"required": []string{"path"},
			},
		},

		// Geometry
		{
			Name:        "document_detect",
			Description: "Find the four corners of the paper document in a photo. Corners are returned in full-resolution pixel coordinates, both as detected and ordered top-left, top-right, bottom-right, bottom-left.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"working_height": map[string]interface{}{
						"type":        "integer",
						"description": "Height of the downscaled copy detection runs on. Default 500",
						"default":     500,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_order_points",
			Description: "Order four corner points as top-left, top-right, bottom-right, bottom-left using the x+y and y-x extremes.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"points": pointsProperty(),
				},
				"required": []string{"points"},
			},
		},
		{
			Name:        "document_rectify",
			Description: "Warp the quadrilateral given by four points into a flat, top-down rectangle and return it as base64 PNG. Outputs larger than the configured pixel limit are rejected.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":   pathProperty(),
					"points": pointsProperty(),
					"fill": map[string]interface{}{
						"type":        "string",
						"description": "Hex colour for areas outside the photo. Default #000000",
					},
				},
				"required": []string{"path", "points"},
			},
		},

		// Pipeline
		{
			Name:        "document_scan",
			Description: "Detect the document, flatten it and binarize it into a black-and-white scan, returned as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": thresholdProperties(map[string]interface{}{
					"path": pathProperty(),
					"threshold": map[string]interface{}{
						"type":        "boolean",
						"description": "Binarize the flattened page. Default true",
						"default":     true,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_threshold",
			Description: "Binarize an image with adaptive local thresholding and return it as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": thresholdProperties(map[string]interface{}{
					"path": pathProperty(),
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "document_ocr",
			Description: "Scan the document and extract its text with Tesseract OCR. Returns the text, word boxes in scan coordinates and confidences.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"language": map[string]interface{}{
						"type":        "string",
						"description": "Tesseract language code (e.g., 'eng', 'deu', 'eng+fra'). Default 'eng'",
						"default":     "eng",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
