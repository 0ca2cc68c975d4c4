package server

import (
	"encoding/json"
	"testing"
)

var expectedTools = []string{
	"document_load",
	"document_edges",
	"document_detect",
	"document_order_points",
	"document_rectify",
	"document_scan",
	"document_threshold",
	"document_ocr",
}

func toolMap() map[string]Tool {
	m := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		m[tool.Name] = tool
	}
	return m
}

func requiredFields(t *testing.T, tool Tool) []string {
	t.Helper()
	required, ok := tool.InputSchema["required"].([]string)
	if !ok {
		t.Fatalf("%s: required should be []string", tool.Name)
	}
	return required
}

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()
	m := toolMap()

	if len(m) != len(tools) {
		t.Errorf("tool names are not unique: %d tools, %d names", len(tools), len(m))
	}
	for _, name := range expectedTools {
		if _, ok := m[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok || len(props) == 0 {
				t.Fatal("InputSchema properties missing")
			}
			for _, field := range requiredFields(t, tool) {
				if _, ok := props[field]; !ok {
					t.Errorf("required field %q has no property", field)
				}
			}
			if _, err := json.Marshal(tool); err != nil {
				t.Errorf("tool does not marshal: %v", err)
			}
		})
	}
}

func TestToolDefinitions_RequiredPath(t *testing.T) {
	m := toolMap()
	for _, name := range expectedTools {
		if name == "document_order_points" {
			continue
		}
		found := false
		for _, f := range requiredFields(t, m[name]) {
			if f == "path" {
				found = true
			}
		}
		if !found {
			t.Errorf("%s should require path", name)
		}
	}
}

func TestToolDefinitions_ThresholdOptions(t *testing.T) {
	m := toolMap()
	for _, name := range []string{"document_scan", "document_threshold"} {
		props := m[name].InputSchema["properties"].(map[string]interface{})
		for _, key := range []string{"block_size", "offset", "method"} {
			if _, ok := props[key]; !ok {
				t.Errorf("%s missing %s", name, key)
			}
		}
	}
}
