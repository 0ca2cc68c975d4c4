package imaging

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"
)

func TestEncodeBase64(t *testing.T) {
	img := createPatternImage(30, 20)

	result, err := EncodeBase64(img)
	if err != nil {
		t.Fatalf("EncodeBase64 failed: %v", err)
	}
	if result.Width != 30 || result.Height != 20 {
		t.Errorf("dimensions: got %dx%d, want 30x20", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}

	data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}
	if r, _, _, _ := decoded.At(2, 2).RGBA(); r>>8 != 255 {
		t.Error("top-left quadrant should stay red")
	}
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	if err := Save(createInMemoryImage(8, 6, color.White), path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	cache := NewImageCache()
	img, err := cache.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 6 {
		t.Errorf("size: got %v, want 8x6", img.Bounds())
	}
}

func TestSave_BadExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.unknown")
	if err := Save(createInMemoryImage(2, 2, color.White), path); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
