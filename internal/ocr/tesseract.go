package ocr

import (
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/docscan/internal/imaging"
	"github.com/ironsheep/docscan/internal/scanerr"
)

// DefaultLanguage is used when no language is given.
const DefaultLanguage = "eng"

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Word is one recognised word with its location in the scan.
type Word struct {
	// Text is the recognised word.
	Text string `json:"text"`

	// Confidence ranges from 0.0 to 1.0.
	Confidence float64 `json:"confidence"`

	// Bounds locates the word in the scanned image.
	Bounds Bounds `json:"bounds"`
}

// Result contains the text recognised in a scan.
type Result struct {
	// Text is the full recognised text, lines separated by newlines.
	Text string `json:"text"`

	// Words carries word-level boxes. It is empty when Tesseract cannot
	// report boxes; Text is still valid in that case.
	Words []Word `json:"words"`

	// Language is the Tesseract language code used.
	Language string `json:"language"`
}

// MeanConfidence averages the word confidences, 0 when there are none.
func (r *Result) MeanConfidence() float64 {
	if len(r.Words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range r.Words {
		sum += w.Confidence
	}
	return sum / float64(len(r.Words))
}

// Recognizer extracts text from an image.
type Recognizer interface {
	Recognize(img image.Image, language string) (*Result, error)
}

// Tesseract is a Recognizer backed by the Tesseract engine through
// gosseract. Each call uses its own client, so a Tesseract value is safe for
// concurrent use.
type Tesseract struct {
	// TessdataPrefix overrides the directory holding *.traineddata files.
	// Empty uses Tesseract's compiled-in default or TESSDATA_PREFIX.
	TessdataPrefix string
}

// NewTesseract creates a recognizer.
func NewTesseract(tessdataPrefix string) *Tesseract {
	return &Tesseract{TessdataPrefix: tessdataPrefix}
}

// Recognize runs OCR over img. A binarized scan gives the best results.
func (t *Tesseract) Recognize(img image.Image, language string) (*Result, error) {
	if err := imaging.CheckImage(img); err != nil {
		return nil, err
	}
	language, err := normalizeLanguage(language)
	if err != nil {
		return nil, err
	}

	data, err := imaging.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}

	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	// Get word-level bounding boxes
	origin := img.Bounds().Min
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	words := make([]Word, 0, len(boxes))
	if err == nil {
		for _, box := range boxes {
			words = append(words, Word{
				Text:       box.Word,
				Confidence: float64(box.Confidence) / 100.0,
				Bounds: Bounds{
					X1: box.Box.Min.X + origin.X,
					Y1: box.Box.Min.Y + origin.Y,
					X2: box.Box.Max.X + origin.X,
					Y2: box.Box.Max.Y + origin.Y,
				},
			})
		}
	}

	return &Result{
		Text:     text,
		Words:    words,
		Language: language,
	}, nil
}

// RecognizeFile decodes the image at path and runs OCR over it.
func (t *Tesseract) RecognizeFile(path, language string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := imaging.Decode(f)
	if err != nil {
		return nil, err
	}
	return t.Recognize(img, language)
}

// normalizeLanguage defaults an empty code and rejects codes Tesseract could
// not resolve to a traineddata file, such as paths.
func normalizeLanguage(language string) (string, error) {
	language = strings.TrimSpace(language)
	if language == "" {
		return DefaultLanguage, nil
	}
	for _, r := range language {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '+':
		default:
			return "", scanerr.Invalid("ocr", "invalid language code %q", language)
		}
	}
	return language, nil
}

// Version returns the linked Tesseract version.
func Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}

// Info describes the OCR subsystem.
type Info struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Backend   string `json:"backend"`
	Language  string `json:"language"`
}

// GetInfo reports OCR availability for the given default language.
func GetInfo(language string) Info {
	language, err := normalizeLanguage(language)
	if err != nil {
		language = DefaultLanguage
	}
	version := Version()
	return Info{
		Available: version != "",
		Version:   version,
		Backend:   "gosseract",
		Language:  language,
	}
}
