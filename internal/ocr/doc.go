// Package ocr recognises text on finished scans using Tesseract.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2). OCR is an
// optional last step of the scan pipeline: the rectified, binarized page is
// handed to a Recognizer and the text comes back with word bounding boxes.
//
// # Prerequisites
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr libtesseract-dev
//   - macOS: brew install tesseract
//
// Language data files are required for each language:
//   - Ubuntu/Debian: apt-get install tesseract-ocr-eng (for English)
//   - Other languages: tesseract-ocr-<lang> packages
//
// # Supported Languages
//
// The default language is English ("eng"). Other languages can be specified
// using their Tesseract language codes ("deu", "fra", "chi_sim"), and several
// can be combined with '+', for example "eng+deu".
//
// # Error Handling
//
// Malformed language codes and empty images return scanerr.ErrInvalidInput.
// Engine failures are wrapped with fmt.Errorf. If bounding box extraction
// fails, Recognize still returns the extracted text with an empty Words slice.
package ocr
