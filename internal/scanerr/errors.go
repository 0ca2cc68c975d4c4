// Package scanerr defines the error kinds produced by the document scanning
// pipeline.
//
// Every failure that ends processing of an image wraps exactly one of the
// sentinel kinds below, so callers can branch with errors.Is regardless of how
// many layers added context:
//
//	if errors.Is(err, scanerr.ErrNoDocumentFound) {
//	    // skip this photo
//	}
package scanerr

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDocumentFound is returned when boundary detection finds no
	// 4-vertex candidate among the contours it considered.
	ErrNoDocumentFound = errors.New("no document found")

	// ErrDegenerateGeometry is returned when a quadrilateral cannot define a
	// projective transform: collinear or coincident corners, or a computed
	// output width or height below one pixel.
	ErrDegenerateGeometry = errors.New("degenerate geometry")

	// ErrInvalidInput is returned for malformed arguments such as a point
	// count other than 4 or an empty source image.
	ErrInvalidInput = errors.New("invalid input")
)

// Error carries the operation that failed along with its kind.
type Error struct {
	// Op names the operation, e.g. "rectify" or "order".
	Op string

	// Kind is one of the package sentinels.
	Kind error

	// Msg is a human-readable detail.
	Msg string

	// Err is an optional underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// NoDocument builds an ErrNoDocumentFound error.
func NoDocument(op, format string, args ...interface{}) error {
	return &Error{Op: op, Kind: ErrNoDocumentFound, Msg: fmt.Sprintf(format, args...)}
}

// Degenerate builds an ErrDegenerateGeometry error.
func Degenerate(op, format string, args ...interface{}) error {
	return &Error{Op: op, Kind: ErrDegenerateGeometry, Msg: fmt.Sprintf(format, args...)}
}

// Invalid builds an ErrInvalidInput error.
func Invalid(op, format string, args ...interface{}) error {
	return &Error{Op: op, Kind: ErrInvalidInput, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a new error of the given kind.
func Wrap(op string, kind error, msg string, cause error) error {
	return &Error{Op: op, Kind: kind, Msg: msg, Err: cause}
}

// KindOf returns the sentinel kind wrapped by err, or nil if err carries none.
func KindOf(err error) error {
	for _, kind := range []error{ErrNoDocumentFound, ErrDegenerateGeometry, ErrInvalidInput} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
