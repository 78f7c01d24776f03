package models

import (
	"fmt"
	"strings"
)

// Kind classifies a failure. Kinds are themselves errors so they can be
// used as errors.Is targets.
type Kind string

const (
	// ErrConfiguration means required metadata (affine, resolution) is absent or malformed
	ErrConfiguration Kind = "configuration error"

	// ErrSchema means an annotation document is missing its ROI key or has a malformed record
	ErrSchema Kind = "schema error"

	// ErrUnsupportedFormat means the image extension is not handled by any provider
	ErrUnsupportedFormat Kind = "unsupported format"

	// ErrDomain means a zero or negative physical dimension makes normalization undefined
	ErrDomain Kind = "domain error"

	// ErrIO means a filesystem read or write failed
	ErrIO Kind = "io error"
)

func (k Kind) Error() string {
	return string(k)
}

// Error is a classified failure with the operation and file it happened in
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

// NewError builds a classified error. err may be nil.
func NewError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Errorf builds a classified error from a format string
func Errorf(kind Kind, op, path, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error's Kind
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}
