package parser

import "errors"

var (
	// ErrInvalidFormat is returned for input a parser cannot decode.
	ErrInvalidFormat = errors.New("invalid input format")

	// ErrUnsupportedFormat is returned when no parser handles the format.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrInvalidStackFrame marks a sample whose frames cannot be resolved.
	ErrInvalidStackFrame = errors.New("invalid stack frame")

	// ErrSampleTypeNotFound is returned when a pprof profile lacks the
	// requested sample type.
	ErrSampleTypeNotFound = errors.New("sample type not found")
)
