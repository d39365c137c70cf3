// Package errors defines the structured error type returned across package
// boundaries.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// Error codes.
const (
	CodeUnknown         = "UNKNOWN_ERROR"
	CodeConfigError     = "CONFIG_ERROR"
	CodeInvalidInput    = "INVALID_INPUT"
	CodeUnknownAnalyzer = "UNKNOWN_ANALYZER"
	CodeUnknownFormat   = "UNKNOWN_FORMAT"
	CodeParseError      = "PARSE_ERROR"
	CodeExportError     = "EXPORT_ERROR"
	CodeStorageError    = "STORAGE_ERROR"
	CodeDatabaseError   = "DATABASE_ERROR"
	CodeMalformedChain  = "MALFORMED_CHAIN"
)

// AppError represents an application error with a code and message.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError.
func New(code string, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message.
func Newf(code string, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Sentinels for errors.Is checks by code.
var (
	ErrConfigError     = New(CodeConfigError, "configuration error")
	ErrInvalidInput    = New(CodeInvalidInput, "invalid input")
	ErrUnknownAnalyzer = New(CodeUnknownAnalyzer, "unknown analyzer")
	ErrUnknownFormat   = New(CodeUnknownFormat, "unknown format")
	ErrParseError      = New(CodeParseError, "parse error")
	ErrExportError     = New(CodeExportError, "export error")
	ErrStorageError    = New(CodeStorageError, "storage error")
	ErrDatabaseError   = New(CodeDatabaseError, "database error")
	ErrMalformedChain  = New(CodeMalformedChain, "malformed stack chain")
)

// IsValidationError reports whether err should be reported as a rejected
// configuration rather than a failed run.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrConfigError) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnknownAnalyzer) ||
		errors.Is(err, ErrUnknownFormat)
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitInterrupted = 130
)

// ExitCode maps err to the status the CLI exits with. Rejected
// configuration is a usage error; an interrupted run exits as SIGINT would.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case IsValidationError(err):
		return ExitUsage
	default:
		return ExitFailure
	}
}
