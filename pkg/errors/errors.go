// Package errors provides structured error types for archviz.
//
// Every failure the authoring surface and the renderer can produce carries a
// machine-readable [Code], so callers can tell a programming mistake (a node
// created in a closed scope) from an environmental one (Graphviz missing)
// without matching on strings.
//
// # Error Codes
//
//   - SCOPE_ERROR: element constructed outside an open scope, or a scope
//     closed out of order
//   - DANGLING_REFERENCE: edge endpoint not registered in the diagram
//   - ICON_RESOLUTION: unknown category/icon pair
//   - RENDER_ERROR: the layout engine failed or produced no output
//   - INVALID_*: input validation failures
//   - UNSUPPORTED: the engine lacks a capability the diagram needs
//
// # Usage
//
//	err := errors.New(errors.ErrCodeScope, "cluster %q is closed", label)
//	if errors.Is(err, errors.ErrCodeScope) {
//	    // Handle authoring mistake
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeRender, origErr, "render %s", format)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Authoring errors
	ErrCodeScope             Code = "SCOPE_ERROR"
	ErrCodeDanglingReference Code = "DANGLING_REFERENCE"

	// Serialization and rendering errors
	ErrCodeIconResolution Code = "ICON_RESOLUTION"
	ErrCodeRender         Code = "RENDER_ERROR"

	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidFormat   Code = "INVALID_FORMAT"
	ErrCodeInvalidDocument Code = "INVALID_DOCUMENT"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code,
// so a RENDER_ERROR wrapping an ICON_RESOLUTION error matches both.
func Is(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the outermost error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
