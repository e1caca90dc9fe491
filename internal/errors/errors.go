// Package errors provides standardized domain errors with codes for the playback core.
//
// Usage:
//
//	// In services - return typed errors
//	if b == nil {
//	    return errors.FileUnavailable("bookmark points at a missing file")
//	}
//
//	// At the session boundary - check with errors.Is
//	if errors.Is(err, errors.ErrFileUnavailable) {
//	    // abort the navigation, leave state untouched
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the playback core.
const (
	// CodeEngineLoad means the engine could not load a file or playlist.
	// The session degrades to Stopped; the caller decides whether to retry.
	CodeEngineLoad Code = "ENGINE_LOAD"
	// CodeFileUnavailable means a catalog entry has no engine mapping
	// (the file was missing on disk when the playlist was built).
	CodeFileUnavailable Code = "FILE_UNAVAILABLE"
	// CodeInvalidNavigation means a navigation request was rejected
	// (e.g. loop end before loop start). State is unchanged.
	CodeInvalidNavigation Code = "INVALID_NAVIGATION"
	// CodeStateLoad means persisted playback state was inconsistent with
	// the current file list and was reset to the start of the book.
	CodeStateLoad Code = "STATE_LOAD"
	// CodeOsAction means an OS-level sleep timer command failed.
	CodeOsAction Code = "OS_ACTION"
	// CodeMetadataProbe means a single file failed duration probing.
	CodeMetadataProbe Code = "METADATA_PROBE"

	CodeNotFound   Code = "NOT_FOUND"
	CodeValidation Code = "VALIDATION"
	CodeInternal   Code = "INTERNAL"
)

// Severity classifies how an error should surface to the session owner.
type Severity int

const (
	// SeverityRecoverable errors are reported and the session continues.
	SeverityRecoverable Severity = iota
	// SeveritySession errors end or degrade the active session.
	SeveritySession
	// SeverityBackground errors are logged only; their absence of a
	// result is the only observable effect.
	SeverityBackground
)

// Severity returns how errors with this code propagate.
func (c Code) Severity() Severity {
	switch c {
	case CodeEngineLoad:
		return SeveritySession
	case CodeMetadataProbe, CodeOsAction:
		return SeverityBackground
	default:
		return SeverityRecoverable
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code
	Message string
	Details any
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Severity returns the severity for this error's code.
func (e *Error) Severity() Severity {
	return e.Code.Severity()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrEngineLoad        = &Error{Code: CodeEngineLoad, Message: "engine load failure"}
	ErrFileUnavailable   = &Error{Code: CodeFileUnavailable, Message: "file unavailable"}
	ErrInvalidNavigation = &Error{Code: CodeInvalidNavigation, Message: "invalid navigation"}
	ErrStateLoad         = &Error{Code: CodeStateLoad, Message: "persisted state inconsistent"}
	ErrOsAction          = &Error{Code: CodeOsAction, Message: "os action failure"}
	ErrMetadataProbe     = &Error{Code: CodeMetadataProbe, Message: "metadata probe failure"}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal          = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// EngineLoad creates an engine load failure error.
func EngineLoad(msg string) *Error {
	return &Error{Code: CodeEngineLoad, Message: msg}
}

// EngineLoadf creates an engine load failure error with formatted message.
func EngineLoadf(format string, args ...any) *Error {
	return &Error{Code: CodeEngineLoad, Message: fmt.Sprintf(format, args...)}
}

// FileUnavailable creates a file unavailable error.
func FileUnavailable(msg string) *Error {
	return &Error{Code: CodeFileUnavailable, Message: msg}
}

// FileUnavailablef creates a file unavailable error with formatted message.
func FileUnavailablef(format string, args ...any) *Error {
	return &Error{Code: CodeFileUnavailable, Message: fmt.Sprintf(format, args...)}
}

// InvalidNavigation creates an invalid navigation error.
func InvalidNavigation(msg string) *Error {
	return &Error{Code: CodeInvalidNavigation, Message: msg}
}

// StateLoad creates a state load inconsistency error.
func StateLoad(msg string) *Error {
	return &Error{Code: CodeStateLoad, Message: msg}
}

// StateLoadf creates a state load inconsistency error with formatted message.
func StateLoadf(format string, args ...any) *Error {
	return &Error{Code: CodeStateLoad, Message: fmt.Sprintf(format, args...)}
}

// OsAction creates an OS action failure error.
func OsAction(msg string) *Error {
	return &Error{Code: CodeOsAction, Message: msg}
}

// MetadataProbe creates a metadata probe failure error.
func MetadataProbe(msg string) *Error {
	return &Error{Code: CodeMetadataProbe, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
