// Package errors provides the structured error type every public ufs
// operation returns, adapted from objectfs's pkg/errors.ObjectFSError down
// to the fields the engine actually populates.
package errors

import (
	"fmt"
	"time"

	"github.com/ufs/ufs/ufsdefs"
)

// UFSError is a structured error carrying the legacy StatusCode alongside
// richer, source-level context.
type UFSError struct {
	Code      ufsdefs.StatusCode
	Message   string
	Cause     error
	Component string
	Operation string
	Timestamp time.Time
	Retryable bool
}

// Error implements the error interface.
func (e *UFSError) Error() string {
	if e.Component != "" && e.Operation != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Component, e.Operation, e.Code, e.Message)
	}
	if e.Component != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Component, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *UFSError) Unwrap() error { return e.Cause }

// Is matches another *UFSError by status code, so sentinel comparisons via
// errors.Is(err, New(ufsdefs.AlreadyExists, "")) work without inspecting
// messages.
func (e *UFSError) Is(target error) bool {
	other, ok := target.(*UFSError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// New creates a UFSError with the given status code and message, tagged
// retryable per isRetryableByDefault(code).
func New(code ufsdefs.StatusCode, message string) *UFSError {
	return &UFSError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Retryable: isRetryableByDefault(code),
	}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(code ufsdefs.StatusCode, format string, args ...interface{}) *UFSError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches a cause and component/operation tags to a UFSError.
func Wrap(code ufsdefs.StatusCode, component, operation string, cause error) *UFSError {
	e := New(code, cause.Error())
	e.Component = component
	e.Operation = operation
	e.Cause = cause
	return e
}

// WithComponent returns a copy of e tagged with component/operation, for
// call sites that want to annotate a shared sentinel without mutating it.
func (e *UFSError) WithComponent(component, operation string) *UFSError {
	cp := *e
	cp.Component = component
	cp.Operation = operation
	return &cp
}

// StatusOf extracts the StatusCode carried by err, or UnknownError if err is
// not a *UFSError (or is nil, in which case NoError is returned).
func StatusOf(err error) ufsdefs.StatusCode {
	if err == nil {
		return ufsdefs.NoError
	}
	if ue, ok := err.(*UFSError); ok {
		return ue.Code
	}
	return ufsdefs.UnknownError
}

// isRetryableByDefault mirrors the teacher's IsRetryableByDefault, narrowed
// to the codes a UFS operation can actually produce: only a failed sync and
// an unknown (lower-level I/O) error are worth retrying, per spec.md §7's
// error-band classification.
func isRetryableByDefault(code ufsdefs.StatusCode) bool {
	switch code {
	case ufsdefs.ImageCouldNotSync, ufsdefs.UnknownError:
		return true
	default:
		return false
	}
}
