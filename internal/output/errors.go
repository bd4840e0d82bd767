package output

import (
	"errors"
	"fmt"
)

// Error is a structured error with code, message, and optional hint.
type Error struct {
	Code    string
	Message string
	Hint    string
	Cause   error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Hint)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *Error) ExitCode() int {
	return ExitCodeFor(e.Code)
}

// Error constructors for common cases.

func ErrUsage(msg string) *Error {
	return &Error{Code: CodeUsage, Message: msg}
}

func ErrUsageHint(msg, hint string) *Error {
	return &Error{Code: CodeUsage, Message: msg, Hint: hint}
}

func ErrExport(path string, cause error) *Error {
	return &Error{
		Code:    CodeExport,
		Message: fmt.Sprintf("Export to %s failed", path),
		Hint:    "Check that the directory exists and is writable",
		Cause:   cause,
	}
}

func ErrBusy() *Error {
	return &Error{
		Code:    CodeBusy,
		Message: "A scan is already in progress",
		Hint:    "Wait for it to finish and try again",
	}
}

// ErrFindings reports that the worst severity reached the failure threshold.
// summary is the report summary line.
func ErrFindings(worst, summary string) *Error {
	return &Error{
		Code:    CodeFindings,
		Message: fmt.Sprintf("Report contains %s findings (%s)", worst, summary),
	}
}

func ErrInternal(cause error) *Error {
	return &Error{
		Code:    CodeInternal,
		Message: cause.Error(),
		Cause:   cause,
	}
}

// AsError attempts to convert an error to an *Error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal(err)
}
