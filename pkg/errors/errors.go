package errors

import (
	"errors"
	"fmt"
)

// Error kinds. Every kind is fatal to a run.
var (
	ErrConfig       = errors.New("configuration error")
	ErrInput        = errors.New("input error")
	ErrPersistence  = errors.New("persistence error")
	ErrOutput       = errors.New("output error")
	ErrInvalidInput = errors.New("invalid input")
	ErrTimeout      = errors.New("operation timed out")
)

// Error attaches a kind, the failing operation and, for input errors, the
// 1-indexed line number to an underlying cause.
type Error struct {
	Kind error
	Op   string
	Line int
	Err  error
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s (line %d): %v", e.Kind.Error(), e.Op, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind.Error(), e.Op, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func New(kind error, op string, err error) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		Err:  err,
	}
}

func AtLine(kind error, op string, line int, err error) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		Line: line,
		Err:  err,
	}
}

func Newf(kind error, op string, format string, args ...any) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		Err:  fmt.Errorf(format, args...),
	}
}

// LineOf returns the line number recorded anywhere in err's chain, or 0.
func LineOf(err error) int {
	var appErr *Error
	for errors.As(err, &appErr) {
		if appErr.Line > 0 {
			return appErr.Line
		}
		err = appErr.Err
	}
	return 0
}

// ExitCode maps an error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfig):
		return 2
	default:
		return 1
	}
}

// KindName returns a short label for logs and metrics.
func KindName(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrInput), errors.Is(err, ErrInvalidInput):
		return "input"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrOutput):
		return "output"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "internal"
	}
}
