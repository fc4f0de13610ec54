// Package errors defines the error taxonomy shared by all brewse packages.
// Failures are classified by wrapping one of the sentinel errors below so
// that callers can dispatch with errors.Is instead of string matching.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Error kinds.
var (
	// ErrNetwork covers transport and HTTP failures. The download layer
	// retries these internally before surfacing them.
	ErrNetwork = fmt.Errorf("network error")

	// ErrParse is returned for malformed catalog or command JSON. Not
	// retryable; the caller deletes the offending cached artifact.
	ErrParse = fmt.Errorf("parse error")

	// ErrCommand is returned when brew exits non-zero.
	ErrCommand = fmt.Errorf("brew command failed")

	// ErrLock is returned when brew reports that another instance holds its
	// lock. Retryable after a delay; surfaced to the UI as "busy", not as a
	// generic failure.
	ErrLock = fmt.Errorf("another brew process is running")

	// ErrAborted marks caller-initiated cancellation. It must never be
	// presented to the end user as a failure.
	ErrAborted = fmt.Errorf("operation aborted")

	// ErrSourceUnknown is returned for a catalog source name that is not
	// configured.
	ErrSourceUnknown = fmt.Errorf("unknown catalog source")

	// ErrInvalidPath is returned for empty or relative paths where an
	// absolute path is required.
	ErrInvalidPath = fmt.Errorf("invalid path")
)

// Config errors.
var (
	ErrEmptyConfigPath  = fmt.Errorf("config file path cannot be empty")
	ErrConfigParse      = fmt.Errorf("failed to parse config")
	ErrConfigValidation = fmt.Errorf("invalid configuration")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// IsAborted reports whether err represents cancellation, either brewse's own
// ErrAborted or a context error that bubbled up from the standard library.
func IsAborted(err error) bool {
	return stderrors.Is(err, ErrAborted) ||
		stderrors.Is(err, context.Canceled) ||
		stderrors.Is(err, context.DeadlineExceeded)
}

// IsLock reports whether err is the "another brew instance running" condition.
func IsLock(err error) bool {
	return stderrors.Is(err, ErrLock)
}
