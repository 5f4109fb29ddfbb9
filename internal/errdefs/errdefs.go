// Package errdefs defines the error kinds surfaced by the storage adapter.
package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals that the requested object does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable signals a transport failure, a malformed response,
	// an exhausted retry budget, or a capability the remote service has
	// disabled for the supplied credentials.
	ErrUnavailable = errors.New("service unavailable")
)

// Newf joins the base kind with a formatted detail error.
func Newf(base error, format string, args ...any) error {
	return errors.Join(base, fmt.Errorf(format, args...))
}

// NewE joins the base kind with err, preserving err as the root cause.
// A nil err, or one that already carries the kind, is returned as is.
func NewE(base error, err error) error {
	if err == nil || errors.Is(err, base) {
		return err
	}
	return errors.Join(base, err)
}

// IsNotFound reports whether err carries the ErrNotFound kind.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnavailable reports whether err carries the ErrUnavailable kind.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
