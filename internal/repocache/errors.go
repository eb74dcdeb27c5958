package repocache

import (
	"errors"
	"fmt"
	"strings"
)

// TransportError is returned by a Transport when a clone attempt fails.
// Permanent errors (repository not found, authentication failure) are not
// retried.
type TransportError struct {
	Permanent bool
	Output    string
	Err       error
}

func (e *TransportError) Error() string {
	msg := e.Err.Error()
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// CloneFailedError reports a repository that could not be cloned after all
// attempts.
type CloneFailedError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *CloneFailedError) Error() string {
	return fmt.Sprintf("clone %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *CloneFailedError) Unwrap() error {
	return e.Err
}

// IsCloneFailed checks if an error is, or wraps, a CloneFailedError
func IsCloneFailed(err error) bool {
	var target *CloneFailedError
	return errors.As(err, &target)
}

// IsPermanent reports whether err is a transport error that retrying cannot fix.
func IsPermanent(err error) bool {
	var target *TransportError
	return errors.As(err, &target) && target.Permanent
}
