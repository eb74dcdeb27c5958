package builder

import (
	"errors"
	"fmt"

	"github.com/harrison/paircorpus/internal/models"
)

// ErrCanceled is recorded as the reason of pairs that never started
// because the run was canceled.
var ErrCanceled = errors.New("canceled before start")

// PairError is the failure of one pair. It never aborts the run.
type PairError struct {
	ProgramName string
	Stage       models.PairState // stage that failed: pending (invalid pair), cloning or extracting
	Err         error
}

func (e *PairError) Error() string {
	return fmt.Sprintf("pair %s failed while %s: %v", e.ProgramName, e.Stage, e.Err)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *PairError) Unwrap() error {
	return e.Err
}

// IOError is a local filesystem failure while writing the output tree.
// It is fatal for the run: no pair can succeed on a failing filesystem.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *IOError) Unwrap() error {
	return e.Err
}

// IsIOError checks if an error is, or wraps, an IOError
func IsIOError(err error) bool {
	var target *IOError
	return errors.As(err, &target)
}

// IsPairError checks if an error is, or wraps, a PairError
func IsPairError(err error) bool {
	var target *PairError
	return errors.As(err, &target)
}
