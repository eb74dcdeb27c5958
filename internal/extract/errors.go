package extract

import (
	"errors"
	"fmt"

	"github.com/harrison/paircorpus/internal/models"
)

// MissingSourcePathError reports a declared source path that does not exist
// in the checkout.
type MissingSourcePathError struct {
	ProgramName string
	Language    models.Language
	Path        string
}

func (e *MissingSourcePathError) Error() string {
	return fmt.Sprintf("%s: %s source path %q does not exist in the repository", e.ProgramName, e.Language.DisplayName(), e.Path)
}

// UnsafePathError reports a declared source path that resolves outside the
// checkout, usually through a symlink.
type UnsafePathError struct {
	ProgramName string
	Language    models.Language
	Path        string
	Target      string
}

func (e *UnsafePathError) Error() string {
	return fmt.Sprintf("%s: %s source path %q resolves outside the repository (%s)", e.ProgramName, e.Language.DisplayName(), e.Path, e.Target)
}

// CopyError reports a local filesystem failure while writing extracted files.
type CopyError struct {
	Src string
	Dst string
	Err error
}

func (e *CopyError) Error() string {
	return fmt.Sprintf("copy %s -> %s: %v", e.Src, e.Dst, e.Err)
}

func (e *CopyError) Unwrap() error {
	return e.Err
}

// IsMissingSourcePath checks if an error is, or wraps, a MissingSourcePathError
func IsMissingSourcePath(err error) bool {
	var target *MissingSourcePathError
	return errors.As(err, &target)
}

// IsUnsafePath checks if an error is, or wraps, an UnsafePathError
func IsUnsafePath(err error) bool {
	var target *UnsafePathError
	return errors.As(err, &target)
}

// IsCopyError checks if an error is, or wraps, a CopyError
func IsCopyError(err error) bool {
	var target *CopyError
	return errors.As(err, &target)
}
