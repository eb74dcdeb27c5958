package metadata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harrison/paircorpus/internal/models"
)

// ErrMissingPaths is wrapped by MergeError when a project pair declares no
// source paths for a side.
var ErrMissingPaths = errors.New("missing source paths")

// ValidationError reports a malformed or nonconforming metadata record.
// Index is the position in the "pairs" array, or -1 for document-level errors.
type ValidationError struct {
	File        string
	Index       int
	ProgramName string
	Pointer     string // JSON pointer to the offending field, e.g. /pairs/2/c_program/source_paths
	Message     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s%s: %s: %s", e.File, recordLabel(e.Index, e.ProgramName), e.Pointer, e.Message)
}

// MergeError reports a project pair that cannot be merged with the global
// project configuration.
type MergeError struct {
	File        string
	Index       int
	ProgramName string
	Side        models.Language
	Err         error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("%s%s: %s side: %v", e.File, recordLabel(e.Index, e.ProgramName), e.Side.DisplayName(), e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

// Location identifies one record in one metadata file.
type Location struct {
	File  string
	Index int
}

func (l Location) String() string {
	return fmt.Sprintf("%s[%d]", l.File, l.Index)
}

// DuplicateProgramNameError reports two records resolving to the same
// program name and therefore the same output directory.
type DuplicateProgramNameError struct {
	ProgramName string
	First       Location
	Second      Location
}

func (e *DuplicateProgramNameError) Error() string {
	return fmt.Sprintf("duplicate program_name %q: declared at %s and %s", e.ProgramName, e.First, e.Second)
}

// LoadError aggregates every load-time error found across all metadata files.
type LoadError struct {
	Errors []error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "metadata contains %d error(s):", len(e.Errors))
	for _, err := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *LoadError) Unwrap() []error {
	return e.Errors
}

func recordLabel(index int, name string) string {
	switch {
	case index < 0:
		return ""
	case name == "":
		return fmt.Sprintf(": pairs[%d]", index)
	default:
		return fmt.Sprintf(": pairs[%d] (%s)", index, name)
	}
}

// IsValidationError checks if an error is, or wraps, a ValidationError
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsMergeError checks if an error is, or wraps, a MergeError
func IsMergeError(err error) bool {
	var target *MergeError
	return errors.As(err, &target)
}

// IsDuplicateProgramName checks if an error is, or wraps, a DuplicateProgramNameError
func IsDuplicateProgramName(err error) bool {
	var target *DuplicateProgramNameError
	return errors.As(err, &target)
}
