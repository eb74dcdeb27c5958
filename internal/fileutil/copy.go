package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SourceError reports a failure on the reading side of a copy. Failures on
// the destination are returned as plain errors.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// IsSourceError checks if an error is, or wraps, a SourceError
func IsSourceError(err error) bool {
	var target *SourceError
	return errors.As(err, &target)
}

// sourceReader tags read errors so io.Copy failures can be attributed.
type sourceReader struct {
	f   *os.File
	err error
}

func (r *sourceReader) Read(p []byte) (int, error) {
	n, err := r.f.Read(p)
	if err != nil && err != io.EOF {
		r.err = err
	}
	return n, err
}

// CopyFile copies the regular file src to dst, creating parent directories as
// needed. The destination is truncated if it exists and receives the source's
// permission bits.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return &SourceError{Path: src, Err: err}
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return &SourceError{Path: src, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &SourceError{Path: src, Err: errors.New("not a regular file")}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	reader := &sourceReader{f: in}
	if _, err := io.Copy(out, reader); err != nil {
		out.Close()
		if reader.err != nil {
			return &SourceError{Path: src, Err: reader.err}
		}
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}

	// OpenFile applies the umask; restore the exact source bits
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", dst, err)
	}
	return nil
}

// Exists reports whether path exists (following symlinks).
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
