// Package extract copies declared source files and directories out of a
// repository checkout into a program side's output directory.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/harrison/paircorpus/internal/fileutil"
	"github.com/harrison/paircorpus/internal/models"
)

// DefaultExcludeDirs are never descended into when copying a directory.
var DefaultExcludeDirs = []string{".git"}

// DefaultExtensions returns the extensions kept when a directory is copied:
// every source extension of every supported language.
func DefaultExtensions() []string {
	var exts []string
	for _, lang := range models.Languages {
		exts = append(exts, lang.SourceExtensions()...)
	}
	return exts
}

// Request describes one program side to extract.
type Request struct {
	ProgramName string
	Language    models.Language
	Checkout    string   // repository checkout root
	SourcePaths []string // slash-separated, relative to Checkout
	Destination string   // e.g. <output>/<program>/c-program
}

// Extractor copies sources out of checkouts.
type Extractor struct {
	extensions  []string
	excludeDirs []string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithExtensions overrides the directory extension filter.
func WithExtensions(exts ...string) Option {
	return func(x *Extractor) {
		x.extensions = exts
	}
}

// New creates an Extractor with the default extension filter.
func New(opts ...Option) *Extractor {
	x := &Extractor{
		extensions:  DefaultExtensions(),
		excludeDirs: DefaultExcludeDirs,
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Extract copies every source path of req into req.Destination and returns
// the number of distinct files written. Files keep their path relative to the
// checkout. Directory entries are filtered by extension; a path named
// explicitly as a file is always copied.
func (x *Extractor) Extract(ctx context.Context, req Request) (int, error) {
	root, err := filepath.Abs(req.Checkout)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve checkout %s: %w", req.Checkout, err)
	}
	root, err = filepath.EvalSymlinks(root)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve checkout %s: %w", req.Checkout, err)
	}

	c := &copier{req: req, copied: make(map[string]bool)}
	for _, declared := range req.SourcePaths {
		if err := ctx.Err(); err != nil {
			return c.count(), err
		}

		rel := filepath.Clean(filepath.FromSlash(declared))
		if !filepath.IsLocal(rel) {
			return c.count(), &UnsafePathError{ProgramName: req.ProgramName, Language: req.Language, Path: declared, Target: rel}
		}

		resolved, err := filepath.EvalSymlinks(filepath.Join(root, rel))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return c.count(), &MissingSourcePathError{ProgramName: req.ProgramName, Language: req.Language, Path: declared}
			}
			return c.count(), fmt.Errorf("failed to resolve %s: %w", declared, err)
		}
		if !within(root, resolved) {
			return c.count(), &UnsafePathError{ProgramName: req.ProgramName, Language: req.Language, Path: declared, Target: resolved}
		}

		info, err := os.Stat(resolved)
		if err != nil {
			return c.count(), fmt.Errorf("failed to stat %s: %w", declared, err)
		}

		switch {
		case info.Mode().IsRegular():
			if err := c.copy(resolved, filepath.Join(req.Destination, rel)); err != nil {
				return c.count(), err
			}
		case info.IsDir():
			if err := x.copyDir(ctx, c, root, resolved, filepath.Join(req.Destination, rel)); err != nil {
				return c.count(), err
			}
		default:
			return c.count(), fmt.Errorf("%s: %s source path %q is not a regular file or directory", req.ProgramName, req.Language.DisplayName(), declared)
		}
	}
	return c.count(), nil
}

// copyDir copies the matching files under src into dst. Symlinks are only
// copied when they resolve to a matching regular file inside root; symlinked
// directories are not followed.
func (x *Extractor) copyDir(ctx context.Context, c *copier, root, src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != src && slices.Contains(x.excludeDirs, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !x.matches(d.Name()) {
			return nil
		}

		source := path
		if d.Type()&fs.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(path)
			if err != nil || !within(root, target) {
				return nil
			}
			info, err := os.Stat(target)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
			source = target
		} else if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		return c.copy(source, filepath.Join(dst, rel))
	})
}

func (x *Extractor) matches(name string) bool {
	return slices.Contains(x.extensions, filepath.Ext(name))
}

// copier writes each destination at most once, so overlapping source paths
// such as "src" and "src/ls.c" count a file once.
type copier struct {
	req    Request
	copied map[string]bool
}

func (c *copier) count() int {
	return len(c.copied)
}

// copy returns a CopyError only for failures on the destination side. A
// source that cannot be read is a problem with the checkout, not the output.
func (c *copier) copy(src, dst string) error {
	if c.copied[dst] {
		return nil
	}
	if err := fileutil.CopyFile(src, dst); err != nil {
		if fileutil.IsSourceError(err) {
			return fmt.Errorf("%s: %s source: %w", c.req.ProgramName, c.req.Language.DisplayName(), err)
		}
		return &CopyError{Src: src, Dst: dst, Err: err}
	}
	c.copied[dst] = true
	return nil
}

// within reports whether path is root or lies beneath it.
func within(root, path string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
