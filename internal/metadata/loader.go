package metadata

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harrison/paircorpus/internal/fileutil"
	"github.com/harrison/paircorpus/internal/models"
)

// DemoDirName is the metadata subdirectory holding the demo subset.
const DemoDirName = "demo"

// Extensions lists the metadata file extensions picked up by Discover.
var Extensions = []string{".json", ".yaml", ".yml"}

// Discover returns every metadata file under dir in sorted order. Hidden
// directories and JSON schema documents (*.schema.json) are skipped.
func Discover(dir string) ([]string, error) {
	return discover(dir, nil)
}

// DiscoverFull is Discover minus the demo subdirectory, which only holds a
// subset of pairs already declared elsewhere.
func DiscoverFull(dir string) ([]string, error) {
	return discover(dir, []string{DemoDirName})
}

// DiscoverDemo returns the files in <dir>/demo when that directory exists,
// and falls back to DiscoverFull otherwise.
func DiscoverDemo(dir string) ([]string, error) {
	demoDir := filepath.Join(dir, DemoDirName)
	if info, err := os.Stat(demoDir); err == nil && info.IsDir() {
		return discover(demoDir, nil)
	}
	return DiscoverFull(dir)
}

func discover(dir string, exclude []string) ([]string, error) {
	result, err := fileutil.ScanDirectory(dir, fileutil.ScanOptions{
		Extensions:      Extensions,
		ExcludeSuffixes: []string{".schema.json"},
		ExcludeDirs:     exclude,
		Recursive:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover metadata in %s: %w", dir, err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("failed to discover metadata in %s: %w", dir, result.Errors[0])
	}
	return result.Files, nil
}

// Load decodes, validates and resolves the given metadata files. Any
// validation, merge or duplicate error aborts the load: the returned error
// is a *LoadError listing all of them and no pairs are returned.
func Load(paths []string) ([]models.ResolvedPair, error) {
	var docs []Document
	var errs []error
	for _, p := range paths {
		doc, err := Decode(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		docs = append(docs, doc)
	}

	pairs, err := LoadDocuments(docs)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			errs = append(errs, loadErr.Errors...)
		} else {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, &LoadError{Errors: errs}
	}
	return pairs, nil
}

// LoadDocuments resolves already-decoded documents. Pairs keep file order
// and in-file order.
func LoadDocuments(docs []Document) ([]models.ResolvedPair, error) {
	var pairs []models.ResolvedPair
	var errs []error

	for _, doc := range docs {
		resolved, resolveErrs := Resolve(doc)
		errs = append(errs, resolveErrs...)
		pairs = append(pairs, resolved...)
	}

	errs = append(errs, FindDuplicates(pairs)...)

	if len(errs) > 0 {
		return nil, &LoadError{Errors: errs}
	}
	return pairs, nil
}

// FindDuplicates reports every pair whose program name was already used by
// an earlier pair, within one file or across files.
func FindDuplicates(pairs []models.ResolvedPair) []error {
	var errs []error
	first := make(map[string]int)
	for i, pair := range pairs {
		if j, seen := first[pair.ProgramName]; seen {
			errs = append(errs, &DuplicateProgramNameError{
				ProgramName: pair.ProgramName,
				First:       Location{File: pairs[j].SourceFile, Index: pairs[j].SourceIndex},
				Second:      Location{File: pair.SourceFile, Index: pair.SourceIndex},
			})
			continue
		}
		first[pair.ProgramName] = i
	}
	return errs
}
