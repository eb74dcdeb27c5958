package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/paircorpus/internal/models"
)

// SelectDemo picks the deterministic demo subset. With an allow-list, the
// named pairs are returned in load order and an unknown name is an error.
// Otherwise the first limit pairs in load order are returned.
func SelectDemo(pairs []models.ResolvedPair, allow []string, limit int) ([]models.ResolvedPair, error) {
	if len(allow) > 0 {
		wanted := make(map[string]bool, len(allow))
		for _, name := range allow {
			wanted[name] = true
		}
		var selected []models.ResolvedPair
		for _, pair := range pairs {
			if wanted[pair.ProgramName] {
				selected = append(selected, pair)
				delete(wanted, pair.ProgramName)
			}
		}
		if len(wanted) > 0 {
			var missing []string
			for _, name := range allow {
				if wanted[name] {
					missing = append(missing, name)
				}
			}
			return nil, fmt.Errorf("demo programs not found in metadata: %s", strings.Join(missing, ", "))
		}
		return selected, nil
	}

	if limit < 1 {
		return nil, fmt.Errorf("demo limit must be at least 1, got %d", limit)
	}
	if limit > len(pairs) {
		limit = len(pairs)
	}
	return append([]models.ResolvedPair(nil), pairs[:limit]...), nil
}

// Purger removes a repository cache.
type Purger interface {
	Purge() error
}

// Delete removes the output root and the repository cache. Roots that do
// not exist are not an error.
func Delete(outputRoot string, cache Purger) error {
	abs, err := filepath.Abs(outputRoot)
	if err != nil {
		return fmt.Errorf("failed to resolve output root: %w", err)
	}
	if err := os.RemoveAll(abs); err != nil {
		return &IOError{Op: "remove", Path: abs, Err: err}
	}
	if cache != nil {
		if err := cache.Purge(); err != nil {
			return &IOError{Op: "purge", Path: "repository cache", Err: err}
		}
	}
	return nil
}
