package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harrison/paircorpus/internal/extract"
	"github.com/harrison/paircorpus/internal/models"
)

// processPair drives one pair through Pending, Cloning, Extracting and Done.
// Pair-scoped failures are returned in the result; the error return is
// reserved for fatal IOErrors.
func (b *Builder) processPair(ctx context.Context, pair models.ResolvedPair, outputRoot, stagingRoot string) (models.PairResult, error) {
	start := time.Now()
	result := models.PairResult{ProgramName: pair.ProgramName, State: models.StatePending}
	b.logger.LogPairStart(pair)

	fail := func(stage models.PairState, err error) (models.PairResult, error) {
		perr := &PairError{ProgramName: pair.ProgramName, Stage: stage, Err: err}
		result.Status = models.StatusFailed
		result.State = models.StateFailed
		result.Reason = fmt.Sprintf("%s: %v", stage, err)
		result.Error = perr
		result.Duration = time.Since(start)
		b.logger.LogPairState(pair.ProgramName, models.StateFailed)
		return result, nil
	}
	fatal := func(err *IOError) (models.PairResult, error) {
		result.Status = models.StatusFailed
		result.State = models.StateFailed
		result.Reason = err.Error()
		result.Error = err
		result.Duration = time.Since(start)
		return result, err
	}

	if err := pair.Validate(); err != nil {
		return fail(models.StatePending, err)
	}

	b.setState(&result, models.StateCloning)
	checkouts := make(map[models.Language]string, len(models.Languages))
	for _, lang := range models.Languages {
		path, err := b.cache.Acquire(ctx, pair.Side(lang).RepositoryURL)
		if err != nil {
			return fail(models.StateCloning, fmt.Errorf("%s repository: %w", lang.DisplayName(), err))
		}
		checkouts[lang] = path
	}

	b.setState(&result, models.StateExtracting)
	staging, err := os.MkdirTemp(stagingRoot, pair.ProgramName+"-")
	if err != nil {
		return fatal(&IOError{Op: "create staging dir for", Path: pair.ProgramName, Err: err})
	}
	defer os.RemoveAll(staging)

	for _, lang := range models.Languages {
		n, err := b.extractor.Extract(ctx, extract.Request{
			ProgramName: pair.ProgramName,
			Language:    lang,
			Checkout:    checkouts[lang],
			SourcePaths: pair.Side(lang).SourcePaths,
			Destination: filepath.Join(staging, lang.OutputDir()),
		})
		if err != nil {
			if extract.IsCopyError(err) {
				return fatal(&IOError{Op: "write", Path: filepath.Join(outputRoot, pair.ProgramName), Err: err})
			}
			return fail(models.StateExtracting, err)
		}
		if n == 0 {
			b.logger.LogWarn(fmt.Sprintf("Pair %s: no %s source files matched", pair.ProgramName, lang.DisplayName()))
		}
		if lang == models.LanguageC {
			result.CFiles = n
		} else {
			result.RustFiles = n
		}
	}

	final := filepath.Join(outputRoot, pair.ProgramName)
	if err := commit(staging, final); err != nil {
		return fatal(err)
	}

	if b.inventory != nil {
		result.CInventory = b.scan(pair.ProgramName, final, models.LanguageC)
		result.RustInventory = b.scan(pair.ProgramName, final, models.LanguageRust)
	}

	result.Status = models.StatusSucceeded
	result.Duration = time.Since(start)
	b.setState(&result, models.StateDone)
	return result, nil
}

func (b *Builder) setState(result *models.PairResult, state models.PairState) {
	result.State = state
	b.logger.LogPairState(result.ProgramName, state)
}

func (b *Builder) scan(name, final string, lang models.Language) *models.SourceInventory {
	inv, err := b.inventory.Scan(filepath.Join(final, lang.OutputDir()), lang)
	if err != nil {
		b.logger.LogWarn(fmt.Sprintf("Pair %s: %s inventory failed: %v", name, lang.DisplayName(), err))
		return nil
	}
	return &inv
}

// commit replaces final with staging. An existing output is moved aside
// first and removed only after the new tree is in place, so a failure never
// leaves a half-written pair directory.
func commit(staging, final string) *IOError {
	for _, lang := range models.Languages {
		if err := os.MkdirAll(filepath.Join(staging, lang.OutputDir()), 0755); err != nil {
			return &IOError{Op: "create", Path: filepath.Join(staging, lang.OutputDir()), Err: err}
		}
	}

	previous := staging + ".previous"
	hadPrevious := false
	if _, err := os.Lstat(final); err == nil {
		if err := os.Rename(final, previous); err != nil {
			return &IOError{Op: "move aside", Path: final, Err: err}
		}
		hadPrevious = true
	} else if !errors.Is(err, os.ErrNotExist) {
		return &IOError{Op: "stat", Path: final, Err: err}
	}

	if err := os.Rename(staging, final); err != nil {
		if hadPrevious {
			os.Rename(previous, final)
		}
		return &IOError{Op: "commit", Path: final, Err: err}
	}
	if hadPrevious {
		if err := os.RemoveAll(previous); err != nil {
			return &IOError{Op: "remove previous", Path: previous, Err: err}
		}
	}
	return nil
}
