// Package builder materializes resolved pairs into the output tree. Pairs are
// processed by a bounded worker pool; a failing pair is recorded in the run
// report and never stops the others.
package builder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/paircorpus/internal/extract"
	"github.com/harrison/paircorpus/internal/models"
)

// StagingDirName is the directory under the output root where pairs are
// assembled before being renamed into place. Program names cannot start
// with a dot, so it never collides with a pair.
const StagingDirName = ".staging"

// Cache resolves a repository URL to a local checkout.
type Cache interface {
	Acquire(ctx context.Context, url string) (string, error)
}

// Extractor copies one program side out of a checkout.
type Extractor interface {
	Extract(ctx context.Context, req extract.Request) (int, error)
}

// Inventory summarizes the sources of a materialized program side.
type Inventory interface {
	Scan(dir string, lang models.Language) (models.SourceInventory, error)
}

// Logger receives run events.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogRunStart(mode string, total int)
	LogPairStart(pair models.ResolvedPair)
	LogPairState(name string, state models.PairState)
	LogPairResult(result models.PairResult)
	LogProgress(done, total int)
	LogSummary(report models.RunReport)
}

// Options configures one Build call.
type Options struct {
	Mode       string // models.ModeFull or models.ModeDemo
	OutputRoot string
	MaxWorkers int // 0 = number of CPUs
}

// Builder runs pairs through clone, extract and commit.
type Builder struct {
	cache     Cache
	extractor Extractor
	logger    Logger
	inventory Inventory
	signals   bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithInventory enables the per-side source inventory of succeeded pairs.
func WithInventory(inv Inventory) Option {
	return func(b *Builder) {
		b.inventory = inv
	}
}

// WithSignalHandling cancels the run on SIGINT or SIGTERM.
func WithSignalHandling() Option {
	return func(b *Builder) {
		b.signals = true
	}
}

// New creates a Builder.
func New(cache Cache, extractor Extractor, logger Logger, opts ...Option) *Builder {
	b := &Builder{
		cache:     cache,
		extractor: extractor,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build materializes pairs under opts.OutputRoot. The returned report always
// lists every pair in input order. The error is non-nil only when the run
// itself stopped early: a fatal IOError or cancellation.
func (b *Builder) Build(ctx context.Context, pairs []models.ResolvedPair, opts Options) (*models.RunReport, error) {
	if opts.Mode != models.ModeFull && opts.Mode != models.ModeDemo {
		return nil, fmt.Errorf("unsupported build mode %q", opts.Mode)
	}
	outputRoot, err := filepath.Abs(opts.OutputRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output root: %w", err)
	}

	report := &models.RunReport{
		ID:         uuid.NewString(),
		Mode:       opts.Mode,
		OutputRoot: outputRoot,
		StartedAt:  time.Now(),
	}

	stagingRoot := filepath.Join(outputRoot, StagingDirName)
	// leftovers of an interrupted run are never valid output
	if err := os.RemoveAll(stagingRoot); err != nil {
		return nil, &IOError{Op: "clean", Path: stagingRoot, Err: err}
	}
	if err := os.MkdirAll(stagingRoot, 0755); err != nil {
		return nil, &IOError{Op: "create", Path: stagingRoot, Err: err}
	}
	defer os.RemoveAll(stagingRoot)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var interrupted bool
	var interruptMu sync.Mutex
	if b.signals {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		go func() {
			select {
			case <-sigChan:
				interruptMu.Lock()
				interrupted = true
				interruptMu.Unlock()
				b.logger.LogWarn("Received interrupt signal, shutting down gracefully...")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	b.logger.LogRunStart(opts.Mode, len(pairs))
	b.logger.LogInfo(fmt.Sprintf("%d pair(s) reference %d distinct repositories", len(pairs), len(models.RepositoryURLs(pairs))))

	results, fatalErr := b.runPool(ctx, cancel, pairs, outputRoot, stagingRoot, opts.MaxWorkers)
	report.Results = results
	report.FinishedAt = time.Now()

	b.logger.LogSummary(*report)

	if fatalErr != nil {
		return report, fatalErr
	}
	interruptMu.Lock()
	defer interruptMu.Unlock()
	if interrupted {
		return report, fmt.Errorf("run interrupted: %w", context.Canceled)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

type pairOutcome struct {
	index  int
	result models.PairResult
	err    error
}

// runPool fans pairs out over at most maxWorkers goroutines. A fatal error
// cancels the remaining work; pairs that never started are reported as
// failed with ErrCanceled.
func (b *Builder) runPool(ctx context.Context, cancel context.CancelFunc, pairs []models.ResolvedPair, outputRoot, stagingRoot string, maxWorkers int) ([]models.PairResult, error) {
	total := len(pairs)
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	if maxWorkers > total {
		maxWorkers = total
	}
	if maxWorkers == 0 {
		maxWorkers = 1
	}

	semaphore := make(chan struct{}, maxWorkers)
	outcomes := make(chan pairOutcome, total)
	launched := make([]bool, total)

	var wg sync.WaitGroup

launch:
	for i, pair := range pairs {
		select {
		case <-ctx.Done():
			break launch
		case semaphore <- struct{}{}:
		}
		// a slot may free up after cancellation; don't start new work then
		if ctx.Err() != nil {
			<-semaphore
			break launch
		}

		launched[i] = true
		wg.Add(1)
		go func(i int, pair models.ResolvedPair) {
			defer wg.Done()
			defer func() { <-semaphore }()

			result, err := b.processPair(ctx, pair, outputRoot, stagingRoot)
			if err != nil {
				// stop launching before this slot is released
				cancel()
			}
			outcomes <- pairOutcome{index: i, result: result, err: err}
		}(i, pair)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	results := make([]models.PairResult, total)
	var fatalErr error
	done := 0
	for outcome := range outcomes {
		results[outcome.index] = outcome.result
		if outcome.err != nil && fatalErr == nil {
			fatalErr = outcome.err
			b.logger.LogWarn(fmt.Sprintf("Aborting run: %v", outcome.err))
		}
		done++
		b.logger.LogPairResult(outcome.result)
		b.logger.LogProgress(done, total)
	}

	for i, pair := range pairs {
		if launched[i] {
			continue
		}
		results[i] = models.PairResult{
			ProgramName: pair.ProgramName,
			Status:      models.StatusFailed,
			State:       models.StatePending,
			Reason:      ErrCanceled.Error(),
			Error:       ErrCanceled,
		}
	}

	return results, fatalErr
}
