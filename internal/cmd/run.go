package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/harrison/paircorpus/internal/builder"
	"github.com/harrison/paircorpus/internal/config"
	"github.com/harrison/paircorpus/internal/display"
	"github.com/harrison/paircorpus/internal/extract"
	"github.com/harrison/paircorpus/internal/filelock"
	"github.com/harrison/paircorpus/internal/history"
	"github.com/harrison/paircorpus/internal/inventory"
	"github.com/harrison/paircorpus/internal/logger"
	"github.com/harrison/paircorpus/internal/metadata"
	"github.com/harrison/paircorpus/internal/models"
	"github.com/harrison/paircorpus/internal/repocache"
	"github.com/harrison/paircorpus/internal/tui"
)

const (
	modeFull = models.ModeFull
	modeDemo = models.ModeDemo
)

// newTransport creates the clone transport; tests replace it with a local fake.
var newTransport = func(depth int) repocache.Transport {
	return repocache.NewGitTransport(depth)
}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Materialize every pair declared in the metadata directory",
		Long: `Materialize every pair declared in the metadata directory.

All metadata files are loaded and validated before anything is cloned; a
single invalid record aborts the run. Each repository is cloned once into
the cache and reused by every pair that references it. A pair that fails to
clone or extract is reported and the remaining pairs continue.

Configuration is loaded from .paircorpus/config.yaml if present.
CLI flags override configuration file settings.

Examples:
  paircorpus run
  paircorpus run --max-workers 8 --timeout 30m
  paircorpus run --metadata-dir ./metadata --output-dir ./programs
  paircorpus run --tui`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorpus(cmd, modeFull)
		},
	}
	addRunFlags(cmd)
	return cmd
}

// NewDemoCommand creates the demo command
func NewDemoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Materialize a small fixed subset of pairs",
		Long: `Materialize a small fixed subset of pairs.

When <metadata-dir>/demo exists only the files in it are loaded. The pairs
named with --program (or demo.programs in the config) are selected in load
order; without an allow-list the first --limit pairs are used.

Examples:
  paircorpus demo
  paircorpus demo --program cat --program ls
  paircorpus demo --limit 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorpus(cmd, modeDemo)
		},
	}
	addRunFlags(cmd)
	cmd.Flags().StringSlice("program", nil, "Program names to include (repeatable)")
	cmd.Flags().Int("limit", 0, "Number of pairs selected when no programs are named")
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Int("max-workers", 0, "Pairs processed concurrently (0 = number of CPUs)")
	cmd.Flags().Duration("timeout", 0, "Maximum run time (e.g., 30m, 2h); 0 disables the limit")
	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")
	cmd.Flags().Bool("tui", false, "Show the interactive progress view (terminal only)")
}

// runCorpus loads metadata and runs the builder in the given mode.
func runCorpus(cmd *cobra.Command, mode string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	pairs, err := loadPairs(cmd, cfg, mode)
	if err != nil {
		return err
	}

	unlock, err := lockRun(cfg)
	if err != nil {
		return err
	}
	defer unlock()

	fileLog, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer fileLog.Close()

	useTUI, _ := cmd.Flags().GetBool("tui")
	useTUI = useTUI && isTerminal(out)

	multiLog := &multiLogger{loggers: []runLogger{fileLog}}
	if !useTUI {
		multiLog.add(logger.NewConsoleLogger(out, cfg.LogLevel))
	}

	cache, err := repocache.New(cfg.CacheDir, newTransport(cfg.Clone.Depth),
		repocache.WithLogger(multiLog),
		repocache.WithRetryPolicy(retryPolicy(cfg)),
	)
	if err != nil {
		return fmt.Errorf("failed to open repository cache: %w", err)
	}

	var opts []builder.Option
	if cfg.Inventory.Enabled {
		inv, err := inventory.New(cfg.Inventory.CacheSize)
		if err != nil {
			return fmt.Errorf("failed to create source inventory: %w", err)
		}
		defer inv.Close()
		opts = append(opts, builder.WithInventory(inv))
	}

	ctx := commandContext(cmd)
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	buildOpts := builder.Options{
		Mode:       mode,
		OutputRoot: cfg.OutputDir,
		MaxWorkers: cfg.MaxWorkers,
	}

	var report *models.RunReport
	var buildErr error
	if useTUI {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		buildErr = tui.Run(out, cancel, func(l *tui.Logger) error {
			multiLog.add(l)
			b := builder.New(cache, extract.New(), multiLog, opts...)
			var err error
			report, err = b.Build(ctx, pairs, buildOpts)
			return err
		})
	} else {
		opts = append(opts, builder.WithSignalHandling())
		b := builder.New(cache, extract.New(), multiLog, opts...)
		report, buildErr = b.Build(ctx, pairs, buildOpts)
	}

	if report != nil {
		finishRun(cmd, cfg, report, cache.Entries(), fileLog.LogDir(), multiLog)
	}
	if buildErr != nil {
		return fmt.Errorf("run failed: %w", buildErr)
	}
	if n := report.FailedCount(); n > 0 {
		return fmt.Errorf("%d of %d pair(s) failed", n, report.Total())
	}
	return nil
}

// loadPairs discovers, loads and, in demo mode, selects the pairs to build.
func loadPairs(cmd *cobra.Command, cfg *config.Config, mode string) ([]models.ResolvedPair, error) {
	discover := metadata.DiscoverFull
	if mode == modeDemo {
		discover = metadata.DiscoverDemo
	}
	paths, err := discover(cfg.MetadataDir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no metadata files found in %s", cfg.MetadataDir)
	}

	pairs, err := metadata.Load(paths)
	if err != nil {
		var loadErr *metadata.LoadError
		if errors.As(err, &loadErr) {
			w := display.WarnErrors(fmt.Sprintf("%d metadata problem(s)", len(loadErr.Errors)), loadErr.Errors)
			w.Suggestion = "run 'paircorpus validate' after fixing the files"
			w.Display(cmd.ErrOrStderr())
			return nil, fmt.Errorf("metadata is invalid (%d error(s)), nothing was cloned", len(loadErr.Errors))
		}
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}

	if mode == modeDemo {
		pairs, err = builder.SelectDemo(pairs, cfg.Demo.Programs, cfg.Demo.Limit)
		if err != nil {
			return nil, err
		}
	}
	return pairs, nil
}

func retryPolicy(cfg *config.Config) repocache.RetryPolicy {
	p := repocache.DefaultRetryPolicy()
	p.MaxAttempts = cfg.Clone.MaxAttempts
	p.BaseDelay = cfg.Clone.BaseDelay
	p.AttemptTimeout = cfg.Clone.AttemptTimeout
	return p
}

// finishRun writes the reports, records history and prints the terminal
// rendering. Failures here are warnings: the corpus itself is already built.
func finishRun(cmd *cobra.Command, cfg *config.Config, report *models.RunReport, entries []models.CacheEntry, logDir string, log runLogger) {
	out := cmd.OutOrStdout()
	md := display.Markdown(report)

	mdPath, err := writeReports(logDir, md)
	if err != nil {
		log.LogWarn(fmt.Sprintf("Failed to write report: %v", err))
	}

	if cfg.History.Enabled {
		if err := recordHistory(cfg.History.DBPath, report, entries); err != nil {
			log.LogWarn(fmt.Sprintf("Failed to record run history: %v", err))
		}
	}

	if isTerminal(out) {
		if rendered, err := display.Terminal(md, 100); err == nil {
			fmt.Fprint(out, rendered)
		}
	}
	fmt.Fprintf(out, "\n%s\n", display.Summary(report))
	if mdPath != "" {
		fmt.Fprintf(out, "Report written to: %s\n", mdPath)
	}
}

// writeReports stores report.md and report.html in logDir and returns the
// Markdown path. Each write holds "<file>.lock". The output tree is never
// touched.
func writeReports(logDir, md string) (string, error) {
	mdPath := filepath.Join(logDir, "report.md")
	if err := filelock.LockAndWrite(mdPath, []byte(md)); err != nil {
		return "", err
	}
	page, err := display.HTML(md)
	if err != nil {
		return mdPath, err
	}
	if err := filelock.LockAndWrite(filepath.Join(logDir, "report.html"), []byte(page)); err != nil {
		return mdPath, err
	}
	return mdPath, nil
}

func recordHistory(dbPath string, report *models.RunReport, entries []models.CacheEntry) error {
	store, err := history.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return store.RecordRun(ctx, report, entries)
}

// commandContext returns the command's context, or Background outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// lockRun serializes commands that write the corpus or the cache. The lock
// lives in the log directory so nothing is added to the output tree.
func lockRun(cfg *config.Config) (func(), error) {
	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	lock := filelock.NewFileLock(filepath.Join(cfg.LogDir, "run.lock"))
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, fmt.Errorf("another paircorpus run holds %s", lock.Path())
	}
	return func() { lock.Unlock() }, nil
}

// isTerminal reports whether w is a terminal stdout/stderr.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || (f != os.Stdout && f != os.Stderr) {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
