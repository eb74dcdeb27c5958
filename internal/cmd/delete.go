package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/paircorpus/internal/builder"
	"github.com/harrison/paircorpus/internal/fileutil"
	"github.com/harrison/paircorpus/internal/history"
	"github.com/harrison/paircorpus/internal/repocache"
)

// NewDeleteCommand creates the delete command
func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the materialized corpus and the repository cache",
		Long: `Remove the output directory and the repository cache.

Missing directories are not an error. Run history is kept, but the cache
entries it records are cleared.`,
		Args: cobra.NoArgs,
		RunE: deleteCommand,
	}
}

func deleteCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	unlock, err := lockRun(cfg)
	if err != nil {
		return err
	}
	defer unlock()

	cache, err := repocache.New(cfg.CacheDir, newTransport(cfg.Clone.Depth))
	if err != nil {
		return fmt.Errorf("failed to open repository cache: %w", err)
	}
	if err := builder.Delete(cfg.OutputDir, cache); err != nil {
		return err
	}

	if cfg.History.Enabled && fileutil.Exists(cfg.History.DBPath) {
		store, err := history.NewStore(cfg.History.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open history: %w", err)
		}
		defer store.Close()
		if err := store.ClearCacheEntries(context.Background()); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Removed %s\n", cfg.OutputDir)
	fmt.Fprintf(out, "Removed %s\n", cfg.CacheDir)
	return nil
}
