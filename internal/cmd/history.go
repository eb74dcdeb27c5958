package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/paircorpus/internal/display"
	"github.com/harrison/paircorpus/internal/fileutil"
	"github.com/harrison/paircorpus/internal/history"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `Show recorded runs, newest first.

With --run, the pair results of one run are listed instead. A unique prefix
of the run id is enough.

Examples:
  paircorpus history
  paircorpus history --last 20
  paircorpus history --run 3f2a`,
		Args: cobra.NoArgs,
		RunE: historyCommand,
	}
	cmd.Flags().Int("last", 10, "Number of runs to show (0 = all)")
	cmd.Flags().String("run", "", "Show the pair results of this run id (or unique prefix)")
	return cmd
}

func historyCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if !fileutil.Exists(cfg.History.DBPath) {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}
	store, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	ctx := commandContext(cmd)
	limit, _ := cmd.Flags().GetInt("last")
	runID, _ := cmd.Flags().GetString("run")

	if runID != "" {
		id, err := store.ResolveRunID(ctx, runID)
		if err != nil {
			return err
		}
		pairs, err := store.PairResults(ctx, id)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(pairs))
		for _, p := range pairs {
			rows = append(rows, []string{
				p.ProgramName,
				p.Status,
				fmt.Sprint(p.CFiles),
				fmt.Sprint(p.RustFiles),
				p.Duration.Round(time.Millisecond).String(),
				p.Reason,
			})
		}
		fmt.Fprintf(out, "Run %s\n", id)
		fmt.Fprintln(out, display.Table([]string{"Program", "Status", "C files", "Rust files", "Duration", "Reason"}, rows))
		return nil
	}

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortID(r.ID),
			r.Mode,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Duration().Round(time.Second).String(),
			fmt.Sprint(r.Total),
			fmt.Sprint(r.Succeeded),
			fmt.Sprint(r.Failed),
		})
	}
	fmt.Fprintln(out, display.Table([]string{"Run", "Mode", "Started", "Duration", "Pairs", "Succeeded", "Failed"}, rows))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
