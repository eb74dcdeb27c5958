package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for paircorpus.
// Invoked without a subcommand it performs a full run.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paircorpus",
		Short: "Materialize a corpus of paired C and Rust programs",
		Long: `paircorpus reads program-pair metadata, clones every referenced
repository once, and copies the declared C and Rust sources of each pair
into <output>/<program>/c-program and <output>/<program>/rust-program.

Running paircorpus without a subcommand is the same as "paircorpus run".`,
		Version: Version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCorpus(cmd, modeFull)
		},
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	addGlobalFlags(cmd)
	addRunFlags(cmd)

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewDemoCommand())
	cmd.AddCommand(NewDeleteCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewPublishCommand())

	return cmd
}
