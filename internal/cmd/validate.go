package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harrison/paircorpus/internal/display"
	"github.com/harrison/paircorpus/internal/metadata"
	"github.com/harrison/paircorpus/internal/models"
)

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file-or-directory]...",
		Short: "Validate metadata files without cloning anything",
		Long: `Validate metadata files without cloning anything.

Every file is decoded, validated and resolved; duplicate program names are
detected across all files. Each problem is listed with its file, record and
field. With no arguments the configured metadata directory is checked.

Examples:
  paircorpus validate
  paircorpus validate metadata/project/coreutils.json
  paircorpus validate metadata/individual metadata/demo`,
		RunE: validateCommand,
	}
}

func validateCommand(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		args = []string{cfg.MetadataDir}
	}

	files, err := collectMetadataFiles(args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintln(out, "No metadata files found.")
		return nil
	}

	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()

	var allPairs []models.ResolvedPair
	var problems []error
	for _, file := range files {
		doc, err := metadata.Decode(file)
		if err != nil {
			fmt.Fprintf(out, "%s %s: %v\n", bad("✗"), displayPath(file), err)
			problems = append(problems, err)
			continue
		}
		pairs, errs := metadata.Resolve(doc)
		allPairs = append(allPairs, pairs...)
		if len(errs) > 0 {
			fmt.Fprintf(out, "%s %s: %d pair(s), %d error(s)\n", bad("✗"), displayPath(file), len(pairs), len(errs))
			problems = append(problems, errs...)
			continue
		}
		form := "individual"
		if doc.IsProject() {
			form = "project"
		}
		fmt.Fprintf(out, "%s %s: %d pair(s) (%s)\n", ok("✓"), displayPath(file), len(pairs), form)
	}

	problems = append(problems, metadata.FindDuplicates(allPairs)...)

	if len(problems) > 0 {
		fmt.Fprintln(out)
		display.WarnErrors(fmt.Sprintf("%d metadata problem(s)", len(problems)), problems).Display(out)
		return fmt.Errorf("validation failed with %d error(s)", len(problems))
	}

	fmt.Fprintf(out, "\nAll %d file(s) valid: %d pair(s)\n", len(files), len(allPairs))
	return nil
}

// collectMetadataFiles expands directories with metadata.Discover and keeps
// explicit files as given.
func collectMetadataFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		found, err := metadata.Discover(arg)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return files, nil
}

// displayPath shortens path relative to the working directory when possible.
func displayPath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(cwd, abs); err == nil && filepath.IsLocal(rel) {
		return rel
	}
	return path
}
