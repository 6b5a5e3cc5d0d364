package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/whit3rabbit/pymixer/internal/obfuscator"
)

var (
	outputDir    string   // Flag variable for output directory
	recursive    bool     // Descend into subdirectories
	excludePaths []string // Files or directories left alone
)

// dirCmd represents the obfuscate dir command
var dirCmd = &cobra.Command{
	Use:   "dir <source_directory>",
	Short: "Obfuscate Python code in a directory",
	Long: `Scans the source directory for Python files (based on configured extensions)
and obfuscates all of them with one shared name registry.

With --output the tree is written there and other files are copied along.
Without it files are rewritten in place and a .backup copy is kept unless
--overwrite is set. The registry is saved under .pymixer in the output
directory (or the source directory in place) and reloaded by later runs.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		sourceDir := args[0]
		info, err := os.Stat(sourceDir)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("source directory '%s' not found", sourceDir)
			}
			return fmt.Errorf("error checking source directory '%s': %w", sourceDir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("source path '%s' is not a directory", sourceDir)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("configuration not loaded")
		}
		cmd.SilenceUsage = true
		return obfuscateDir(cmd.Context(), args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func obfuscateDir(ctx context.Context, sourceDir string, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	opts := obfuscator.DirOptions{
		InputDir:  sourceDir,
		OutputDir: outputDir,
		Recursive: cfg.Recursive,
		Exclude:   excludePaths,
	}

	if !cfg.Silent {
		fmt.Fprintln(stdout, "--- Directory Obfuscation ---")
		fmt.Fprintf(stdout, "Source Directory: %s\n", sourceDir)
		if outputDir != "" {
			fmt.Fprintf(stdout, "Target Directory: %s\n", outputDir)
		} else {
			fmt.Fprintf(stdout, "Target Directory: %s (in place, overwrite=%t)\n", sourceDir, cfg.Overwrite)
		}
		fmt.Fprintf(stdout, "Recursive: %t\n", cfg.Recursive)
		fmt.Fprintln(stdout, "---------------------------")
	}

	octx, err := obfuscator.NewObfuscationContext(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize obfuscation context: %w", err)
	}
	if err := octx.Load(opts.StateDir()); err != nil {
		fmt.Fprintf(stderr, "Warning during context load: %v\n", err)
	}

	report, runErr := obfuscator.ProcessDirectory(ctx, opts, octx)

	// The registry is saved even after partial failures so aliases already
	// written to disk stay reproducible.
	if report != nil && len(report.Processed) > 0 {
		if err := octx.Save(opts.StateDir()); err != nil {
			fmt.Fprintf(stderr, "Error saving obfuscation context: %v\n", err)
			if runErr == nil {
				runErr = err
			}
		}
	}

	if report != nil && len(report.Errors) > 0 {
		fmt.Fprintf(stderr, "\n--- Errors Encountered (%d) ---\n", len(report.Errors))
		for i, e := range report.Errors {
			fmt.Fprintf(stderr, "  %d: %v\n", i+1, e)
		}
		fmt.Fprintln(stderr, "-----------------------------")
	}
	if runErr != nil {
		return runErr
	}

	if !cfg.Silent {
		fmt.Fprintf(stdout, "Processed %d, copied %d, skipped %d.\n", len(report.Processed), len(report.Copied), len(report.Skipped))
		fmt.Fprintln(stdout, "Directory processing finished successfully.")
	}
	return nil
}

func init() {
	obfuscateCmd.AddCommand(dirCmd)
	dirCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default: rewrite in place)")
	dirCmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into subdirectories (overrides config)")
	dirCmd.Flags().StringSliceVarP(&excludePaths, "exclude", "x", nil, "File or directory to leave untouched (repeatable)")
}
