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
	outputFile  string // Flag variable for output file path
	inPlace     bool   // Rewrite the input file itself
	fileContext string // Directory holding a registry shared with earlier runs
)

// fileCmd represents the obfuscate file command
var fileCmd = &cobra.Command{
	Use:   "file <python_file_path>",
	Short: "Obfuscate a single Python file",
	Long: `Reads a single Python file, applies the configured obfuscation
techniques, and outputs the result to stdout or a specified file.

With --context the name registry of an earlier run is loaded first and saved
afterwards, so the file gets the same aliases as the rest of that project.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if inPlace && outputFile != "" {
			return fmt.Errorf("--in-place and --output cannot be used together")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return fmt.Errorf("configuration not loaded")
		}
		cmd.SilenceUsage = true
		return obfuscateFile(cmd.Context(), args[0], cmd.OutOrStdout())
	},
}

// obfuscateFile runs the file command. Informational output goes to stderr
// when the obfuscated source itself is written to stdout.
func obfuscateFile(ctx context.Context, filePath string, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	info := stdout
	if outputFile == "" && !inPlace {
		info = os.Stderr
	}

	octx, err := obfuscator.NewObfuscationContext(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize obfuscation context: %w", err)
	}
	if info != stdout {
		octx.Silent = true // keep stdout clean for the source
	}
	if fileContext != "" {
		if err := octx.Load(fileContext); err != nil {
			return fmt.Errorf("error loading obfuscation context from %s: %w", fileContext, err)
		}
	}

	if !cfg.Silent {
		fmt.Fprintf(info, "Processing file: %s\n", filePath)
	}
	outputContent, err := obfuscator.ProcessFile(filePath, octx)
	if err != nil {
		return fmt.Errorf("error processing file %s: %w", filePath, err)
	}

	switch {
	case inPlace:
		if cfg.Validate.Enabled {
			if err := obfuscator.ValidateSource(ctx, cfg.Validate, filePath, outputContent); err != nil {
				return err
			}
		}
		if !cfg.Overwrite {
			backup := obfuscator.BackupPath(filePath)
			data, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("error reading %s for backup: %w", filePath, err)
			}
			if err := os.WriteFile(backup, data, 0644); err != nil {
				return fmt.Errorf("error writing backup %s: %w", backup, err)
			}
			if !cfg.Silent {
				fmt.Fprintf(info, "Info: Backup written to %s\n", backup)
			}
		}
		if err := writeLike(filePath, outputContent, filePath); err != nil {
			return err
		}
	case outputFile != "":
		if !cfg.Silent {
			fmt.Fprintf(info, "Info: Writing output to file: %s\n", outputFile)
		}
		if err := writeLike(outputFile, outputContent, filePath); err != nil {
			return err
		}
		if cfg.Validate.Enabled {
			if err := obfuscator.Validate(ctx, cfg.Validate, filePath, outputFile); err != nil {
				return err
			}
		}
	default:
		if cfg.Validate.Enabled {
			if err := obfuscator.ValidateSource(ctx, cfg.Validate, filePath, outputContent); err != nil {
				return err
			}
		}
		fmt.Fprint(stdout, outputContent)
	}

	if fileContext != "" {
		if err := octx.Save(fileContext); err != nil {
			return fmt.Errorf("error saving obfuscation context to %s: %w", fileContext, err)
		}
	}
	if !cfg.Silent {
		fmt.Fprintln(info, "File processing finished.")
	}
	return nil
}

// writeLike writes content to path, keeping the permissions of the source file.
func writeLike(path, content, source string) error {
	mode := os.FileMode(0644)
	if st, err := os.Stat(source); err == nil {
		mode = st.Mode().Perm()
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return fmt.Errorf("error writing to output file %s: %w", path, err)
	}
	return nil
}

func init() {
	obfuscateCmd.AddCommand(fileCmd)
	fileCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: stdout)")
	fileCmd.Flags().BoolVar(&inPlace, "in-place", false, "Rewrite the input file, keeping a .backup copy unless --overwrite is set")
	fileCmd.Flags().StringVar(&fileContext, "context", "", "Directory whose saved registry is loaded before and saved after the run")
}
