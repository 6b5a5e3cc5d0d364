package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/whit3rabbit/pymixer/internal/config"
	"github.com/whit3rabbit/pymixer/internal/obfuscator"
)

var (
	whatisTargetDir string
	whatisReverse   bool
)

// whatisCmd represents the whatis command
var whatisCmd = &cobra.Command{
	Use:   "whatis <alias>",
	Short: "Looks up the original name for a given alias",
	Long: `Loads the saved registry from a previous run's directory and prints the
original identifier behind the provided alias.

The directory is the output directory of the run, or the source directory
for in-place runs. With --reverse the argument is an original name and its
alias is printed instead.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if whatisTargetDir == "" {
			return fmt.Errorf("--target-dir (-t) flag is required")
		}
		info, err := os.Stat(whatisTargetDir)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("target directory '%s' not found", whatisTargetDir)
			}
			return fmt.Errorf("error checking target directory '%s': %w", whatisTargetDir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("target path '%s' is not a directory", whatisTargetDir)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true // Prevent usage print on expected errors (like not found)
		return whatis(args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func whatis(name string, stdout, stderr io.Writer) error {
	octx, err := obfuscator.NewObfuscationContext(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize obfuscation context structure: %w", err)
	}
	octx.Silent = true
	if err := octx.Load(whatisTargetDir); err != nil {
		return fmt.Errorf("error loading obfuscation context from %s: %w", whatisTargetDir, err)
	}

	if whatisReverse {
		if alias, ok := octx.Registry.Lookup(name); ok {
			fmt.Fprintf(stdout, "Found: '%s'\n", alias)
			return nil
		}
		fmt.Fprintf(stderr, "Error: Name '%s' has no alias in the loaded context.\n", name)
		return fmt.Errorf("name not found")
	}

	if original, ok := octx.Registry.Unscramble(name); ok {
		fmt.Fprintf(stdout, "Found: '%s'\n", original)
		return nil
	}
	fmt.Fprintf(stderr, "Error: Alias '%s' not found in the loaded context.\n", name)
	return fmt.Errorf("name not found") // Specific error for scripting
}

func init() {
	rootCmd.AddCommand(whatisCmd)
	whatisCmd.Flags().StringVarP(&whatisTargetDir, "target-dir", "t", "", "Directory of a previous obfuscate run (required)")
	whatisCmd.Flags().BoolVar(&whatisReverse, "reverse", false, "Look up the alias of an original name instead")
}
