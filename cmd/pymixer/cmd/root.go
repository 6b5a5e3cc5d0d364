// Package cmd implements the command line interface for the application.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/whit3rabbit/pymixer/internal/config"
)

var (
	cfgFile string         // Variable to hold the config file path from the flag
	cfg     *config.Config // Global variable to hold the loaded configuration

	// Flag variables mapped to config fields for override
	silentMode     bool   // -> cfg.Silent
	debugMode      bool   // -> cfg.DebugMode
	abortOnError   bool   // -> cfg.AbortOnError
	overwrite      bool   // -> cfg.Overwrite
	scrambleNames  bool   // -> cfg.Obfuscation.Names.Scramble
	namesMode      string // -> cfg.Obfuscation.Names.Mode
	encodeStrings  bool   // -> cfg.Obfuscation.Strings.Enabled
	exportNames    bool   // -> cfg.Obfuscation.Exports.Enabled
	stripSlots     bool   // -> cfg.Obfuscation.Slots.Strip
	validateOutput bool   // -> cfg.Validate.Enabled
	ignoreNames    []string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pymixer",
	Short: "A CLI tool to obfuscate Python source code.",
	Long: `pymixer renames identifiers to short, stable aliases, rebuilds string
literals from byte values at runtime and keeps public names importable.`,
	// PersistentPreRunE runs before any subcommand's RunE.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil { // Only load config once
			loadedCfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("error loading configuration: %w", err)
			}
			cfg = loadedCfg

			// Apply command-line flag overrides *after* loading config file
			applyFlagOverrides(cfg, cmd)
			if err := cfg.Normalize(); err != nil {
				return err
			}
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// applyFlagOverrides applies command-line flag values to the config struct.
// Only overrides if the flag was explicitly set by the user via cmd.Flags().Changed().
func applyFlagOverrides(cfg *config.Config, cmd *cobra.Command) {
	if cmd.Flags().Changed("silent") {
		cfg.Silent = silentMode
	}
	if cmd.Flags().Changed("debug") {
		cfg.DebugMode = debugMode
	}
	if cmd.Flags().Changed("abort-on-error") {
		cfg.AbortOnError = abortOnError
	}
	if cmd.Flags().Changed("overwrite") {
		cfg.Overwrite = overwrite
	}
	if cmd.Flags().Changed("scramble") {
		cfg.Obfuscation.Names.Scramble = scrambleNames
	}
	if cmd.Flags().Changed("names-mode") {
		cfg.Obfuscation.Names.Mode = namesMode
	}
	if cmd.Flags().Changed("strings") {
		cfg.Obfuscation.Strings.Enabled = encodeStrings
	}
	if cmd.Flags().Changed("exports") {
		cfg.Obfuscation.Exports.Enabled = exportNames
	}
	if cmd.Flags().Changed("strip-slots") {
		cfg.Obfuscation.Slots.Strip = stripSlots
	}
	if cmd.Flags().Changed("recursive") { // obfuscate dir only
		cfg.Recursive = recursive
	}
	if cmd.Flags().Changed("validate") {
		cfg.Validate.Enabled = validateOutput
	}
	if cmd.Flags().Changed("ignore") {
		cfg.Ignore.Names = append(cfg.Ignore.Names, ignoreNames...)
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./"+config.DefaultConfigFile+")")

	rootCmd.PersistentFlags().BoolVarP(&silentMode, "silent", "s", false, "Suppress informational output (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Trace renaming decisions (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&abortOnError, "abort-on-error", false, "Stop processing on the first error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&overwrite, "overwrite", false, "Overwrite files in place without writing .backup copies (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&scrambleNames, "scramble", true, "Enable/disable identifier renaming (overrides config)")
	rootCmd.PersistentFlags().StringVar(&namesMode, "names-mode", config.NamesModeSequential, "Alias style: sequential or random (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&encodeStrings, "strings", true, "Enable/disable literal encoding (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&exportNames, "exports", true, "Enable/disable re-binding of public names (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&stripSlots, "strip-slots", true, "Enable/disable removal of __slots__ (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&validateOutput, "validate", false, "Run original and obfuscated files with python and compare output (overrides config)")
	rootCmd.PersistentFlags().StringSliceVar(&ignoreNames, "ignore", nil, "Names never renamed, added to the configured list")
}
