package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/whit3rabbit/pymixer/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage pymixer configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a configuration file with the default settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		path := config.DefaultConfigFile
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.SaveConfig(path); err != nil {
			return fmt.Errorf("error writing configuration: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
