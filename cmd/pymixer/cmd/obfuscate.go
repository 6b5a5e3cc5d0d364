package cmd

import (
	"github.com/spf13/cobra"
)

// obfuscateCmd represents the base command for obfuscation actions
var obfuscateCmd = &cobra.Command{
	Use:   "obfuscate",
	Short: "Obfuscates Python code",
	Long: `Provides subcommands to obfuscate individual files or entire directories.

Example:
  pymixer obfuscate file app.py -o app_obf.py
  pymixer obfuscate dir ./src -r -o ./dist
  pymixer obfuscate dir ./src -r -x ./src/vendored`,
}

func init() {
	rootCmd.AddCommand(obfuscateCmd)
}
