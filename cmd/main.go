package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "qdev",
	Short: "Developer workflow commands for the quiz project",
	Long: `This command bundles the developer workflow for the quiz project:
it bootstraps the Python virtual environment, cleans up build artifacts and
runs the packaging tasks declared in tasks.star.`,
	SilenceUsage: true,
}

// Execute runs the CLI and returns the failure, if any. Mapping errors to
// exit codes is left to the caller so RunE implementations stay ordinary
// error-returning functions.
func Execute() error {
	return rootCmd.Execute()
}
