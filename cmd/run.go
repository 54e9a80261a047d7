package cmd

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Launches the packaged quiz application",
	Long: `Runs the run task from tasks.star which launches the artifact produced by
"qdev build" (building it first if necessary) and blocks until it exits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return execTasks(cmd.Context(), []string{"run"}, nil, false, false)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
