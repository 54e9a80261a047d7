package cmd

import (
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Packages the quiz application",
	Long: `Runs the build task from tasks.star, which invokes PyInstaller from the
virtual environment to produce the runnable artifact under dist/. Run
"qdev install" first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return execTasks(cmd.Context(), []string{"build"}, nil, false, false)
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
