package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quizproject/devtools/pkg/cleaner"
	"github.com/quizproject/devtools/pkg/project"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Removes build artifacts and Python caches",
	Long: `Deletes ` + project.BuildDir + `/, ` + project.DistDir + `/ and every *.egg-info directory, cache
directory and compiled-cache file under ` + project.SourceDir + `/. Targets that don't exist
are skipped, so running clean twice in a row is harmless.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := project.Root()
		if err != nil {
			return err
		}

		project.PrintTask("Cleaning build artifacts")
		report, err := cleaner.Clean(root)

		for _, path := range report.Removed {
			project.PrintSubtask("removed " + relToRoot(root, path))
		}
		for _, failure := range report.Failed {
			project.PrintError(fmt.Sprintf("could not remove %s: %v", relToRoot(root, failure.Path), failure.Err))
		}
		if len(report.Removed) == 0 && len(report.Failed) == 0 {
			project.PrintSubtask("nothing to do")
		}

		return err
	},
}

func relToRoot(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
