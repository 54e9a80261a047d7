package cmd

import (
	"github.com/spf13/cobra"

	"github.com/quizproject/devtools/pkg/project"
	"github.com/quizproject/devtools/pkg/pyenv"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Bootstraps the Python environment for the quiz project",
	Long: `Locates a Python ` + pyenv.RequiredPython + ` interpreter (downloading a standalone build
if none is installed), creates the virtual environment at ` + project.EnvDir + ` and
installs the dependencies from ` + project.ManifestFile + ` into it.

An already existing environment is refused; delete it first if you want to
start over.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := project.Root()
		if err != nil {
			return err
		}

		return pyenv.Bootstrap(cmd.Context(), root)
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
