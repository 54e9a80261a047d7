package pyenv

import (
	"path/filepath"
	"runtime"

	"github.com/quizproject/devtools/pkg/project"
)

// EnvPath returns the absolute path of the project's virtual environment.
func EnvPath(root string) string {
	return filepath.Join(root, project.EnvDir)
}

// ActivationCommand returns the exact shell command that activates the
// virtual environment on the current platform.
func ActivationCommand() string {
	if runtime.GOOS == "windows" {
		return project.EnvDir + `\Scripts\activate.bat`
	}
	return "source " + project.EnvDir + "/bin/activate"
}

// VenvBin resolves the path of a binary installed into the virtual
// environment, accounting for the bin/ vs Scripts/ layout difference.
func VenvBin(root, name string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(EnvPath(root), "Scripts", name+".exe")
	}
	return filepath.Join(EnvPath(root), "bin", name)
}
