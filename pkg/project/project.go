package project

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/colorstring"
	"github.com/rotisserie/eris"
)

// Fixed layout of the quiz project. The toolchain operates on these paths
// relative to the project root; nothing here is configurable.
const (
	EnvDir       = ".venv"
	RuntimeDir   = ".python"
	BuildDir     = "build"
	DistDir      = "dist"
	SourceDir    = "src"
	ManifestFile = "requirements.txt"
	TaskFile     = "tasks.star"
	CatalogFile  = "runtimes.yml"
)

// Root walks from the current working directory upwards until it finds the
// project's tasks.star file (or a .git directory as a fallback marker).
func Root() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", eris.Wrap(err, "failed to retrieve the current working directory")
	}

	path := wd
	for {
		for _, marker := range []string{TaskFile, ".git"} {
			_, err := os.Stat(filepath.Join(path, marker))
			if err == nil {
				return path, nil
			}
			if !eris.Is(err, os.ErrNotExist) {
				return "", eris.Wrapf(err, "failed to check %s", filepath.Join(path, marker))
			}
		}

		parent := filepath.Dir(path)
		if parent == path {
			break
		}
		path = parent
	}

	return "", eris.Errorf("no %s file found in %s or any parent directory", TaskFile, wd)
}

func PrintTask(msg string) {
	colorstring.Printf("[blue][bold]==>[default] %s\n", msg)
}

func PrintSubtask(msg string) {
	colorstring.Printf("[green][bold]  ->[reset] %s\n", msg)
}

func PrintError(msg string) {
	colorstring.Printf("[red][bold]  ->[reset] %s\n", msg)
}
