package pyenv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/quizproject/devtools/pkg/project"
)

// Bootstrap sets up the project's virtual environment from scratch:
//
//  1. find (or download) a Python interpreter matching RequiredPython
//  2. create the virtual environment at the fixed relative path
//  3. install the dependencies declared in requirements.txt
//
// An existing environment is refused rather than overwritten so an
// environment that is activated in another terminal can't be destroyed by
// accident. Every failure path either rolls the environment directory back
// or states explicitly that it was kept.
func Bootstrap(ctx context.Context, root string) error {
	envPath := EnvPath(root)
	_, err := os.Stat(envPath)
	if err == nil {
		return eris.Wrapf(ErrEnvExists, "%s already exists; delete it first if you want a fresh environment", envPath)
	}
	if !eris.Is(err, os.ErrNotExist) {
		return eris.Wrapf(err, "failed to check %s", envPath)
	}

	project.PrintTask("Checking Python runtime")
	interp, err := FindInterpreter(ctx, root)
	if err != nil {
		if !eris.Is(err, ErrRuntimeNotFound) {
			return err
		}

		project.PrintSubtask(fmt.Sprintf("no Python %s found, downloading a standalone runtime", RequiredPython))
		interp, err = InstallRuntime(ctx, root)
		if err != nil {
			return err
		}
	}
	project.PrintSubtask(fmt.Sprintf("using %s (Python %s)", interp.Path, interp.Version))

	project.PrintTask("Creating virtual environment")
	err = createEnv(ctx, root, interp)
	if err != nil {
		return err
	}
	project.PrintSubtask(envPath)

	project.PrintTask("Installing dependencies")
	err = installDeps(ctx, root)
	if err != nil {
		return err
	}

	project.PrintTask("Done")
	project.PrintSubtask("environment ready at " + envPath)
	project.PrintSubtask("activate it with: " + ActivationCommand())
	return nil
}

func createEnv(ctx context.Context, root string, interp *Interpreter) error {
	cmd := exec.CommandContext(ctx, interp.Path, "-m", "venv", project.EnvDir)
	cmd.Dir = root
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err != nil {
		// never leave a half-created environment behind
		envPath := EnvPath(root)
		if rmErr := os.RemoveAll(envPath); rmErr != nil {
			project.PrintError(fmt.Sprintf("could not remove the partial environment %s: %v", envPath, rmErr))
		}

		return eris.Wrapf(ErrEnvCreate, "%s -m venv failed (%v); fix the interpreter installation and run install again", interp.Path, err)
	}

	return nil
}

func installDeps(ctx context.Context, root string) error {
	manifest := filepath.Join(root, project.ManifestFile)
	_, err := os.Stat(manifest)
	if err != nil {
		return eris.Wrapf(ErrDepsInstall, "cannot read %s: %v", manifest, err)
	}

	cmd := exec.CommandContext(ctx, VenvBin(root, "pip"), "install", "-r", project.ManifestFile)
	cmd.Dir = root
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err = cmd.Run()
	if err != nil {
		// the environment is kept so the install can be finished by hand
		return eris.Wrapf(ErrDepsInstall,
			"pip install -r %s failed (%v); activate the environment with %q and install the dependencies yourself, or delete %s and run install again",
			project.ManifestFile, err, ActivationCommand(), EnvPath(root))
	}

	return nil
}
