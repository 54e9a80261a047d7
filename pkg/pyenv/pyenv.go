// Package pyenv bootstraps the project's Python environment: it locates (or
// downloads) a suitable interpreter, creates the virtual environment at a
// fixed relative path and installs the declared dependencies into it.
package pyenv

import (
	"context"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"

	"github.com/quizproject/devtools/pkg/project"
)

// RequiredPython is the interpreter range the quiz application is developed
// against. It's deliberately hard-coded; the toolchain has no configuration.
const RequiredPython = "~3.11"

var requiredRange *semver.Constraints

func init() {
	var err error
	requiredRange, err = semver.NewConstraint(RequiredPython)
	if err != nil {
		panic(err)
	}
}

// Interpreter is a Python binary that satisfies RequiredPython.
type Interpreter struct {
	Path    string
	Version *semver.Version
}

var versionPattern = regexp.MustCompile(`Python (\d+\.\d+(?:\.\d+)?)`)

// Probe runs the given binary with --version and parses the reported version.
func Probe(ctx context.Context, path string) (*semver.Version, error) {
	out, err := exec.CommandContext(ctx, path, "--version").CombinedOutput()
	if err != nil {
		return nil, eris.Wrapf(err, "failed to run %s --version", path)
	}

	match := versionPattern.FindStringSubmatch(string(out))
	if match == nil {
		return nil, eris.Errorf("%s --version printed %q which doesn't look like a Python version", path, string(out))
	}

	version, err := semver.NewVersion(match[1])
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse version %q reported by %s", match[1], path)
	}

	return version, nil
}

// localRuntimePython returns the interpreter path inside the project-local
// runtime directory that InstallRuntime creates.
func localRuntimePython(root string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(root, project.RuntimeDir, "python.exe")
	}
	return filepath.Join(root, project.RuntimeDir, "bin", "python3")
}

// FindInterpreter searches for a Python binary matching RequiredPython. The
// project-local runtime (a previous automated install) wins over PATH.
func FindInterpreter(ctx context.Context, root string) (*Interpreter, error) {
	candidates := []string{localRuntimePython(root)}
	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			candidates = append(candidates, path)
		}
	}

	for _, path := range candidates {
		version, err := Probe(ctx, path)
		if err != nil {
			// a broken or ancient binary on PATH shouldn't abort the search
			continue
		}

		if requiredRange.Check(version) {
			return &Interpreter{Path: path, Version: version}, nil
		}
	}

	return nil, eris.Wrapf(ErrRuntimeNotFound, "no Python matching %s was found on PATH", RequiredPython)
}
