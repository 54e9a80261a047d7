package pyenv

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
)

// venvStub emulates an interpreter whose "-m venv" call succeeds and drops a
// working pip stub into the new environment.
const venvStub = `#!/bin/sh
if [ "$1" = "--version" ]; then
	echo "Python 3.11.9"
	exit 0
fi
if [ "$1" = "-m" ] && [ "$2" = "venv" ]; then
	mkdir -p "$3/bin"
	printf '#!/bin/sh\nexit 0\n' > "$3/bin/pip"
	chmod +x "$3/bin/pip"
	exit 0
fi
exit 1
`

// brokenVenvStub leaves a partial environment behind and then fails, which is
// exactly the situation the rollback has to handle.
const brokenVenvStub = `#!/bin/sh
if [ "$1" = "--version" ]; then
	echo "Python 3.11.9"
	exit 0
fi
if [ "$1" = "-m" ] && [ "$2" = "venv" ]; then
	mkdir -p "$3/bin"
	exit 1
fi
exit 1
`

// failingPipStub creates an environment whose pip always fails.
const failingPipStub = `#!/bin/sh
if [ "$1" = "--version" ]; then
	echo "Python 3.11.9"
	exit 0
fi
if [ "$1" = "-m" ] && [ "$2" = "venv" ]; then
	mkdir -p "$3/bin"
	printf '#!/bin/sh\nexit 1\n' > "$3/bin/pip"
	chmod +x "$3/bin/pip"
	exit 0
fi
exit 1
`

func setupBootstrap(t *testing.T, stub string) string {
	t.Helper()
	skipOnWindows(t)

	binDir := t.TempDir()
	writeStub(t, binDir, "python3", stub)
	// the stub scripts call mkdir/chmod, so keep the system dirs reachable
	t.Setenv("PATH", binDir+":/bin:/usr/bin")

	root := t.TempDir()
	err := os.WriteFile(filepath.Join(root, "requirements.txt"), []byte("tabulate==0.9.0\n"), 0660)
	if err != nil {
		t.Fatal(err)
	}

	return root
}

func TestBootstrapSuccess(t *testing.T) {
	root := setupBootstrap(t, venvStub)

	err := Bootstrap(context.Background(), root)
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	fi, err := os.Stat(EnvPath(root))
	if err != nil || !fi.IsDir() {
		t.Errorf("expected %s to be a directory after a successful bootstrap", EnvPath(root))
	}
}

func TestBootstrapRefusesExistingEnv(t *testing.T) {
	root := setupBootstrap(t, venvStub)

	marker := filepath.Join(EnvPath(root), "bin")
	err := os.MkdirAll(marker, 0770)
	if err != nil {
		t.Fatal(err)
	}

	err = Bootstrap(context.Background(), root)
	if !eris.Is(err, ErrEnvExists) {
		t.Fatalf("expected ErrEnvExists, got %v", err)
	}

	// the existing environment must be left alone
	if _, err := os.Stat(marker); err != nil {
		t.Error("an existing environment must not be touched")
	}
}

func TestBootstrapRollsBackFailedEnvCreation(t *testing.T) {
	root := setupBootstrap(t, brokenVenvStub)

	err := Bootstrap(context.Background(), root)
	if !eris.Is(err, ErrEnvCreate) {
		t.Fatalf("expected ErrEnvCreate, got %v", err)
	}

	if _, err := os.Stat(EnvPath(root)); !eris.Is(err, os.ErrNotExist) {
		t.Error("a failed bootstrap must not leave a partial environment behind")
	}
}

func TestBootstrapKeepsEnvWhenDepsFail(t *testing.T) {
	root := setupBootstrap(t, failingPipStub)

	err := Bootstrap(context.Background(), root)
	if !eris.Is(err, ErrDepsInstall) {
		t.Fatalf("expected ErrDepsInstall, got %v", err)
	}

	// the environment is kept so the install can be finished by hand
	if _, err := os.Stat(EnvPath(root)); err != nil {
		t.Error("the environment should survive a failed dependency install")
	}

	if !strings.Contains(eris.ToString(err, false), ActivationCommand()) {
		t.Errorf("the error should mention the activation command %q: %v", ActivationCommand(), err)
	}
}

func TestBootstrapFailsWithoutManifest(t *testing.T) {
	root := setupBootstrap(t, venvStub)
	err := os.Remove(filepath.Join(root, "requirements.txt"))
	if err != nil {
		t.Fatal(err)
	}

	err = Bootstrap(context.Background(), root)
	if !eris.Is(err, ErrDepsInstall) {
		t.Fatalf("expected ErrDepsInstall, got %v", err)
	}
}
