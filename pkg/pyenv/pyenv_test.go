package pyenv

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// writeStub drops a fake interpreter script into dir. These tests drive the
// bootstrap against /bin/sh scripts, which doesn't work on Windows.
func writeStub(t *testing.T, dir, name, script string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	err := os.WriteFile(path, []byte(script), 0770)
	if err != nil {
		t.Fatalf("failed to write stub %s: %v", path, err)
	}

	return path
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub interpreters are /bin/sh scripts")
	}
}

const versionOnlyStub = `#!/bin/sh
if [ "$1" = "--version" ]; then
	echo "Python 3.11.9"
	exit 0
fi
exit 1
`

func TestProbe(t *testing.T) {
	skipOnWindows(t)

	stub := writeStub(t, t.TempDir(), "python3", versionOnlyStub)
	version, err := Probe(context.Background(), stub)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}

	if version.String() != "3.11.9" {
		t.Errorf("Probe returned %s, want 3.11.9", version)
	}
}

func TestProbeRejectsGarbage(t *testing.T) {
	skipOnWindows(t)

	stub := writeStub(t, t.TempDir(), "python3", "#!/bin/sh\necho \"flux capacitor 1.21\"\n")
	_, err := Probe(context.Background(), stub)
	if err == nil {
		t.Fatal("Probe should reject output that isn't a Python version")
	}
}

func TestFindInterpreter(t *testing.T) {
	skipOnWindows(t)

	binDir := t.TempDir()
	writeStub(t, binDir, "python3", versionOnlyStub)
	t.Setenv("PATH", binDir)

	interp, err := FindInterpreter(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("FindInterpreter failed: %v", err)
	}

	if !strings.HasPrefix(interp.Path, binDir) {
		t.Errorf("expected the stub interpreter, got %s", interp.Path)
	}
}

func TestFindInterpreterRejectsWrongVersion(t *testing.T) {
	skipOnWindows(t)

	binDir := t.TempDir()
	writeStub(t, binDir, "python3", "#!/bin/sh\necho \"Python 2.7.18\"\n")
	t.Setenv("PATH", binDir)

	_, err := FindInterpreter(context.Background(), t.TempDir())
	if err == nil {
		t.Fatal("FindInterpreter should reject Python 2")
	}
}

func TestActivationCommandReferencesEnvDir(t *testing.T) {
	cmd := ActivationCommand()
	if !strings.Contains(cmd, ".venv") {
		t.Errorf("activation command %q doesn't reference the environment directory", cmd)
	}
}

func TestVenvBin(t *testing.T) {
	path := VenvBin("/project", "pip")
	if runtime.GOOS == "windows" {
		if !strings.HasSuffix(path, filepath.Join(".venv", "Scripts", "pip.exe")) {
			t.Errorf("unexpected pip path %s", path)
		}
	} else {
		if !strings.HasSuffix(path, filepath.Join(".venv", "bin", "pip")) {
			t.Errorf("unexpected pip path %s", path)
		}
	}
}
