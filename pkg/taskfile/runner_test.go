package taskfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// runFixture parses the given script in a fresh project directory and returns
// the directory, the task list and a context carrying a silent logger.
func runFixture(t *testing.T, script string) (string, List, context.Context) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.star")
	err := os.WriteFile(path, []byte(script), 0660)
	if err != nil {
		t.Fatal(err)
	}

	logger := zerolog.Nop()
	ctx := WithLogger(context.Background(), &logger)

	list, _, err := Parse(ctx, path, dir, nil, true)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	return dir, list, ctx
}

func readOutput(t *testing.T, path string) string {
	t.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected %s to exist: %v", path, err)
	}

	return strings.TrimSpace(string(content))
}

func TestRunExecutesCommands(t *testing.T) {
	dir, list, ctx := runFixture(t, `def configure():
    task("hello", desc = "write a file", cmds = ["echo hi > out.txt"])
`)

	err := Run(ctx, dir, "hello", list, false, false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := readOutput(t, filepath.Join(dir, "out.txt")); got != "hi" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestRunExecutesDepsFirst(t *testing.T) {
	dir, list, ctx := runFixture(t, `def configure():
    task("prep", desc = "dep", cmds = ["echo one > order.txt"])
    task("all", desc = "main", deps = ["prep"], cmds = ["echo two >> order.txt"])
`)

	err := Run(ctx, dir, "all", list, false, false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := readOutput(t, filepath.Join(dir, "order.txt"))
	if got != "one\ntwo" {
		t.Errorf("dependency ran out of order: %q", got)
	}
}

func TestRunUnknownTask(t *testing.T) {
	dir, list, ctx := runFixture(t, `def configure():
    task("hello", desc = "write a file", cmds = ["echo hi > out.txt"])
`)

	err := Run(ctx, dir, "nope", list, false, false)
	if err == nil {
		t.Fatal("expected an error for an unknown task")
	}
}

func TestRunDryRunHasNoSideEffects(t *testing.T) {
	dir, list, ctx := runFixture(t, `def configure():
    task("hello", desc = "write a file", cmds = ["echo hi > out.txt"])
`)

	err := Run(ctx, dir, "hello", list, true, false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "out.txt")); err == nil {
		t.Error("a dry run must not create files")
	}
}

func TestRunSkipIfExists(t *testing.T) {
	dir, list, ctx := runFixture(t, `def configure():
    task(
        "gen",
        desc = "generate",
        skip_if_exists = ["marker.txt"],
        cmds = ["echo hi > fresh.txt"],
    )
`)

	err := os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0660)
	if err != nil {
		t.Fatal(err)
	}

	err = Run(ctx, dir, "gen", list, false, false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "fresh.txt")); err == nil {
		t.Error("the task should have been skipped")
	}

	// force overrides the skip list
	err = Run(ctx, dir, "gen", list, false, true)
	if err != nil {
		t.Fatalf("forced Run failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "fresh.txt")); err != nil {
		t.Error("a forced run must execute the commands")
	}
}

func TestRunSkipsFreshOutputs(t *testing.T) {
	dir, list, ctx := runFixture(t, `def configure():
    task(
        "build",
        desc = "build",
        inputs = ["in.txt"],
        outputs = [resolve_path("//out.txt")],
        cmds = ["echo new > out.txt"],
    )
`)

	err := os.WriteFile(filepath.Join(dir, "in.txt"), []byte("x"), 0660)
	if err != nil {
		t.Fatal(err)
	}

	outPath := filepath.Join(dir, "out.txt")
	err = os.WriteFile(outPath, []byte("old"), 0660)
	if err != nil {
		t.Fatal(err)
	}
	err = os.Chtimes(outPath, time.Now().Add(time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}

	err = Run(ctx, dir, "build", list, false, false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := readOutput(t, outPath); got != "old" {
		t.Errorf("a fresh output must not be rebuilt, got %q", got)
	}

	err = Run(ctx, dir, "build", list, false, true)
	if err != nil {
		t.Fatalf("forced Run failed: %v", err)
	}

	if got := readOutput(t, outPath); got != "new" {
		t.Errorf("a forced run must rebuild, got %q", got)
	}
}

func TestRunDetectsDependencyCycle(t *testing.T) {
	dir, list, ctx := runFixture(t, `def configure():
    task("a", desc = "a", deps = ["b"], cmds = [])
    task("b", desc = "b", deps = ["a"], cmds = [])
`)

	err := Run(ctx, dir, "a", list, false, false)
	if err == nil {
		t.Fatal("a dependency cycle must be reported")
	}
}

func TestRunTaskEnv(t *testing.T) {
	dir, list, ctx := runFixture(t, `def configure():
    task(
        "env",
        desc = "env",
        env = {"QDEV_TEST_MODE": "quiz"},
        cmds = ["echo $QDEV_TEST_MODE > env.txt"],
    )
`)

	err := Run(ctx, dir, "env", list, false, false)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := readOutput(t, filepath.Join(dir, "env.txt")); got != "quiz" {
		t.Errorf("task env was not passed to the shell: %q", got)
	}
}
