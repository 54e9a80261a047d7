package taskfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func parseFixture(t *testing.T, script string, options map[string]string) (List, map[string]Option, error) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.star")
	err := os.WriteFile(path, []byte(script), 0660)
	if err != nil {
		t.Fatal(err)
	}

	logger := zerolog.Nop()
	ctx := WithLogger(context.Background(), &logger)

	return Parse(ctx, path, dir, options, true)
}

const basicScript = `greeting = option("greeting", default="hello", help="what to print")

def configure():
    task(
        "prep",
        desc = "prepare",
        cmds = ["echo " + greeting + " > prep.txt"],
    )

    task(
        "all",
        desc = "main",
        deps = ["prep"],
        env = {"MODE": "test"},
        cmds = [["echo", "done"]],
    )
`

func TestParseCollectsTasks(t *testing.T) {
	list, opts, err := parseFixture(t, basicScript, nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(list) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(list))
	}

	all, ok := list["all"]
	if !ok {
		t.Fatal("task all is missing")
	}

	if all.Desc != "main" || len(all.Deps) != 1 || all.Deps[0] != "prep" {
		t.Errorf("unexpected task %+v", all)
	}

	if all.Env["MODE"] != "test" {
		t.Errorf("env was not picked up: %+v", all.Env)
	}

	greeting, ok := opts["greeting"]
	if !ok || greeting.Default() != "hello" {
		t.Errorf("unexpected options %+v", opts)
	}
}

func TestParseAppliesOptionOverrides(t *testing.T) {
	list, _, err := parseFixture(t, basicScript, map[string]string{"greeting": "salut"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cmd := list["prep"].Cmds[0].(ScriptCmd)
	if !strings.Contains(cmd.Content, "salut") {
		t.Errorf("option override was ignored: %q", cmd.Content)
	}
}

func TestParseRequiresConfigure(t *testing.T) {
	_, _, err := parseFixture(t, `x = 1`, nil)
	if err == nil {
		t.Fatal("a script without configure() must be rejected")
	}
}

func TestParseVenvBin(t *testing.T) {
	script := `def configure():
    task(
        "deps",
        desc = "install",
        cmds = [[venv_bin("pip"), "install", "-r", "requirements.txt"]],
    )
`
	list, _, err := parseFixture(t, script, nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cmd := list["deps"].Cmds[0].(ScriptCmd)
	if !strings.Contains(cmd.Content, ".venv") {
		t.Errorf("venv_bin didn't resolve into the environment: %q", cmd.Content)
	}
}

func TestParseTaskOutputsAcceptPaths(t *testing.T) {
	script := `def configure():
    quiz_bin = resolve_path("//dist/quiz")
    task(
        "build",
        desc = "package",
        inputs = ["//src/**/*.py"],
        outputs = [quiz_bin],
        cmds = [],
    )
`
	list, _, err := parseFixture(t, script, nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	outputs := list["build"].Outputs
	if len(outputs) != 1 {
		t.Fatalf("expected 1 output, got %v", outputs)
	}

	// the declared output has to be a plain path the runner can stat, not a
	// quoted representation
	if strings.ContainsAny(outputs[0], `"'<>`) {
		t.Errorf("output %q is not a plain path", outputs[0])
	}
	if !strings.HasSuffix(outputs[0], filepath.Join("dist", "quiz")) {
		t.Errorf("unexpected output path %q", outputs[0])
	}
}

func TestParseExecuteBuiltin(t *testing.T) {
	script := `out = execute("echo hi")

def configure():
    if out.strip() != "hi":
        error("execute returned %s" % out)

    task("noop", desc = "nothing", cmds = [])
`
	list, _, err := parseFixture(t, script, nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if _, ok := list["noop"]; !ok {
		t.Error("task noop is missing")
	}
}

func TestParseRejectsBadCmdType(t *testing.T) {
	script := `def configure():
    task("broken", desc = "nope", cmds = [42])
`
	_, _, err := parseFixture(t, script, nil)
	if err == nil {
		t.Fatal("numeric commands must be rejected")
	}
}
