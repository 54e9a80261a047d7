package taskfile

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
	"mvdan.cc/sh/v3/syntax"
)

// ScriptCmd is a task step given as a shell snippet.
type ScriptCmd struct {
	TaskName string
	Content  string
	Index    int
}

func (s ScriptCmd) taskRef() *Task {
	return nil
}

func (s ScriptCmd) shellStmts(parser *syntax.Parser) ([]*syntax.Stmt, error) {
	reader := strings.NewReader(s.Content)
	result, err := parser.Parse(reader, fmt.Sprintf("%s:%d", s.TaskName, s.Index))
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse command %s", s.Content)
	}

	return result.Stmts, nil
}

// TaskRefCmd is a task step that runs another task.
type TaskRefCmd struct {
	Task *Task
}

func (t TaskRefCmd) taskRef() *Task {
	return t.Task
}

func (t TaskRefCmd) shellStmts(*syntax.Parser) ([]*syntax.Stmt, error) {
	return nil, nil
}

// Cmd is a single step of a task.
type Cmd interface {
	taskRef() *Task
	shellStmts(*syntax.Parser) ([]*syntax.Stmt, error)
}

// Task contains the processed values passed to task() by the task script.
type Task struct {
	Env          map[string]string
	Short        string
	Desc         string
	Base         string
	Deps         []string
	SkipIfExists []string
	Inputs       []string
	Outputs      []string
	Cmds         []Cmd
	Hidden       bool
}

// List maps short names to each declared task.
type List map[string]*Task

// Option is an option() declaration from the task script.
type Option struct {
	DefaultValue starlark.String
	Help         string
}

func (o Option) Default() string {
	return o.DefaultValue.GoString()
}

// Implement starlark.Value for *Task so tasks can be referenced from other
// tasks inside the script.

func (t *Task) String() string {
	return fmt.Sprintf("<Task %s: %s>", t.Short, t.Desc)
}

func (t *Task) Type() string {
	return "task"
}

// Freeze doesn't do anything since tasks are immutable anyway
func (t *Task) Freeze() {}

func (t *Task) Truth() starlark.Bool {
	return starlark.True
}

func (t *Task) Hash() (uint32, error) {
	return 0, eris.New("task is not a hashable type")
}

// Path is a project path produced by resolve_path() or venv_bin().
type Path string

func (p Path) String() string {
	return starlark.String(p).String()
}

func (p Path) Type() string {
	return "path"
}

func (p Path) Freeze() {}

func (p Path) Truth() starlark.Bool {
	return p != ""
}

func (p Path) Hash() (uint32, error) {
	return starlark.String(p).Hash()
}
