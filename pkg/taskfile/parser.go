package taskfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/aidarkhanov/nanoid"
	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
	"mvdan.cc/sh/v3/syntax"

	"github.com/quizproject/devtools/pkg/pyenv"
)

type parserCtx struct {
	ctx          context.Context
	options      map[string]Option
	optionValues map[string]string
	envOverrides map[string]string
	filepath     string
	projectRoot  string
	tasks        []*Task
	initPhase    bool
}

func getCtx(thread *starlark.Thread) *parserCtx {
	return thread.Local("parserCtx").(*parserCtx)
}

// parseEnvAssigns turns leading KEY=VALUE strings of a command tuple into a
// shell call expression carrying those assignments. It returns the expression
// and the number of tuple elements it consumed.
func parseEnvAssigns(parts starlark.Tuple, parser *syntax.Parser) (*syntax.CallExpr, int, error) {
	count := 0
	for _, part := range parts {
		value, ok := part.(starlark.String)
		if !ok || !strings.Contains(value.GoString(), "=") {
			break
		}
		count++
	}

	if count == 0 {
		return new(syntax.CallExpr), 0, nil
	}

	assigns := make([]string, count)
	for idx := 0; idx < count; idx++ {
		assigns[idx] = string(parts[idx].(starlark.String))
	}

	joined := strings.Join(assigns, " ")
	result, err := parser.Parse(strings.NewReader(joined), "env vars")
	if err != nil {
		return nil, 0, eris.Wrapf(err, "failed to parse command vars %s", joined)
	}

	if len(result.Stmts) != 1 {
		return nil, 0, eris.Errorf("malformed env vars %s", joined)
	}

	cmd, ok := result.Stmts[0].Cmd.(*syntax.CallExpr)
	if !ok || cmd.Assigns == nil {
		return nil, 0, eris.Errorf("malformed env vars %s", joined)
	}

	return cmd, count, nil
}

// cmdWord wraps a single command argument in the right shell word node,
// quoting it when necessary.
func cmdWord(value string) *syntax.Word {
	var part syntax.WordPart
	if strings.ContainsAny(value, " $'") {
		part = &syntax.SglQuoted{Value: value}
	} else {
		part = &syntax.Lit{Value: value}
	}

	return &syntax.Word{Parts: []syntax.WordPart{part}}
}

// processCmdParts turns a ("VAR=x", "cmd", arg, ...) tuple into a single
// shell call expression.
func processCmdParts(parts starlark.Tuple, parser *syntax.Parser, base string) (*syntax.CallExpr, error) {
	cmd, skip, err := parseEnvAssigns(parts, parser)
	if err != nil {
		return nil, err
	}

	cmd.Args = make([]*syntax.Word, 0, len(parts)-skip)
	for _, arg := range parts[skip:] {
		value, ok := stringOrPath(arg)
		if !ok {
			return nil, eris.Errorf("found argument of type %s but only strings and paths are supported: %s", arg.Type(), arg.String())
		}

		if _, isPath := arg.(Path); isPath {
			if filepath.IsAbs(value) {
				// absolute paths cause issues on Windows
				if relValue, err := filepath.Rel(base, value); err == nil {
					value = relValue
				}
			}
			value = filepath.ToSlash(value)
		}

		cmd.Args = append(cmd.Args, cmdWord(value))
	}

	return cmd, nil
}

func info(thread *starlark.Thread, msg string, args ...interface{}) {
	ctx := getCtx(thread)
	pos := thread.CallFrame(1).Pos

	log(ctx.ctx).Info().
		Msgf("%s:%d:%d: %s", simplifyPath(ctx, ctx.filepath), pos.Line, pos.Col, fmt.Sprintf(msg, args...))
}

func warn(thread *starlark.Thread, msg string, args ...interface{}) {
	ctx := getCtx(thread)
	pos := thread.CallFrame(1).Pos

	log(ctx.ctx).Warn().
		Msgf("%s:%d:%d: %s", simplifyPath(ctx, ctx.filepath), pos.Line, pos.Col, fmt.Sprintf(msg, args...))
}

func option(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var defaultValue starlark.String
	var help string

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "default?", &defaultValue, "help?", &help)
	if err != nil {
		return nil, err
	}

	ctx := getCtx(thread)
	if !ctx.initPhase {
		return nil, eris.New("can only be called during the init phase (in the global scope)")
	}

	ctx.options[name] = Option{
		DefaultValue: defaultValue,
		Help:         help,
	}

	if value, ok := ctx.optionValues[name]; ok {
		return starlark.String(value), nil
	}

	return defaultValue, nil
}

func task(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var deps *starlark.List
	var skipIfExists *starlark.List
	var inputs *starlark.List
	var outputs *starlark.List
	var env *starlark.Dict
	var cmds *starlark.List

	task := new(Task)

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "short??", &task.Short, "hidden?", &task.Hidden,
		"desc?", &task.Desc, "deps?", &deps, "base?", &task.Base, "skip_if_exists?", &skipIfExists, "inputs?",
		&inputs, "outputs?", &outputs, "env?", &env, "cmds?", &cmds)
	if err != nil {
		return nil, err
	}

	if task.Short == "" {
		task.Hidden = true
		task.Short = "auto#" + nanoid.New()
	}

	if task.Base == "" {
		task.Base = "."
	}
	task.Base = normalizePath(getCtx(thread), task.Base)

	for field, lst := range map[string]struct {
		src *starlark.List
		out *[]string
	}{
		"deps":           {deps, &task.Deps},
		"skip_if_exists": {skipIfExists, &task.SkipIfExists},
		"inputs":         {inputs, &task.Inputs},
		"outputs":        {outputs, &task.Outputs},
	} {
		*lst.out, err = iterableToStrings(lst.src, field)
		if err != nil {
			return nil, err
		}
	}

	task.Env, err = dictToStringMap(env, "env")
	if err != nil {
		return nil, err
	}

	if cmds != nil {
		task.Cmds, err = processCmds(thread, fn, task, cmds)
		if err != nil {
			return nil, err
		}
	}

	if len(task.Inputs) > 0 && len(task.Outputs) == 0 {
		warn(thread, "%s: found inputs but no outputs", fn.Name())
	}

	if !task.Hidden {
		ctx := getCtx(thread)
		ctx.tasks = append(ctx.tasks, task)
	}
	return task, nil
}

func processCmds(thread *starlark.Thread, fn *starlark.Builtin, task *Task, cmds *starlark.List) ([]Cmd, error) {
	strBuffer := strings.Builder{}
	printer := syntax.NewPrinter(syntax.Minify(true))
	parser := syntax.NewParser()
	result := make([]Cmd, 0, cmds.Len())

	iter := cmds.Iterate()
	defer iter.Done()

	var item starlark.Value
	idx := 0
	for iter.Next(&item) {
		var parts starlark.Tuple

		switch value := item.(type) {
		case starlark.String:
			result = append(result, ScriptCmd{TaskName: task.Short, Index: idx, Content: value.GoString()})
			idx++
			continue
		case *Task:
			result = append(result, TaskRefCmd{Task: value})
			idx++
			continue
		case starlark.Tuple:
			parts = value
		case *starlark.List:
			parts = make(starlark.Tuple, 0, value.Len())
			subIter := value.Iterate()
			var subItem starlark.Value
			for subIter.Next(&subItem) {
				parts = append(parts, subItem)
			}
			subIter.Done()
		default:
			return nil, eris.Errorf("%s: unexpected type %s. Only strings, tuples, lists and tasks are valid", fn.Name(), item.Type())
		}

		cmd, err := processCmdParts(parts, parser, task.Base)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to process command #%d", idx)
		}

		strBuffer.Reset()
		err = printer.Print(&strBuffer, cmd)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to process command #%d", idx)
		}

		result = append(result, ScriptCmd{TaskName: task.Short, Index: idx, Content: strBuffer.String()})
		idx++
	}

	return result, nil
}

func newBuiltins() starlark.StringDict {
	return starlark.StringDict{
		"OS":             starlark.String(runtime.GOOS),
		"ARCH":           starlark.String(runtime.GOARCH),
		"PYTHON_VERSION": starlark.String(pyenv.RequiredPython),
		"info":           starlark.NewBuiltin("info", starInfo),
		"warn":           starlark.NewBuiltin("warn", starWarn),
		"error":          starlark.NewBuiltin("error", starError),
		"resolve_path":   starlark.NewBuiltin("resolve_path", resolvePath),
		"venv_bin":       starlark.NewBuiltin("venv_bin", starVenvBin),
		"option":         starlark.NewBuiltin("option", option),
		"getenv":         starlark.NewBuiltin("getenv", getenv),
		"setenv":         starlark.NewBuiltin("setenv", setenv),
		"prepend_path":   starlark.NewBuiltin("prepend_path", prependPathDir),
		"isdir":          starlark.NewBuiltin("isdir", starIsdir),
		"isfile":         starlark.NewBuiltin("isfile", starIsfile),
		"execute":        starlark.NewBuiltin("execute", starExec),
		"task":           starlark.NewBuiltin("task", task),
	}
}

// callConfigure runs the script's configure() function, which declares the
// actual tasks.
func callConfigure(thread *starlark.Thread, globals starlark.StringDict, tctx *parserCtx) (List, error) {
	name := simplifyPath(tctx, tctx.filepath)

	configure, ok := globals["configure"]
	if !ok {
		return nil, eris.Errorf("%s did not declare a configure function", name)
	}

	configureFunc, ok := configure.(starlark.Callable)
	if !ok {
		return nil, eris.Errorf("%s did declare a configure value but it's not a function", name)
	}

	tctx.initPhase = false
	_, err := starlark.Call(thread, configureFunc, nil, nil)
	if err != nil {
		if evalError, ok := err.(*starlark.EvalError); ok {
			return nil, eris.New(evalError.Backtrace())
		}
		return nil, eris.Wrapf(err, "failed configure call in %s", name)
	}

	tasks := List{}
	for _, task := range tctx.tasks {
		tasks[task.Short] = task

		// env overrides set through setenv()/prepend_path() apply to every
		// task that doesn't set the variable itself
		for name, value := range tctx.envOverrides {
			if _, present := task.Env[name]; !present {
				task.Env[name] = value
			}
		}
	}

	return tasks, nil
}

// Parse executes the given task script and returns the declared options. If
// doConfigure is true, the script's configure function is called and the
// declared tasks are collected and returned.
func Parse(ctx context.Context, filename, projectRoot string, options map[string]string, doConfigure bool) (List, map[string]Option, error) {
	projectRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, nil, err
	}

	filename, err = filepath.Abs(filename)
	if err != nil {
		return nil, nil, err
	}

	thread := &starlark.Thread{
		Name: "main",
		Print: func(thread *starlark.Thread, msg string) {
			log(ctx).Info().Str("thread", thread.Name).Msg(msg)
		},
	}
	threadCtx := parserCtx{
		ctx:          ctx,
		filepath:     filename,
		projectRoot:  projectRoot,
		options:      make(map[string]Option),
		optionValues: options,
		envOverrides: make(map[string]string),
		tasks:        make([]*Task, 0),
		initPhase:    true,
	}
	thread.SetLocal("parserCtx", &threadCtx)

	script, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, eris.Wrap(err, "failed to read file")
	}

	globals, err := starlark.ExecFile(thread, simplifyPath(&threadCtx, filename), script, newBuiltins())
	if err != nil {
		if evalError, ok := err.(*starlark.EvalError); ok {
			return nil, nil, eris.Errorf("failed to execute %s:\n%s", simplifyPath(&threadCtx, filename), evalError.Backtrace())
		}
		return nil, nil, eris.Wrap(err, "failed to execute")
	}

	tasks := List{}
	if doConfigure {
		tasks, err = callConfigure(thread, globals, &threadCtx)
		if err != nil {
			return nil, nil, err
		}
	}

	return tasks, threadCtx.options, nil
}
