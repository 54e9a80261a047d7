package taskfile

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

type (
	runtimeCtxKey struct{}
	runtimeCtx    struct {
		runTasks    map[string]bool
		projectRoot string
	}
)

func getRuntimeCtx(ctx context.Context) *runtimeCtx {
	return ctx.Value(runtimeCtxKey{}).(*runtimeCtx)
}

func getTaskEnv(task *Task) expand.Environ {
	envVars := os.Environ()

	for name, value := range task.Env {
		envVars = append(envVars, name+"="+value)
	}

	return expand.ListEnviron(envVars...)
}

// rerouteExec redirects mv, rm and mkdir to our own cross-platform
// implementations so shell steps behave the same everywhere.
func rerouteExec(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(ctx context.Context, args []string) error {
		if len(args) > 0 {
			switch args[0] {
			case "mv", "rm", "mkdir":
				self, err := os.Executable()
				if err != nil {
					self = "qdev"
				}
				args = append([]string{self}, args...)
			}
		}

		return next(ctx, args)
	}
}

var defaultOpenHandler = interp.DefaultOpenHandler()

func openHandler(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if path == "/dev/null" {
		path = os.DevNull
	}

	return defaultOpenHandler(ctx, path, flag, perm)
}

func shellReadDir(path string) ([]fs.DirEntry, error) {
	if path == "" {
		path = "."
	}

	return os.ReadDir(path)
}

func resolvePatternLists(ctx context.Context, base string, patterns []string) ([]string, error) {
	result := []string{}
	cfg := expand.Config{
		ReadDir2: shellReadDir,
		GlobStar: true,
	}

	parser := syntax.NewParser()
	pctx := &parserCtx{
		filepath:    "invalid",
		projectRoot: getRuntimeCtx(ctx).projectRoot,
	}

	for _, item := range patterns {
		item = normalizePath(pctx, base, item)
		item = filepath.ToSlash(item)

		words := make([]*syntax.Word, 0)
		err := parser.Words(strings.NewReader(item), func(w *syntax.Word) bool {
			words = append(words, w)
			return true
		})
		if err != nil {
			return nil, eris.Wrapf(err, "failed to parse pattern %s", item)
		}

		matches, err := expand.Fields(&cfg, words...)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to resolve pattern %s", item)
		}

		for _, match := range matches {
			// a pattern that didn't match anything is returned verbatim; skip it
			if !strings.Contains(match, "*") {
				result = append(result, match)
			}
		}
	}
	return result, nil
}

// Run executes the named task, running its dependencies first.
func Run(ctx context.Context, projectRoot, name string, tasks List, dryRun, force bool) error {
	rctx := runtimeCtx{
		projectRoot: projectRoot,
		runTasks:    make(map[string]bool),
	}

	ctx = context.WithValue(ctx, runtimeCtxKey{}, &rctx)
	taskMeta, found := tasks[name]
	if !found {
		return eris.Errorf("task %s not found", name)
	}

	return runTaskInternal(ctx, taskMeta, tasks, dryRun, force, true)
}

func runTaskInternal(ctx context.Context, task *Task, tasks List, dryRun, force, canSkip bool) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	rctx := getRuntimeCtx(ctx)
	status, ok := rctx.runTasks[task.Short]
	if ok {
		if status {
			log(ctx).Debug().Msgf("task %s already run", task.Short)
			return nil
		}

		return eris.Errorf("task %s was called recursively", task.Short)
	}

	rctx.runTasks[task.Short] = false

	for _, dep := range task.Deps {
		if rctx.runTasks[dep] {
			continue
		}

		depTask, ok := tasks[dep]
		if !ok {
			return eris.Errorf("task %s not found", dep)
		}

		err := runTaskInternal(ctx, depTask, tasks, dryRun, false, true)
		if err != nil {
			return eris.Wrapf(err, "task %s failed due to its dependency %s", task.Short, dep)
		}
	}

	if canSkip && !force {
		skip, err := shouldSkip(ctx, task)
		if err != nil {
			return err
		}
		if skip {
			rctx.runTasks[task.Short] = true
			return nil
		}
	}

	if !force {
		upToDate, err := outputsUpToDate(ctx, task)
		if err != nil {
			return err
		}
		if upToDate {
			rctx.runTasks[task.Short] = true
			return nil
		}
	}

	err := execCmds(ctx, task, tasks, dryRun, force)
	if err != nil {
		return err
	}

	if task.Short != "" {
		rctx.runTasks[task.Short] = true
	}
	return nil
}

// shouldSkip reports whether all of the task's skip_if_exists entries exist.
func shouldSkip(ctx context.Context, task *Task) (bool, error) {
	skipList, err := resolvePatternLists(ctx, task.Base, task.SkipIfExists)
	if err != nil {
		return false, eris.Wrap(err, "failed to resolve skip_if_exists list")
	}

	found := 0
	for _, item := range skipList {
		_, err := os.Stat(item)
		if err == nil {
			found++
		} else if !eris.Is(err, os.ErrNotExist) {
			return false, eris.Wrapf(err, "failed to check %s", item)
		}
	}

	if found > 0 && found == len(skipList) {
		log(ctx).Info().
			Str("task", task.Short).
			Msg("skipped because all skip files exist")
		return true, nil
	}

	return false, nil
}

// outputsUpToDate reports whether every declared output is newer than the
// newest declared input.
func outputsUpToDate(ctx context.Context, task *Task) (bool, error) {
	inputList, err := resolvePatternLists(ctx, task.Base, task.Inputs)
	if err != nil {
		return false, eris.Wrap(err, "failed to resolve inputs")
	}

	outputList, err := resolvePatternLists(ctx, task.Base, task.Outputs)
	if err != nil {
		return false, eris.Wrap(err, "failed to resolve output list")
	}

	var newestInput time.Time
	for _, item := range inputList {
		fi, err := os.Stat(item)
		if err != nil {
			return false, eris.Wrapf(err, "failed to check input %s", item)
		}

		if fi.ModTime().After(newestInput) {
			newestInput = fi.ModTime()
		}
	}

	if newestInput.IsZero() {
		return false, nil
	}

	var newestOutput time.Time
	for _, item := range outputList {
		fi, err := os.Stat(item)
		if err != nil {
			if eris.Is(err, os.ErrNotExist) {
				return false, nil
			}
			return false, eris.Wrapf(err, "failed to check output %s", item)
		}

		if fi.ModTime().After(newestOutput) {
			newestOutput = fi.ModTime()
		}
	}

	if newestOutput.After(newestInput) {
		log(ctx).Info().
			Str("task", task.Short).
			Msgf("nothing to do (output is %.0f seconds newer)", newestOutput.Sub(newestInput).Seconds())
		return true, nil
	}

	return false, nil
}

func execCmds(ctx context.Context, task *Task, tasks List, dryRun, force bool) error {
	runner, err := interp.New(
		interp.Dir(task.Base),
		interp.Env(getTaskEnv(task)),
		interp.ExecHandlers(rerouteExec),
		interp.OpenHandler(openHandler),
		interp.StdIO(nil, os.Stdout, os.Stderr),
		interp.Params("-e"),
	)
	if err != nil {
		return eris.Wrap(err, "failed to initialize runner")
	}

	parser := syntax.NewParser()
	printer := syntax.NewPrinter(syntax.Minify(true))
	strBuffer := strings.Builder{}

	for _, item := range task.Cmds {
		stmts, err := item.shellStmts(parser)
		if err != nil {
			return eris.Wrap(err, "failed to parse shell script")
		}

		if stmts == nil {
			subTask := item.taskRef()
			if subTask == nil {
				return eris.Errorf("unexpected task command %+v", item)
			}

			err = runTaskInternal(ctx, subTask, tasks, dryRun, force, true)
			if err != nil {
				return err
			}
		}

		for _, stmt := range stmts {
			strBuffer.Reset()
			printer.Print(&strBuffer, stmt)
			log(ctx).Info().
				Str("task", task.Short).
				Bool("command", true).
				Msg(strBuffer.String())

			if dryRun {
				continue
			}

			err = runner.Run(ctx, stmt)
			if err != nil {
				return err
			}

			if runner.Exited() {
				return nil
			}
		}

		if err = ctx.Err(); err != nil {
			return err
		}
	}

	return nil
}
