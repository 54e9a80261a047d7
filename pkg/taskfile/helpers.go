package taskfile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
)

// normalizePath joins the given path elements relative to the task script's
// directory. A leading "//" anchors a path at the project root, a leading "/"
// at the volume root.
func normalizePath(ctx *parserCtx, pathList ...string) string {
	result := filepath.Dir(ctx.filepath)

	for _, path := range pathList {
		switch {
		case strings.HasPrefix(path, "//"):
			result = filepath.Join(ctx.projectRoot, path[2:])
		case strings.HasPrefix(path, "/"):
			result = filepath.Join(filepath.VolumeName(result), path)
		case filepath.IsAbs(path):
			result = path
		default:
			result = filepath.Join(result, path)
		}
	}

	return filepath.Clean(result)
}

func simplifyPath(ctx *parserCtx, path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	if strings.HasPrefix(absPath, ctx.projectRoot) {
		return "//" + absPath[len(ctx.projectRoot)+1:]
	}
	return path
}

// stringOrPath unwraps the two starlark types that can stand in for a
// filesystem path.
func stringOrPath(value starlark.Value) (string, bool) {
	switch value := value.(type) {
	case starlark.String:
		return value.GoString(), true
	case Path:
		return string(value), true
	}
	return "", false
}

func getEnvVars(ctx *parserCtx) []string {
	osEnv := os.Environ()
	shellEnv := make([]string, 0, len(osEnv)+len(ctx.envOverrides))
	for _, item := range osEnv {
		parts := strings.SplitN(item, "=", 2)
		if runtime.GOOS == "windows" {
			parts[0] = strings.ToUpper(parts[0])
		}

		// skip overridden entries to avoid conflicts
		if _, present := ctx.envOverrides[parts[0]]; !present {
			shellEnv = append(shellEnv, item)
		}
	}

	for k, v := range ctx.envOverrides {
		shellEnv = append(shellEnv, fmt.Sprintf("%s=%s", k, v))
	}

	return shellEnv
}

type starlarkIterable interface {
	Len() int
	Iterate() starlark.Iterator
}

func iterableToStrings(input starlarkIterable, field string) ([]string, error) {
	if value, ok := input.(*starlark.List); ok && value == nil {
		return []string{}, nil
	}

	result := make([]string, 0, input.Len())
	iter := input.Iterate()
	defer iter.Done()

	var item starlark.Value
	for iter.Next(&item) {
		str, ok := stringOrPath(item)
		if !ok {
			return nil, eris.Errorf("expected all items in %s to be strings but found %s", field, item.Type())
		}
		result = append(result, str)
	}
	return result, nil
}

// dictToStringMap converts a starlark dict with string keys and values, as
// used for a task's env block.
func dictToStringMap(dict *starlark.Dict, field string) (map[string]string, error) {
	result := make(map[string]string)
	if dict == nil {
		return result, nil
	}

	for _, item := range dict.Items() {
		key, ok := item[0].(starlark.String)
		if !ok {
			return nil, eris.Errorf("found key of type %s in %s but only strings are supported", item[0].Type(), field)
		}

		value, ok := item[1].(starlark.String)
		if !ok {
			return nil, eris.Errorf("found value of type %s for key %s in %s but only strings are supported", item[1].Type(), key.GoString(), field)
		}

		result[key.GoString()] = value.GoString()
	}

	return result, nil
}
