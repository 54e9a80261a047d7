package taskfile

import (
	"context"
	"encoding/gob"
	"maps"
	"os"
	"path/filepath"
)

// CacheFile holds the parsed task list between invocations so the task
// script only has to be re-evaluated when it changes.
const CacheFile = ".task_cache"

func init() {
	gob.Register(List{})
	gob.Register(Task{})
	gob.Register(ScriptCmd{})
	gob.Register(TaskRefCmd{})
}

func WriteCache(file string, options map[string]string, list List) error {
	handle, err := os.Create(file)
	if err != nil {
		return err
	}
	defer handle.Close()

	encoder := gob.NewEncoder(handle)
	err = encoder.Encode(options)
	if err != nil {
		return err
	}

	return encoder.Encode(list)
}

func ReadCache(file string) (map[string]string, List, error) {
	handle, err := os.Open(file)
	if err != nil {
		return nil, nil, err
	}
	defer handle.Close()

	decoder := gob.NewDecoder(handle)

	var options map[string]string
	err = decoder.Decode(&options)
	if err != nil {
		return nil, nil, err
	}

	var result List
	err = decoder.Decode(&result)
	if err != nil {
		return options, nil, err
	}

	return options, result, nil
}

// LoadOrParse returns the project's task list, reusing the cached result if
// the task script hasn't changed since and the same option values are in
// effect. Cache problems are never fatal; the script is simply re-parsed.
func LoadOrParse(ctx context.Context, taskPath, projectRoot string, options map[string]string) (List, error) {
	cachePath := filepath.Join(projectRoot, CacheFile)

	scriptInfo, err := os.Stat(taskPath)
	if err == nil {
		cacheInfo, cErr := os.Stat(cachePath)
		if cErr == nil && cacheInfo.ModTime().After(scriptInfo.ModTime()) {
			cachedOptions, list, rErr := ReadCache(cachePath)
			if rErr == nil && maps.Equal(cachedOptions, options) {
				return list, nil
			}
		}
	}

	list, _, err := Parse(ctx, taskPath, projectRoot, options, true)
	if err != nil {
		return nil, err
	}

	err = WriteCache(cachePath, options, list)
	if err != nil {
		log(ctx).Warn().Err(err).Msgf("failed to write task cache %s", cachePath)
	}

	return list, nil
}
