// Package cleaner removes the regenerable build and cache artifacts of the
// quiz project. Every removal is idempotent: a target that doesn't exist is
// silently skipped, so running the cleaner twice is a no-op the second time.
package cleaner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/quizproject/devtools/pkg/project"
)

// ErrDeletionFailed is returned when at least one artifact couldn't be
// removed. The cleaner is best-effort: it keeps going past such failures so a
// single locked file doesn't block the rest of the cleanup.
var ErrDeletionFailed = eris.New("some artifacts could not be removed")

// cacheDirNames are directory names that are always safe to delete anywhere
// under src/.
var cacheDirNames = map[string]bool{
	"__pycache__":   true,
	".pytest_cache": true,
	".mypy_cache":   true,
}

const metadataDirSuffix = ".egg-info"

var compiledSuffixes = []string{".pyc", ".pyo"}

// Failure records a single artifact that couldn't be removed.
type Failure struct {
	Path string
	Err  error
}

// Report lists what the cleaner did.
type Report struct {
	Removed []string
	Failed  []Failure
}

func (r *Report) remove(path string, isDir bool) {
	var err error
	if isDir {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}

	if err != nil {
		r.Failed = append(r.Failed, Failure{Path: path, Err: err})
		return
	}

	r.Removed = append(r.Removed, path)
}

// Clean removes build/, dist/ and every packaging-metadata directory, cache
// directory and compiled-cache file under src/. It returns ErrDeletionFailed
// (wrapped) if anything couldn't be removed; the report lists the details
// either way.
func Clean(root string) (*Report, error) {
	report := &Report{}

	for _, dir := range []string{project.BuildDir, project.DistDir} {
		path := filepath.Join(root, dir)
		_, err := os.Stat(path)
		if err != nil {
			// a missing target is fine, anything else must be surfaced
			if !eris.Is(err, os.ErrNotExist) {
				report.Failed = append(report.Failed, Failure{Path: path, Err: err})
			}
			continue
		}

		report.remove(path, true)
	}

	srcPath := filepath.Join(root, project.SourceDir)
	err := filepath.WalkDir(srcPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == srcPath && eris.Is(err, os.ErrNotExist) {
				return filepath.SkipAll
			}

			report.Failed = append(report.Failed, Failure{Path: path, Err: err})
			return nil
		}

		name := d.Name()
		if d.IsDir() && (cacheDirNames[name] || strings.HasSuffix(name, metadataDirSuffix)) {
			report.remove(path, true)
			return filepath.SkipDir
		}

		if !d.IsDir() {
			for _, suffix := range compiledSuffixes {
				if strings.HasSuffix(name, suffix) {
					report.remove(path, false)
					break
				}
			}
		}

		return nil
	})
	if err != nil {
		return report, eris.Wrapf(err, "failed to walk %s", srcPath)
	}

	if len(report.Failed) > 0 {
		return report, eris.Wrapf(ErrDeletionFailed, "%d target(s) remain", len(report.Failed))
	}

	return report, nil
}
