package cmd

import (
	"testing"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/interp"

	"github.com/quizproject/devtools/pkg/cleaner"
	"github.com/quizproject/devtools/pkg/pyenv"
)

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", eris.New("boom"), ExitFailure},
		{"runtime not found", eris.Wrap(pyenv.ErrRuntimeNotFound, "probe"), ExitRuntimeNotFound},
		{"runtime install", eris.Wrap(pyenv.ErrRuntimeInstall, "download"), ExitRuntimeInstall},
		{"env create", eris.Wrap(pyenv.ErrEnvCreate, "venv"), ExitEnvCreate},
		{"deps install", eris.Wrap(pyenv.ErrDepsInstall, "pip"), ExitDepsInstall},
		{"env exists", eris.Wrap(pyenv.ErrEnvExists, "stat"), ExitEnvExists},
		{"deletion failed", eris.Wrap(cleaner.ErrDeletionFailed, "clean"), ExitDeletionFailed},
		// a task whose tool exits non-zero keeps that status
		{"shell exit status", eris.Wrap(interp.NewExitStatus(3), "failed task build"), 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExitCode(tc.err); got != tc.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
