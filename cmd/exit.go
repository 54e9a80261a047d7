package cmd

import (
	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/interp"

	"github.com/quizproject/devtools/pkg/cleaner"
	"github.com/quizproject/devtools/pkg/pyenv"
)

// Exit codes form the toolchain's contract with CI jobs and wrapper scripts:
// every failure class gets its own code.
const (
	ExitOK              = 0
	ExitFailure         = 1
	ExitRuntimeNotFound = 10
	ExitRuntimeInstall  = 11
	ExitEnvCreate       = 12
	ExitDepsInstall     = 13
	ExitEnvExists       = 14
	ExitDeletionFailed  = 20
)

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case eris.Is(err, pyenv.ErrEnvExists):
		return ExitEnvExists
	case eris.Is(err, pyenv.ErrRuntimeInstall):
		return ExitRuntimeInstall
	case eris.Is(err, pyenv.ErrRuntimeNotFound):
		return ExitRuntimeNotFound
	case eris.Is(err, pyenv.ErrEnvCreate):
		return ExitEnvCreate
	case eris.Is(err, pyenv.ErrDepsInstall):
		return ExitDepsInstall
	case eris.Is(err, cleaner.ErrDeletionFailed):
		return ExitDeletionFailed
	}

	// a failed shell step keeps the exit status of the tool that ran
	if status, ok := interp.IsExitStatus(err); ok {
		return int(status)
	}

	return ExitFailure
}
