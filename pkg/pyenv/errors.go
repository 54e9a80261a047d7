package pyenv

import "github.com/rotisserie/eris"

// Failure classes of the bootstrap flow. The cmd package maps each one to a
// distinct process exit code.
var (
	ErrRuntimeNotFound = eris.New("no suitable Python interpreter found")
	ErrRuntimeInstall  = eris.New("automated Python runtime install failed")
	ErrEnvCreate       = eris.New("failed to create the virtual environment")
	ErrDepsInstall     = eris.New("failed to install the project dependencies")
	ErrEnvExists       = eris.New("the virtual environment already exists")
)
