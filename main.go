package main

import (
	"os"

	"github.com/quizproject/devtools/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
