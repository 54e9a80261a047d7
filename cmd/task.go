package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/quizproject/devtools/pkg/project"
	"github.com/quizproject/devtools/pkg/taskfile"
)

var taskCmd = &cobra.Command{
	Use:   "task [name=value...] [task...]",
	Short: "Runs tasks declared in tasks.star",
	Long: `Parses the project's tasks.star file and executes the given tasks. Without
arguments the available tasks are listed. name=value arguments override the
script's option() defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, err := cmd.Flags().GetBool("dry")
		if err != nil {
			return err
		}

		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}

		taskArgs := make([]string, 0)
		options := make(map[string]string)
		for _, part := range args {
			pos := strings.Index(part, "=")
			if pos > -1 {
				options[part[:pos]] = part[pos+1:]
			} else {
				taskArgs = append(taskArgs, part)
			}
		}

		return execTasks(cmd.Context(), taskArgs, options, dryRun, force)
	},
}

// execTasks parses the task list and runs the named tasks in order. With no
// names it prints the available tasks instead.
func execTasks(ctx context.Context, names []string, options map[string]string, dryRun, force bool) error {
	logger := newLogger()
	ctx = taskfile.WithLogger(ctx, &logger)

	root, err := project.Root()
	if err != nil {
		return err
	}

	taskPath := filepath.Join(root, project.TaskFile)
	list, err := taskfile.LoadOrParse(ctx, taskPath, root, options)
	if err != nil {
		return eris.Wrap(err, "failed to parse tasks")
	}

	if len(names) == 0 {
		printTaskList(list)
		return nil
	}

	for _, name := range names {
		err = taskfile.Run(ctx, root, name, list, dryRun, force)
		if err != nil {
			return eris.Wrapf(err, "failed task %s", name)
		}
	}

	return nil
}

func printTaskList(list taskfile.List) {
	fmt.Println("Available tasks:")

	maxNameLen := 0
	sortedNames := make([]string, 0, len(list))
	for _, task := range list {
		if len(task.Short) > maxNameLen {
			maxNameLen = len(task.Short)
		}

		sortedNames = append(sortedNames, task.Short)
	}

	sort.Strings(sortedNames)

	lineFmt := fmt.Sprintf(" * %%-%ds %%s\n", maxNameLen+3)
	for _, name := range sortedNames {
		fmt.Printf(lineFmt, name+":", list[name].Desc)
	}
}

func init() {
	taskCmd.Flags().BoolP("dry", "n", false, "dry run; only print the commands, don't execute anything")
	taskCmd.Flags().BoolP("force", "f", false, "always execute the passed tasks even if they don't have to run")

	rootCmd.AddCommand(taskCmd)
}
