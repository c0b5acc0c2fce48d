package cli

import (
	"context"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/doit/internal/task"
)

// AddCmd returns the add command.
func AddCmd(a *app) *Command {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	addDateFlags(fs)
	fs.Bool("done", false, "Add the task as already completed")

	return &Command{
		Flags: fs,
		Usage: "add <name> [flags]",
		Short: "Add a task, prints its ref",
		Long: `Add a new task. Prints the task's ref on success.

Without dates the task is floating. --due makes it a deadline task and
--from/--to a timed task. A bare date for --due or --to means the end of
that day.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execAdd(o, a, fs, args)
		},
	}
}

func execAdd(o *IO, a *app, fs *flag.FlagSet, args []string) error {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		return errNameRequired
	}

	kind, ok, err := a.kindFromFlags(fs)
	if err != nil {
		return err
	}

	if !ok {
		kind = task.Floating{}
	}

	done, _ := fs.GetBool("done")

	t, err := task.New(name, kind, done)
	if err != nil {
		return err
	}

	eng, err := a.engine(o)
	if err != nil {
		return err
	}

	if err := eng.Add(t); err != nil {
		return err
	}

	o.Println(refs(eng.GetAll())[t.ID()])

	return nil
}
