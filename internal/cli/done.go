package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// DoneCmd returns the done command, or the undone command when done is
// false.
func DoneCmd(a *app, done bool) *Command {
	name, short := "done", "Mark tasks as completed"
	if !done {
		name, short = "undone", "Mark tasks as not completed"
	}

	return &Command{
		Flags: flag.NewFlagSet(name, flag.ContinueOnError),
		Usage: name + " <ref>...",
		Short: short,
		Long:  short + ". All tasks change in one step, so one undo reverts them.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			eng, err := a.engine(o)
			if err != nil {
				return err
			}

			tasks, err := resolveRefs(eng, args)
			if err != nil {
				return err
			}

			changed, err := eng.MarkDone(ids(tasks), done)
			if err != nil {
				return err
			}

			for _, t := range changed {
				o.Println(name+":", t.Name())
			}

			return nil
		},
	}
}
