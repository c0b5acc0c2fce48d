package cli

import (
	"context"
	"strconv"

	flag "github.com/spf13/pflag"
)

// StatusCmd returns the status command.
func StatusCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("status", flag.ContinueOnError),
		Usage: "status",
		Short: "Show database state",
		Long:  "Show the database path, whether it can be written, and the undo history.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			eng, err := a.engine(o)
			if err != nil {
				return err
			}

			o.Println("file=" + eng.Path())
			o.Println("health=" + eng.Health().String())
			o.Println("tasks=" + strconv.Itoa(len(eng.GetAll())))
			o.Println("undo_steps=" + strconv.Itoa(eng.UndoSteps()))

			if desc, ok := eng.NextUndo(); ok {
				o.Println("next_undo=" + desc)
			}

			if err := eng.LoadError(); err != nil {
				o.Println("load_error=" + err.Error())
			}

			return nil
		},
	}
}
