package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// RmCmd returns the rm command.
func RmCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("rm", flag.ContinueOnError),
		Usage: "rm <ref>...",
		Short: "Delete tasks",
		Long:  "Delete the given tasks in one step. Nothing is deleted if any ref is invalid.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			eng, err := a.engine(o)
			if err != nil {
				return err
			}

			tasks, err := resolveRefs(eng, args)
			if err != nil {
				return err
			}

			if err := eng.DeleteMany(ids(tasks)); err != nil {
				return err
			}

			for _, t := range tasks {
				o.Println("deleted:", t.Name())
			}

			return nil
		},
	}
}

// ClearCmd returns the clear command.
func ClearCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("clear", flag.ContinueOnError),
		Usage: "clear",
		Short: "Delete all tasks",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			eng, err := a.engine(o)
			if err != nil {
				return err
			}

			n := len(eng.GetAll())

			if err := eng.DeleteAll(); err != nil {
				return err
			}

			o.Printf("deleted %d tasks\n", n)

			return nil
		},
	}
}
