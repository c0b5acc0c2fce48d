package cli

import (
	"context"
	"strings"

	flag "github.com/spf13/pflag"
)

// RenameCmd returns the rename command.
func RenameCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("rename", flag.ContinueOnError),
		Usage: "rename <ref> <name>",
		Short: "Rename a task",
		Exec: func(_ context.Context, o *IO, args []string) error {
			eng, err := a.engine(o)
			if err != nil {
				return err
			}

			t, err := resolveRef(eng, args)
			if err != nil {
				return err
			}

			name := strings.TrimSpace(strings.Join(args[1:], " "))
			if name == "" {
				return errNameRequired
			}

			renamed, err := eng.Rename(t.ID(), name)
			if err != nil {
				return err
			}

			o.Printf("renamed %q to %q\n", t.Name(), renamed.Name())

			return nil
		},
	}
}
