package cli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/doit/internal/undo"
)

var errNothingToUndo = errors.New("there is no more change to undo")

// UndoCmd returns the undo command.
func UndoCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("undo", flag.ContinueOnError),
		Usage: "undo",
		Short: "Revert the most recent change",
		Long: `Revert the most recent change made in this session.

The history lives in memory, so it covers the changes made inside one
"doit shell" session.`,
		Exec: func(_ context.Context, o *IO, _ []string) error {
			eng, err := a.engine(o)
			if err != nil {
				return err
			}

			desc, err := eng.Undo()
			if errors.Is(err, undo.ErrNoMoreUndo) {
				return errNothingToUndo
			}

			if err != nil {
				return err
			}

			o.Printf("The %s has been undone\n", desc)

			return nil
		},
	}
}
