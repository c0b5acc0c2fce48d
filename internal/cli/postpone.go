package cli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/doit/internal/task"
)

var errPostponeHow = errors.New("use one of --by, --due or --from/--to")

// PostponeCmd returns the postpone command.
func PostponeCmd(a *app) *Command {
	fs := flag.NewFlagSet("postpone", flag.ContinueOnError)
	addDateFlags(fs)
	fs.String("by", "", "Shift all dates by a duration such as 2h or 3d")

	return &Command{
		Flags: fs,
		Usage: "postpone <ref> [flags]",
		Short: "Move a dated task to new dates",
		Long: `Move a deadline or timed task to new dates of the same kind.

--by shifts every date of the task. --due sets a new deadline and --from/--to
a new time slot. Floating tasks cannot be postponed.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execPostpone(o, a, fs, args)
		},
	}
}

func execPostpone(o *IO, a *app, fs *flag.FlagSet, args []string) error {
	kind, ok, err := a.kindFromFlags(fs)
	if err != nil {
		return err
	}

	by, _ := fs.GetString("by")
	if (by == "") == !ok {
		return errPostponeHow
	}

	eng, err := a.engine(o)
	if err != nil {
		return err
	}

	t, err := resolveRef(eng, args)
	if err != nil {
		return err
	}

	var moved task.Task

	if by != "" {
		d, err := parseDuration(by)
		if err != nil {
			return err
		}

		moved, err = eng.PostponeBy(t.ID(), d)
		if err != nil {
			return err
		}
	} else {
		moved, err = eng.Postpone(t.ID(), kind)
		if err != nil {
			return err
		}
	}

	o.Println(a.formatLine(refs(eng.GetAll())[moved.ID()], moved))

	return nil
}
