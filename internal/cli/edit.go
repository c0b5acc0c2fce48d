package cli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/doit/internal/task"
)

var errNoChange = errors.New("nothing to change (use --due, --from/--to or --floating)")

// EditCmd returns the edit command.
func EditCmd(a *app) *Command {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	addDateFlags(fs)
	fs.Bool("floating", false, "Remove all dates")

	return &Command{
		Flags: fs,
		Usage: "edit <ref> [flags]",
		Short: "Change a task's dates or type",
		Long: `Change a task's dates, converting between kinds as needed.

--floating removes the dates, --due makes the task a deadline task and
--from/--to a timed task.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execEdit(o, a, fs, args)
		},
	}
}

func execEdit(o *IO, a *app, fs *flag.FlagSet, args []string) error {
	kind, ok, err := a.kindFromFlags(fs)
	if err != nil {
		return err
	}

	floating, _ := fs.GetBool("floating")

	switch {
	case floating && ok:
		return errConflictingKind
	case floating:
		kind = task.Floating{}
	case !ok:
		return errNoChange
	}

	eng, err := a.engine(o)
	if err != nil {
		return err
	}

	t, err := resolveRef(eng, args)
	if err != nil {
		return err
	}

	changed, err := eng.ChangeKind(t.ID(), kind)
	if err != nil {
		return err
	}

	o.Println(a.formatLine(refs(eng.GetAll())[changed.ID()], changed))

	return nil
}
