package cli

import (
	"context"
	"errors"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/doit/internal/query"
)

var errEmptySearch = errors.New("give keywords, filters or a --from/--to range")

// SearchCmd returns the search command.
func SearchCmd(a *app) *Command {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	addFilterFlags(fs)
	fs.String("from", "", "Start of the date range")
	fs.String("to", "", "End of the date range")

	return &Command{
		Flags: fs,
		Usage: "search [keywords] [flags]",
		Short: "Find tasks by keyword, state, type or date",
		Long: `Find tasks matching every given restriction.

Keywords must all appear in the task name, ignoring case. --from/--to keeps
tasks whose dates clash with the range. Floating tasks never match a range.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execSearch(o, a, fs, args)
		},
	}
}

func execSearch(o *IO, a *app, fs *flag.FlagSet, args []string) error {
	f := filterFromFlags(fs)
	f.Keywords = query.SplitKeywords(strings.Join(args, " "))

	from, _ := fs.GetString("from")
	to, _ := fs.GetString("to")

	if from != "" || to != "" {
		if from == "" || to == "" {
			return errIncompleteRange
		}

		start, err := a.parseTime(from, false)
		if err != nil {
			return err
		}

		end, err := a.parseTime(to, true)
		if err != nil {
			return err
		}

		f.Range = &query.Range{Start: start, End: end}
	}

	if f.IsEmpty() {
		return errEmptySearch
	}

	eng, err := a.engine(o)
	if err != nil {
		return err
	}

	found, err := eng.Search(f)
	if err != nil {
		return err
	}

	if len(found) == 0 {
		o.ErrPrintln("no matching tasks")

		return nil
	}

	a.printTasks(o, found, refs(eng.GetAll()))

	return nil
}
