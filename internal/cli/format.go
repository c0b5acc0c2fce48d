package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/doit/internal/engine"
	"github.com/calvinalkan/doit/internal/query"
	"github.com/calvinalkan/doit/internal/task"
)

// displayLayout is how dates are shown and entered on the command line.
const displayLayout = "2006-01-02 15:04"

var inputLayouts = []string{displayLayout, "2006-01-02T15:04", "2006-01-02"}

var (
	errRefRequired     = errors.New("task reference is required")
	errInvalidRef      = errors.New("invalid task reference")
	errNoSuchRef       = errors.New("no such task")
	errNameRequired    = errors.New("name is required")
	errInvalidDate     = errors.New("invalid date (use YYYY-MM-DD or \"YYYY-MM-DD HH:MM\")")
	errInvalidDuration = errors.New("invalid duration")
	errConflictingKind = errors.New("use either --due or --from/--to")
	errIncompleteRange = errors.New("--from and --to must be given together")
)

// parseTime reads a date entered by the user. A bare date means midnight,
// or the last minute of the day when endOfDay is set.
func (a *app) parseTime(s string, endOfDay bool) (time.Time, error) {
	for _, layout := range inputLayouts {
		t, err := time.ParseInLocation(layout, strings.TrimSpace(s), a.loc)
		if err != nil {
			continue
		}

		if layout == "2006-01-02" && endOfDay {
			t = time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 0, 0, a.loc)
		}

		return t, nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", errInvalidDate, s)
}

// parseDuration accepts Go durations plus a whole-day suffix such as "3d".
func parseDuration(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errInvalidDuration, s)
		}

		return time.Duration(n) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errInvalidDuration, s)
	}

	return d, nil
}

// addDateFlags registers --due, --from and --to on fs.
func addDateFlags(fs *flag.FlagSet) {
	fs.String("due", "", "Deadline (YYYY-MM-DD [HH:MM])")
	fs.String("from", "", "Start of the time slot")
	fs.String("to", "", "End of the time slot")
}

// kindFromFlags builds the kind described by --due or --from/--to. ok is
// false when none of them was given.
func (a *app) kindFromFlags(fs *flag.FlagSet) (task.Kind, bool, error) {
	due, _ := fs.GetString("due")
	from, _ := fs.GetString("from")
	to, _ := fs.GetString("to")

	switch {
	case due != "" && (from != "" || to != ""):
		return nil, false, errConflictingKind
	case due != "":
		t, err := a.parseTime(due, true)
		if err != nil {
			return nil, false, err
		}

		return task.Deadline{Due: t}, true, nil
	case from != "" || to != "":
		if from == "" || to == "" {
			return nil, false, errIncompleteRange
		}

		start, err := a.parseTime(from, false)
		if err != nil {
			return nil, false, err
		}

		end, err := a.parseTime(to, true)
		if err != nil {
			return nil, false, err
		}

		return task.Timed{Start: start, End: end}, true, nil
	default:
		return nil, false, nil
	}
}

// addFilterFlags registers the completion and type filters on fs.
func addFilterFlags(fs *flag.FlagSet) {
	fs.Bool("done", false, "Only completed tasks")
	fs.Bool("undone", false, "Only incomplete tasks")
	fs.Bool("floating", false, "Only floating tasks")
	fs.Bool("deadline", false, "Only deadline tasks")
	fs.Bool("timed", false, "Only timed tasks")
}

func filterFromFlags(fs *flag.FlagSet) query.Filter {
	var f query.Filter

	f.CompletedOnly, _ = fs.GetBool("done")
	f.IncompleteOnly, _ = fs.GetBool("undone")
	f.FloatingOnly, _ = fs.GetBool("floating")
	f.DeadlineOnly, _ = fs.GetBool("deadline")
	f.TimedOnly, _ = fs.GetBool("timed")

	return f
}

// refs maps task IDs to the 1-based positions shown by "doit ls". The
// positions match the index column of the database file.
func refs(all []task.Task) map[int64]int {
	m := make(map[int64]int, len(all))
	for i, t := range all {
		m[t.ID()] = i + 1
	}

	return m
}

// resolveRefs turns position arguments into tasks. A ref given twice
// yields its task once.
func resolveRefs(eng *engine.Engine, args []string) ([]task.Task, error) {
	if len(args) == 0 {
		return nil, errRefRequired
	}

	all := eng.GetAll()
	out := make([]task.Task, 0, len(args))
	seen := make(map[int]bool, len(args))

	for _, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errInvalidRef, arg)
		}

		if n < 1 || n > len(all) {
			return nil, fmt.Errorf("%w: %d", errNoSuchRef, n)
		}

		if seen[n] {
			continue
		}

		seen[n] = true
		out = append(out, all[n-1])
	}

	return out, nil
}

func resolveRef(eng *engine.Engine, args []string) (task.Task, error) {
	if len(args) == 0 {
		return task.Task{}, errRefRequired
	}

	ts, err := resolveRefs(eng, args[:1])
	if err != nil {
		return task.Task{}, err
	}

	return ts[0], nil
}

func ids(tasks []task.Task) []int64 {
	out := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID())
	}

	return out
}

// columns returns the start and end column text of t.
func (a *app) columns(t task.Task) (string, string) {
	if due, ok := t.Due(); ok {
		return due.In(a.loc).Format(displayLayout), "-"
	}

	if start, end, ok := t.Interval(); ok {
		return start.In(a.loc).Format(displayLayout), end.In(a.loc).Format(displayLayout)
	}

	return "-", "-"
}

// formatLine renders one task for list output.
func (a *app) formatLine(ref int, t task.Task) string {
	mark := " "
	if t.Done() {
		mark = "x"
	}

	start, end := a.columns(t)

	return fmt.Sprintf("%3d [%s] %-8s  %-16s  %-16s  %s", ref, mark, t.Type(), start, end, t.Name())
}

func (a *app) printTasks(o *IO, tasks []task.Task, pos map[int64]int) {
	for _, t := range tasks {
		o.Println(a.formatLine(pos[t.ID()], t))
	}
}
