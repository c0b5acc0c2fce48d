package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/calvinalkan/doit/internal/task"
)

// LsCmd returns the ls command.
func LsCmd(a *app) *Command {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	addFilterFlags(fs)
	fs.StringP("sort", "s", "", "Order: "+orderNames())
	fs.Bool("yaml", false, "Print tasks as YAML")

	return &Command{
		Flags: fs,
		Usage: "ls [flags]",
		Short: "List tasks",
		Long: `List tasks in chronological order.

The number in the first column is the task's ref, used by the commands
that change a task. It does not depend on --sort.`,
		Exec: func(_ context.Context, o *IO, _ []string) error {
			return execLs(o, a, fs)
		},
	}
}

func execLs(o *IO, a *app, fs *flag.FlagSet) error {
	order := a.cfg.Order

	if s, _ := fs.GetString("sort"); s != "" {
		var err error

		order, err = task.ParseOrder(s)
		if err != nil {
			return err
		}
	}

	eng, err := a.engine(o)
	if err != nil {
		return err
	}

	tasks, err := eng.Search(filterFromFlags(fs))
	if err != nil {
		return err
	}

	task.Sort(tasks, order)

	pos := refs(eng.GetAll())

	if asYAML, _ := fs.GetBool("yaml"); asYAML {
		return a.printYAML(o, tasks, pos)
	}

	a.printTasks(o, tasks, pos)

	return nil
}

type yamlTask struct {
	Ref   int    `yaml:"ref"`
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Done  bool   `yaml:"done"`
	Due   string `yaml:"due,omitempty"`
	Start string `yaml:"start,omitempty"`
	End   string `yaml:"end,omitempty"`
}

func (a *app) printYAML(o *IO, tasks []task.Task, pos map[int64]int) error {
	out := make([]yamlTask, 0, len(tasks))

	for _, t := range tasks {
		y := yamlTask{Ref: pos[t.ID()], Name: t.Name(), Type: t.Type().String(), Done: t.Done()}

		if due, ok := t.Due(); ok {
			y.Due = due.In(a.loc).Format(displayLayout)
		}

		if start, end, ok := t.Interval(); ok {
			y.Start = start.In(a.loc).Format(displayLayout)
			y.End = end.In(a.loc).Format(displayLayout)
		}

		out = append(out, y)
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}

	o.Printf("%s", data)

	return nil
}

func orderNames() string {
	var s string

	for i, o := range task.Orders {
		if i > 0 {
			s += "|"
		}

		s += string(o)
	}

	return s
}
