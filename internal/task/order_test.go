package task_test

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"

	"github.com/calvinalkan/doit/internal/task"
)

func names(tasks []task.Task) []string {
	out := make([]string, len(tasks))
	for i, tk := range tasks {
		out[i] = tk.Name()
	}

	return out
}

func Test_Sort_Date_Places_Floating_Last(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	f := mustFloating(t, "F")
	d := mustDeadline(t, "D", now.Add(24*time.Hour))
	tm := mustTimed(t, "T", now, now.Add(7*24*time.Hour))

	tasks := []task.Task{f, d, tm}
	task.Sort(tasks, task.OrderDate)

	if diff := cmp.Diff([]string{"T", "D", "F"}, names(tasks)); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func Test_Compare_Floating_Tasks_Are_Equal(t *testing.T) {
	t.Parallel()

	a := mustFloating(t, "a")
	b := mustFloating(t, "b")

	if got := task.Compare(a, b); got != 0 {
		t.Fatalf("Compare(floating, floating)=%d, want 0", got)
	}
}

func Test_Sort_Orders(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	build := func(t *testing.T) []task.Task {
		t.Helper()

		long := mustTimed(t, "long", base, base.Add(10*time.Hour))
		short := mustTimed(t, "Short", base.Add(time.Hour), base.Add(2*time.Hour))
		due := mustDeadline(t, "due", base.Add(5*time.Hour))
		due.SetDone(true)
		floating := mustFloating(t, "Anything")

		return []task.Task{floating, long, due, short}
	}

	tests := []struct {
		order task.Order
		want  []string
	}{
		{task.OrderDate, []string{"long", "Short", "due", "Anything"}},
		{task.OrderStart, []string{"long", "Short", "due", "Anything"}},
		{task.OrderEnd, []string{"Short", "due", "long", "Anything"}},
		{task.OrderType, []string{"due", "long", "Short", "Anything"}},
		{task.OrderDone, []string{"Anything", "long", "Short", "due"}},
		{task.OrderName, []string{"Anything", "due", "long", "Short"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			t.Parallel()

			tasks := build(t)
			task.Sort(tasks, tt.order)

			if diff := cmp.Diff(tt.want, names(tasks)); diff != "" {
				t.Fatalf("Sort(%s) mismatch (-want +got):\n%s", tt.order, diff)
			}
		})
	}
}

func Test_ParseOrder(t *testing.T) {
	t.Parallel()

	got, err := task.ParseOrder("")
	if err != nil || got != task.OrderDate {
		t.Fatalf("ParseOrder(\"\")=(%q, %v), want (date, nil)", got, err)
	}

	got, err = task.ParseOrder(" NAME ")
	if err != nil || got != task.OrderName {
		t.Fatalf("ParseOrder(NAME)=(%q, %v), want (name, nil)", got, err)
	}

	if _, err := task.ParseOrder("priority"); !errors.Is(err, task.ErrUnknownOrder) {
		t.Fatalf("ParseOrder(priority): err=%v, want ErrUnknownOrder", err)
	}
}

func genTask(t *rapid.T) task.Task {
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(label string) time.Time {
		return base.Add(time.Duration(rapid.IntRange(0, 10_000).Draw(t, label)) * time.Minute)
	}

	name := rapid.StringMatching(`[a-zA-Z][a-zA-Z ]{0,10}`).Draw(t, "name")

	var (
		tk  task.Task
		err error
	)

	switch rapid.IntRange(0, 2).Draw(t, "kind") {
	case 0:
		tk, err = task.NewFloating(name)
	case 1:
		tk, err = task.NewDeadline(name, at("due"))
	default:
		a, b := at("a"), at("b")
		if b.Before(a) {
			a, b = b, a
		}

		tk, err = task.NewTimed(name, a, b)
	}

	if err != nil {
		t.Fatalf("generate task: %v", err)
	}

	tk.SetDone(rapid.Bool().Draw(t, "done"))

	return tk
}

func Test_Compare_Functions_Are_Consistent_Orderings(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		a, b, c := genTask(t), genTask(t), genTask(t)

		for _, order := range task.Orders {
			cmpFn := order.Func()

			if sign(cmpFn(a, b)) != -sign(cmpFn(b, a)) {
				t.Fatalf("%s: not antisymmetric for %v and %v", order, a, b)
			}

			if cmpFn(a, b) <= 0 && cmpFn(b, c) <= 0 && cmpFn(a, c) > 0 {
				t.Fatalf("%s: not transitive for %v, %v, %v", order, a, b, c)
			}
		}
	})
}

func Test_Sort_Date_Never_Places_Dated_After_Floating(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		tasks := rapid.SliceOfN(rapid.Custom(genTask), 0, 20).Draw(t, "tasks")
		task.Sort(tasks, task.OrderDate)

		seenFloating := false
		for _, tk := range tasks {
			if tk.Type() == task.TypeFloating {
				seenFloating = true

				continue
			}

			if seenFloating {
				t.Fatalf("dated task %v after a floating task", tk)
			}
		}

		if !slices.IsSortedFunc(tasks, task.Compare) {
			t.Fatal("result not sorted by Compare")
		}
	})
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
