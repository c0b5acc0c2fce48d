package filestore

import (
	"time"

	"github.com/calvinalkan/doit/internal/task"
)

// StarterTasks returns the welcome tasks written into a freshly created
// database file, dated relative to now and sorted chronologically.
func StarterTasks(now time.Time) []task.Task {
	now = now.Truncate(time.Minute)
	at := func(days, hour, minute int) time.Time {
		return time.Date(now.Year(), now.Month(), now.Day()+days, hour, minute, 0, 0, now.Location())
	}

	seeds := []struct {
		name string
		kind task.Kind
		done bool
	}{
		{`Welcome to DoIt! Type "help" in the box below to see a list of possible commands.`, task.Deadline{Due: now}, false},
		{`Use the "delete all" command to remove all these and start using DoIt!`, task.Deadline{Due: now.Add(time.Minute)}, false},
		{"Send letter by 3pm tomorrow.", task.Deadline{Due: at(1, 15, 0)}, false},
		{"Dinner with James from 6pm to 8pm tomorrow", task.Timed{Start: at(1, 17, 0), End: at(1, 20, 0)}, false},
		{"You have to finish this report by tomorrow!", task.Deadline{Due: at(1, 23, 59)}, false},
		{"Overseas trip 2 days later from 10am in Day 1 to 11pm in Day 3", task.Timed{Start: at(2, 10, 0), End: at(4, 23, 0)}, false},
		{"a. Tasks with no date are placed here", task.Floating{}, false},
		{"b. Finished this? Tick this box >>>", task.Floating{}, false},
		{"c. This task is finished.", task.Floating{}, true},
		{"d. Double-click on me to edit me", task.Floating{}, true},
		{"e. You can use the calendar below to jump to a selected date", task.Floating{}, false},
	}

	tasks := make([]task.Task, 0, len(seeds))

	for _, s := range seeds {
		t, err := task.New(s.name, s.kind, s.done)
		if err != nil {
			panic("filestore: invalid starter task: " + err.Error())
		}

		tasks = append(tasks, t)
	}

	task.Sort(tasks, task.OrderDate)

	return tasks
}
