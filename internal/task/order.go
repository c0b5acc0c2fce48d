package task

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Order names one of the comparison functions below.
type Order string

// Supported orders.
const (
	OrderDate  Order = "date"
	OrderType  Order = "type"
	OrderDone  Order = "done"
	OrderStart Order = "start"
	OrderEnd   Order = "end"
	OrderName  Order = "name"
)

// Orders lists every supported order, default first.
var Orders = []Order{OrderDate, OrderType, OrderDone, OrderStart, OrderEnd, OrderName}

// ParseOrder maps a user supplied name onto an [Order]. The empty string
// selects [OrderDate].
func ParseOrder(s string) (Order, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return OrderDate, nil
	}

	for _, o := range Orders {
		if string(o) == s {
			return o, nil
		}
	}

	return "", fmt.Errorf("%w: %q (valid: %s)", ErrUnknownOrder, s, joinOrders())
}

func joinOrders() string {
	names := make([]string, len(Orders))
	for i, o := range Orders {
		names[i] = string(o)
	}

	return strings.Join(names, ", ")
}

// Func returns the comparison function for o, or [Compare] for an unknown
// order.
func (o Order) Func() func(a, b Task) int {
	switch o {
	case OrderType:
		return CompareType
	case OrderDone:
		return CompareDone
	case OrderStart:
		return CompareStart
	case OrderEnd:
		return CompareEnd
	case OrderName:
		return CompareName
	default:
		return Compare
	}
}

// Sort orders tasks in place. The sort is stable so ties keep their
// relative order.
func Sort(tasks []Task, o Order) {
	slices.SortStableFunc(tasks, o.Func())
}

// Compare is the default chronological order. Deadline tasks compare by due
// date and timed tasks by start. Floating tasks sort after all dated tasks
// and are equal to each other.
func Compare(a, b Task) int {
	ai, aok := a.Instant()
	bi, bok := b.Instant()

	return compareOptional(ai, aok, bi, bok)
}

// CompareType orders deadline before timed before floating.
func CompareType(a, b Task) int {
	return int(a.Type()) - int(b.Type())
}

// CompareDone orders undone tasks before done ones.
func CompareDone(a, b Task) int {
	switch {
	case a.done == b.done:
		return 0
	case !a.done:
		return -1
	default:
		return 1
	}
}

// CompareStart orders by start instant, which is the due date for deadline
// tasks. Floating tasks sort last.
func CompareStart(a, b Task) int {
	return Compare(a, b)
}

// CompareEnd orders by end instant, which is the due date for deadline
// tasks. Floating tasks sort last.
func CompareEnd(a, b Task) int {
	ae, aok := endInstant(a)
	be, bok := endInstant(b)

	return compareOptional(ae, aok, be, bok)
}

// CompareName orders by name, ignoring case.
func CompareName(a, b Task) int {
	return strings.Compare(strings.ToLower(a.name), strings.ToLower(b.name))
}

func endInstant(t Task) (time.Time, bool) {
	switch k := t.kind.(type) {
	case Deadline:
		return k.Due, true
	case Timed:
		return k.End, true
	default:
		return time.Time{}, false
	}
}

func compareOptional(a time.Time, aok bool, b time.Time, bok bool) int {
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	default:
		return a.Compare(b)
	}
}
