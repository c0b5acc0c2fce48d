package task

import (
	"strings"
	"time"
)

// ContainsTerm reports whether the name contains term, ignoring case.
func (t Task) ContainsTerm(term string) bool {
	return strings.Contains(strings.ToLower(t.name), strings.ToLower(term))
}

// WithinRange reports whether the task's comparison instant (see
// [Task.Instant]) lies inside [start, end] inclusive. Floating tasks are
// never within a range. Callers must pass start <= end.
func (t Task) WithinRange(start, end time.Time) bool {
	at, ok := t.Instant()
	if !ok {
		return false
	}

	return !at.Before(start) && !at.After(end)
}

// ClashesWithRange reports whether the task overlaps [rs, re]. Callers must
// pass rs <= re.
//
// A deadline clashes when it equals either bound or lies strictly between
// them. A timed task clashes when any endpoint equals any bound, when it
// straddles rs, or when it starts strictly inside the range. A timed task
// that starts before rs and ends exactly at rs clashes through the equality
// rule. One that starts before rs and ends inside the range clashes through
// the straddle rule.
func (t Task) ClashesWithRange(rs, re time.Time) bool {
	switch k := t.kind.(type) {
	case Deadline:
		if k.Due.Equal(rs) || k.Due.Equal(re) {
			return true
		}

		return k.Due.After(rs) && k.Due.Before(re)
	case Timed:
		s, e := k.Start, k.End
		if s.Equal(rs) || s.Equal(re) || e.Equal(rs) || e.Equal(re) {
			return true
		}

		if s.Before(rs) && e.After(rs) {
			return true
		}

		return s.After(rs) && s.Before(re)
	default:
		return false
	}
}
