package filestore

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/calvinalkan/doit/internal/task"
)

// File format constants.
const (
	// DateLayout is the layout of every date field.
	DateLayout = "02-Jan-2006 1504 -0700"

	// EmptyDate marks an unused date field. It has the width of a formatted
	// date.
	EmptyDate = "----------------------"

	lastModifiedLayout = "Mon 02-Jan-2006 03:04PM -0700"

	commentPrefix = "#"
	fieldSep      = " | "
	numFields     = 6

	typeFloating = "F"
	typeDeadline = "D"
	typeTimed    = "T"

	markDone   = "*"
	markUndone = "-"
)

// Field positions. Position 0 is the display index, which is never parsed.
const (
	posType = iota + 1
	posDone
	posStart
	posEnd
	posName
)

var header = []string{
	"#######################################################################################################################################",
	"# Ref| Type | Done |     Start/Deadline     |          End           |                                  Task                          #",
	"#  1 |  D   |   *  | 01-Jan-2012 0600 +0800 | ---------------------- | A done deadline task by 0600 1st Jan 2012                      #",
	"#  2 |  T   |   -  | 31-Dec-2012 2359 +0800 | 28-Feb-2013 2248 +0800 | An undone timed task from 2359 31 Dec 2012 to 2248 28 Feb 2013 #",
	"#  3 |  F   |   *  | ---------------------- | ---------------------- | A done floating task                                           #",
	"#The reference number is not used in the parsing process. DoIt will ignore non-consecutive or wrong reference numbers.                #",
	"#######################################################################################################################################",
}

// Encode renders tasks in file order: the help banner, one line per task
// and a last-modified comment stamped with now.
func Encode(tasks []task.Task, now time.Time) []byte {
	var buf bytes.Buffer

	for _, line := range header {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	for i, t := range tasks {
		buf.WriteString(EncodeLine(i+1, t))
		buf.WriteByte('\n')
	}

	fmt.Fprintf(&buf, "#Last Modified: %s\n", now.Format(lastModifiedLayout))

	return buf.Bytes()
}

// EncodeLine renders a single record line with the given display index.
func EncodeLine(index int, t task.Task) string {
	typ := typeFloating
	start, end := EmptyDate, EmptyDate

	switch k := t.Kind().(type) {
	case task.Deadline:
		typ = typeDeadline
		start = k.Due.Format(DateLayout)
	case task.Timed:
		typ = typeTimed
		start = k.Start.Format(DateLayout)
		end = k.End.Format(DateLayout)
	}

	done := markUndone
	if t.Done() {
		done = markDone
	}

	return fmt.Sprintf("%3d"+fieldSep+"%s"+fieldSep+"%s"+fieldSep+"%s"+fieldSep+"%s"+fieldSep+"%s",
		index, typ, done, start, end, t.Name())
}

// Decode parses a whole file. Comment lines and blank lines are skipped.
// The first malformed record aborts decoding with a [*CorruptError]; no
// partial result is returned.
func Decode(data []byte) ([]task.Task, error) {
	lines := strings.Split(string(data), "\n")
	tasks := make([]task.Task, 0, len(lines))

	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")

		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		t, err := DecodeLine(line)
		if err != nil {
			err.Line = i + 1

			return nil, err
		}

		tasks = append(tasks, t)
	}

	return tasks, nil
}

// DecodeLine parses one record line. The returned error has Line unset.
func DecodeLine(line string) (task.Task, *CorruptError) {
	fields := strings.SplitN(line, fieldSep, numFields)
	if len(fields) != numFields {
		return task.Task{}, &CorruptError{
			Reason: fmt.Sprintf("want %d fields separated by %q, got %d", numFields, fieldSep, len(fields)),
		}
	}

	done, err := decodeDone(fields[posDone])
	if err != nil {
		return task.Task{}, err
	}

	name := fields[posName]
	if name == "" {
		return task.Task{}, &CorruptError{Reason: "empty task name"}
	}

	var kind task.Kind

	switch fields[posType] {
	case typeFloating:
		kind = task.Floating{}
	case typeDeadline:
		due, err := decodeDate(fields[posStart])
		if err != nil {
			return task.Task{}, err
		}

		kind = task.Deadline{Due: due}
	case typeTimed:
		start, err := decodeDate(fields[posStart])
		if err != nil {
			return task.Task{}, err
		}

		end, err := decodeDate(fields[posEnd])
		if err != nil {
			return task.Task{}, err
		}

		kind = task.Timed{Start: start, End: end}
	default:
		return task.Task{}, &CorruptError{Reason: fmt.Sprintf("unknown task type %q", fields[posType])}
	}

	t, newErr := task.New(name, kind, done)
	if newErr != nil {
		return task.Task{}, &CorruptError{Reason: "invalid task", Err: newErr}
	}

	return t, nil
}

func decodeDone(s string) (bool, *CorruptError) {
	switch s {
	case markDone:
		return true, nil
	case markUndone:
		return false, nil
	default:
		return false, &CorruptError{Reason: fmt.Sprintf("unknown done marker %q", s)}
	}
}

func decodeDate(s string) (time.Time, *CorruptError) {
	if s == EmptyDate {
		return time.Time{}, &CorruptError{Reason: "missing date"}
	}

	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &CorruptError{Reason: fmt.Sprintf("malformed date %q", s), Err: err}
	}

	return t, nil
}
