package chart

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ErrUndefinedTempo is returned when a data row appears before any tempo has
// been declared.
var ErrUndefinedTempo = errors.New("BPM is not defined, set BPM: or #BPMCHANGE before the first measure")

// An Error is a chart error with the line where it was detected.
type Error struct {
	Line int
	Err  error
}

func (e *Error) Error() string {
	var s string
	if e.Line != 0 {
		s += strconv.Itoa(e.Line) + ":"
	}
	if s != "" {
		s += " "
	}
	s += e.Err.Error()
	return s
}

func (e *Error) Unwrap() error {
	return e.Err
}

// A DirectiveError is a directive with a missing or unusable argument.
type DirectiveError struct {
	Name string
	Args []string
	Err  error
}

func (e *DirectiveError) Error() string {
	return fmt.Sprintf("malformed #%s %q: %v", e.Name, strings.Join(e.Args, " "), e.Err)
}

func (e *DirectiveError) Unwrap() error {
	return e.Err
}

// A MeasureNotes lists the durations of the notes closed in one measure.
type MeasureNotes struct {
	Measure   int
	Durations []Duration
}

// A DurationError is a gap between hits which does not correspond to any
// known note duration. History holds every note classified before the
// failure.
type DurationError struct {
	Ratio   float64
	Elapsed float64
	Gap     int
	History []MeasureNotes
}

func (e *DurationError) Error() string {
	return fmt.Sprintf("unknown note duration 1/%g at %.3fs (gap %d)", e.Ratio, e.Elapsed, e.Gap)
}

// Dump formats the history one measure per line.
func (e *DurationError) Dump() string {
	var b strings.Builder
	for _, m := range e.History {
		fmt.Fprintf(&b, "%4d:", m.Measure)
		for _, d := range m.Durations {
			b.WriteByte(' ')
			b.WriteString(d.String())
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func groupByMeasure(notes []NoteEvent) []MeasureNotes {
	byMeasure := make(map[int][]Duration)
	for _, n := range notes {
		byMeasure[n.Measure] = append(byMeasure[n.Measure], n.Duration)
	}
	keys := maps.Keys(byMeasure)
	slices.Sort(keys)
	r := make([]MeasureNotes, 0, len(keys))
	for _, k := range keys {
		r = append(r, MeasureNotes{Measure: k, Durations: byMeasure[k]})
	}
	return r
}
