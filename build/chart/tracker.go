package chart

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// A TempoMeter is the tempo and time signature in effect for a measure.
type TempoMeter struct {
	BPM           float64
	BeatsPerBar   int
	BeatNoteValue int
}

// BeatLength returns the duration of one beat in seconds. The beat is always
// 60/BPM, whatever note value the time signature counts in.
func (tm TempoMeter) BeatLength() float64 {
	return 60 / tm.BPM
}

// MeasureLength returns the duration of one measure in seconds.
func (tm TempoMeter) MeasureLength() float64 {
	return float64(tm.BeatsPerBar) * tm.BeatLength()
}

// A Tracker follows tempo and meter directives through a chart.
type Tracker struct {
	tm TempoMeter
}

// NewTracker returns a tracker in 4/4, with the tempo taken from the header if
// it declares one.
func NewTracker(h Header) *Tracker {
	return &Tracker{tm: TempoMeter{
		BPM:           h.BPM,
		BeatsPerBar:   4,
		BeatNoteValue: 4,
	}}
}

// Current returns the active tempo and meter. It fails if no tempo has been
// declared yet.
func (t *Tracker) Current() (TempoMeter, error) {
	if !(t.tm.BPM > 0) {
		return TempoMeter{}, ErrUndefinedTempo
	}
	return t.tm, nil
}

// Apply updates the tracker from a directive line. Directives other than
// #BPMCHANGE and #MEASURE are ignored.
func (t *Tracker) Apply(l Line) error {
	if l.Kind != KindDirective {
		return nil
	}
	switch l.Name {
	case DirectiveBPMChange:
		arg, err := singleArg(l)
		if err != nil {
			return err
		}
		n, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return directiveErr(l, fmt.Errorf("invalid tempo: %v", err))
		}
		if !validTempo(n) {
			return directiveErr(l, fmt.Errorf("tempo must be positive and finite: %g", n))
		}
		t.tm.BPM = n
	case DirectiveMeasure:
		arg, err := singleArg(l)
		if err != nil {
			return err
		}
		i := strings.IndexByte(arg, '/')
		if i == -1 {
			return directiveErr(l, errors.New("expected N/M"))
		}
		num, err := parsePositive(arg[:i])
		if err != nil {
			return directiveErr(l, fmt.Errorf("invalid beats per bar: %v", err))
		}
		den, err := parsePositive(arg[i+1:])
		if err != nil {
			return directiveErr(l, fmt.Errorf("invalid beat note value: %v", err))
		}
		t.tm.BeatsPerBar = num
		t.tm.BeatNoteValue = den
	}
	return nil
}

func validTempo(bpm float64) bool {
	return bpm > 0 && !math.IsInf(bpm, 0)
}

func singleArg(l Line) (string, error) {
	switch len(l.Args) {
	case 0:
		return "", directiveErr(l, errors.New("missing argument"))
	case 1:
		return l.Args[0], nil
	default:
		return "", directiveErr(l, errors.New("too many arguments"))
	}
}

func parsePositive(s string) (int, error) {
	n, err := strconv.ParseUint(s, 10, strconv.IntSize-1)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errors.New("may not be 0")
	}
	return int(n), nil
}

func directiveErr(l Line, err error) error {
	return &Error{l.Lineno, &DirectiveError{Name: l.Name, Args: l.Args, Err: err}}
}
