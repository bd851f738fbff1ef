package chart

import (
	"sort"
	"strconv"
)

// A GridKind is the level of a grid line.
type GridKind int

const (
	Measure GridKind = iota
	Beat
	Subdivision
)

var gridKindNames = [...]string{"measure", "beat", "subdivision"}

func (k GridKind) String() string {
	if k < 0 || int(k) >= len(gridKindNames) {
		return "GridKind(" + strconv.Itoa(int(k)) + ")"
	}
	return gridKindNames[k]
}

// A GridEvent is a grid line at an absolute time, in seconds.
type GridEvent struct {
	Time float64
	Kind GridKind
}

func (e GridEvent) Timestamp() float64 {
	return e.Time
}

// subdivisionsPerBeat is the grid resolution in sixteenths of a whole note.
const subdivisionsPerBeat = 16

func appendMeasure(evs []GridEvent, start float64, tm TempoMeter) []GridEvent {
	beat := tm.BeatLength()
	sub := beat / 4
	evs = append(evs, GridEvent{start, Measure})
	for i := 0; i < tm.BeatsPerBar; i++ {
		bt := start + float64(i)*beat
		evs = append(evs, GridEvent{bt, Beat})
		for j := 1; j < subdivisionsPerBeat/tm.BeatNoteValue; j++ {
			evs = append(evs, GridEvent{bt + float64(j)*sub, Subdivision})
		}
	}
	return evs
}

// CompileGrid returns the measure, beat and subdivision lines of a chart in
// time order. Each data row is one measure, timed with the tempo and meter
// active when the row is reached.
func CompileGrid(doc *Document, offset Offset) ([]GridEvent, error) {
	tr := NewTracker(doc.Header)
	var evs []GridEvent
	var t float64
	for _, l := range doc.Lines {
		switch l.Kind {
		case KindDirective:
			if err := tr.Apply(l); err != nil {
				return nil, err
			}
		case KindData:
			tm, err := tr.Current()
			if err != nil {
				return nil, &Error{l.Lineno, err}
			}
			evs = appendMeasure(evs, t, tm)
			t += tm.MeasureLength()
		}
	}
	// With a beat note value below 4 the subdivisions of one beat run past
	// the next beat.
	sort.SliceStable(evs, func(i, j int) bool {
		return evs[i].Time < evs[j].Time
	})
	offset.grid(evs)
	return evs, nil
}
