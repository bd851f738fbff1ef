package chart

import "errors"

// A NoteEvent is a note starting at an absolute time, in seconds. Its
// duration is inferred from the distance to the following hit. Measure is the
// 1-based data row where the note was hit.
type NoteEvent struct {
	Time     float64
	Duration Duration
	Measure  int
}

func (e NoteEvent) Timestamp() float64 {
	return e.Time
}

type hit struct {
	time    float64
	slot    int
	measure int
}

// A noteParser walks hit marks in document order. Slots are counted across
// the whole chart, but the gap between two hits is scaled by the length of
// the row containing the later hit.
type noteParser struct {
	start   float64
	slot    int
	measure int
	prev    hit
	hasPrev bool
	notes   []NoteEvent
}

// close ends the note opened by the previous hit. The first hit is measured
// from slot 0 and classified like any other, but has no note to close.
func (p *noteParser) close(cur hit, rowLen int, tm TempoMeter) error {
	gap := cur.slot - p.prev.slot
	if gap < 1 {
		gap = 1
	}
	beats := float64(gap) * float64(tm.BeatsPerBar) / float64(rowLen)
	ratio := float64(tm.BeatNoteValue) / beats
	d, err := Classify(ratio)
	if err != nil {
		var de *DurationError
		if errors.As(err, &de) {
			de.Elapsed = p.start
			de.Gap = gap
			de.History = groupByMeasure(p.notes)
		}
		return err
	}
	if p.hasPrev {
		p.notes = append(p.notes, NoteEvent{
			Time:     p.prev.time,
			Duration: d,
			Measure:  p.prev.measure,
		})
	}
	p.prev = cur
	p.hasPrev = true
	return nil
}

func (p *noteParser) row(marks string, tm TempoMeter) error {
	p.measure++
	n := len(marks)
	for i := 0; i < n; i++ {
		if marks[i] == hitMark {
			beat := float64(i) * float64(tm.BeatsPerBar) / float64(n)
			cur := hit{
				time:    p.start + beat*tm.BeatLength(),
				slot:    p.slot,
				measure: p.measure,
			}
			if err := p.close(cur, n, tm); err != nil {
				return err
			}
		}
		p.slot++
	}
	p.start += tm.MeasureLength()
	return nil
}

// CompileNotes returns the notes of a chart in time order, each with the
// duration implied by the gap to the next hit. The end of the chart acts as
// one final hit so the last note gets a duration.
func CompileNotes(doc *Document, offset Offset) ([]NoteEvent, error) {
	tr := NewTracker(doc.Header)
	var p noteParser
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
			if err := p.row(l.Marks, tm); err != nil {
				return nil, &Error{l.Lineno, err}
			}
		case KindEnd:
			if !p.hasPrev {
				break
			}
			tm, err := tr.Current()
			if err != nil {
				return nil, &Error{l.Lineno, err}
			}
			if err := p.row(string(hitMark), tm); err != nil {
				return nil, &Error{l.Lineno, err}
			}
		}
	}
	offset.notes(p.notes)
	return p.notes, nil
}
