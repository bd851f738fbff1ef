package chart

// A Timeline is a compiled chart: both event streams, in time order, with the
// chart offset applied.
type Timeline struct {
	Header Header
	Grid   []GridEvent
	Notes  []NoteEvent
}

// Compile parses a chart and runs both compiler passes over it.
func Compile(data []byte, offset Offset) (*Timeline, error) {
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	grid, err := CompileGrid(doc, offset)
	if err != nil {
		return nil, err
	}
	notes, err := CompileNotes(doc, offset)
	if err != nil {
		return nil, err
	}
	return &Timeline{
		Header: doc.Header,
		Grid:   grid,
		Notes:  notes,
	}, nil
}

// Duration returns the time of the last event, or zero for an empty
// timeline.
func (tl *Timeline) Duration() float64 {
	var t float64
	if n := len(tl.Grid); n != 0 {
		t = tl.Grid[n-1].Time
	}
	if n := len(tl.Notes); n != 0 && tl.Notes[n-1].Time > t {
		t = tl.Notes[n-1].Time
	}
	return t
}
