// Package export writes compiled timelines in formats other tools can load.
package export

import (
	"encoding/json"

	"moria.us/chartline/build/chart"
)

// A GridLine is the JSON form of a grid event.
type GridLine struct {
	Time float64 `json:"time"`
	Kind string  `json:"kind"`
}

// A Note is the JSON form of a note event.
type Note struct {
	Time    float64 `json:"time"`
	Class   int     `json:"class"`
	Dotted  bool    `json:"dotted,omitempty"`
	Measure int     `json:"measure"`
}

// A Timeline is the JSON form of a compiled chart.
type Timeline struct {
	Title    string     `json:"title,omitempty"`
	Duration float64    `json:"duration"`
	Grid     []GridLine `json:"grid"`
	Notes    []Note     `json:"notes"`
}

// NewTimeline converts a compiled chart to its JSON form.
func NewTimeline(tl *chart.Timeline) *Timeline {
	t := Timeline{
		Title:    tl.Header.Title,
		Duration: tl.Duration(),
		Grid:     make([]GridLine, len(tl.Grid)),
		Notes:    make([]Note, len(tl.Notes)),
	}
	for i, e := range tl.Grid {
		t.Grid[i] = GridLine{Time: e.Time, Kind: e.Kind.String()}
	}
	for i, e := range tl.Notes {
		t.Notes[i] = Note{
			Time:    e.Time,
			Class:   e.Duration.Class,
			Dotted:  e.Duration.Dotted,
			Measure: e.Measure,
		}
	}
	return &t
}

// JSON encodes a compiled chart as JSON.
func JSON(tl *chart.Timeline) ([]byte, error) {
	return json.Marshal(NewTimeline(tl))
}
