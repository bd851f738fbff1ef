package export

import (
	"io"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"moria.us/chartline/build/chart"
)

const (
	// Resolution is the number of ticks per quarter note. Files are written
	// at 60 BPM, so this is also the number of ticks per second.
	Resolution = 960

	drumChannel = 9
	noteChannel = 0

	// Gate is the longest a note sounds, in ticks.
	Gate = Resolution / 10
)

// Drum keys for the click track.
const (
	keyMeasure     = 76 // high wood block
	keyBeat        = 77 // low wood block
	keySubdivision = 42 // closed hi-hat
)

// NoteKey returns the key a note with the given duration is written on.
// Shorter notes are written higher, dotted notes a semitone above.
func NoteKey(d chart.Duration) uint8 {
	var key uint8
	switch d.Class {
	case chart.Quarter:
		key = 60
	case chart.Eighth:
		key = 62
	case chart.Twelfth:
		key = 64
	case chart.Sixteenth:
		key = 65
	case chart.TwentyFourth:
		key = 67
	default:
		key = 69
	}
	if d.Dotted {
		key++
	}
	return key
}

type midiEvent struct {
	tick uint32
	msg  smf.Message
}

// shift returns how far, in seconds, events must be moved so that none of
// them lands before the start of the file.
func shift(tl *chart.Timeline) float64 {
	var first float64
	if len(tl.Grid) != 0 && tl.Grid[0].Time < first {
		first = tl.Grid[0].Time
	}
	if len(tl.Notes) != 0 && tl.Notes[0].Time < first {
		first = tl.Notes[0].Time
	}
	return -first
}

func toTicks(t float64) uint32 {
	return uint32(math.Round(t * Resolution))
}

func makeTrack(name string, events []midiEvent) smf.Track {
	// Note-offs come first in events, so at a shared tick a note is released
	// before the key is struck again.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].tick < events[j].tick
	})
	track := smf.Track{}
	track = append(track, smf.Event{Message: smf.MetaTrackSequenceName(name)})
	var last uint32
	for _, e := range events {
		track = append(track, smf.Event{Delta: e.tick - last, Message: e.msg})
		last = e.tick
	}
	return append(track, smf.Event{Message: smf.EOT})
}

type keyTick struct {
	tick uint32
	key  uint8
}

// hits returns a note-on and note-off for each key at each tick. Repeated
// hits on one key at one tick sound once. A note is cut off early if the next
// hit on the same key comes first.
func hits(channel uint8, ticks []uint32, keys []uint8, vels []uint8) []midiEvent {
	seen := make(map[keyTick]bool, len(ticks))
	var pos int
	for i, t := range ticks {
		k := keyTick{t, keys[i]}
		if seen[k] {
			continue
		}
		seen[k] = true
		ticks[pos], keys[pos], vels[pos] = t, keys[i], vels[i]
		pos++
	}
	ticks, keys, vels = ticks[:pos], keys[:pos], vels[:pos]

	events := make([]midiEvent, 0, 2*len(ticks))
	next := make(map[uint8]uint32)
	end := make([]uint32, len(ticks))
	for i := len(ticks) - 1; i >= 0; i-- {
		end[i] = ticks[i] + Gate
		if n, ok := next[keys[i]]; ok && n < end[i] {
			end[i] = n
		}
		next[keys[i]] = ticks[i]
	}
	for i := range ticks {
		events = append(events, midiEvent{end[i], smf.Message(midi.NoteOff(channel, keys[i]))})
	}
	for i, t := range ticks {
		events = append(events, midiEvent{t, smf.Message(midi.NoteOn(channel, keys[i], vels[i]))})
	}
	return events
}

// WriteMIDI writes a compiled chart as a Standard MIDI File with a conductor
// track, a click track for the grid on the drum channel, and a note track.
// If any event comes before zero, the whole timeline is moved later so that
// the first event is at the start of the file.
func WriteMIDI(w io.Writer, tl *chart.Timeline) error {
	s := smf.NewSMF1()
	s.TimeFormat = smf.MetricTicks(Resolution)
	base := shift(tl)

	title := tl.Header.Title
	if title == "" {
		title = "chart"
	}
	conductor := smf.Track{}
	conductor = append(conductor,
		smf.Event{Message: smf.MetaTrackSequenceName(title)},
		smf.Event{Message: smf.MetaTempo(60)},
		smf.Event{Message: smf.MetaTimeSig(4, 4, 24, 8)},
		smf.Event{Message: smf.EOT},
	)
	if err := s.Add(conductor); err != nil {
		return err
	}

	n := len(tl.Grid)
	ticks, keys, vels := make([]uint32, n), make([]uint8, n), make([]uint8, n)
	for i, e := range tl.Grid {
		ticks[i] = toTicks(e.Time + base)
		switch e.Kind {
		case chart.Measure:
			keys[i], vels[i] = keyMeasure, 110
		case chart.Beat:
			keys[i], vels[i] = keyBeat, 90
		default:
			keys[i], vels[i] = keySubdivision, 50
		}
	}
	if err := s.Add(makeTrack("grid", hits(drumChannel, ticks, keys, vels))); err != nil {
		return err
	}

	n = len(tl.Notes)
	ticks, keys, vels = make([]uint32, n), make([]uint8, n), make([]uint8, n)
	for i, e := range tl.Notes {
		ticks[i] = toTicks(e.Time + base)
		keys[i], vels[i] = NoteKey(e.Duration), 100
	}
	if err := s.Add(makeTrack("notes", hits(noteChannel, ticks, keys, vels))); err != nil {
		return err
	}

	_, err := s.WriteTo(w)
	return err
}
