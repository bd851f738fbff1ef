package chart

// An Offset is a constant shift, in seconds, added to every compiled event so
// the chart lines up with the audio. It may be negative.
type Offset float64

// Apply returns t shifted by the offset.
func (o Offset) Apply(t float64) float64 {
	return t + float64(o)
}

func (o Offset) grid(evs []GridEvent) {
	for i := range evs {
		evs[i].Time = o.Apply(evs[i].Time)
	}
}

func (o Offset) notes(evs []NoteEvent) {
	for i := range evs {
		evs[i].Time = o.Apply(evs[i].Time)
	}
}
