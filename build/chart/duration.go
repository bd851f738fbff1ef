package chart

import (
	"math"
	"strconv"
)

// Durations are denominators of a whole note: 4 is a quarter note, 32 a
// thirty-second note.
const (
	Quarter      = 4
	Eighth       = 8
	Twelfth      = 12
	Sixteenth    = 16
	TwentyFourth = 24
	ThirtySecond = 32
)

const (
	ratioEpsilon = 1e-6
	dottedRatio  = 1.5
)

// Classes lists the duration classes a note may have, longest first.
var Classes = [...]int{Quarter, Eighth, Twelfth, Sixteenth, TwentyFourth, ThirtySecond}

// A Duration is the length class of a note.
type Duration struct {
	Class  int
	Dotted bool
}

func (d Duration) String() string {
	s := strconv.Itoa(d.Class)
	if d.Dotted {
		s += "."
	}
	return s
}

func nearly(a, b float64) bool {
	return math.Abs(a-b) <= ratioEpsilon
}

func classOf(ratio float64) (int, bool) {
	for _, c := range Classes {
		if nearly(ratio, float64(c)) {
			return c, true
		}
	}
	return 0, false
}

// Classify maps a duration ratio (the denominator implied by the gap to the
// next note) to a duration class. A ratio whose dotted equivalent, ratio*1.5,
// is a class becomes that class, dotted. Ratios at or beyond either end of
// the class range are clamped. Anything else is an error.
func Classify(ratio float64) (Duration, error) {
	var d Duration
	r := ratio
	if c, ok := classOf(r * dottedRatio); ok {
		r = float64(c)
		d.Dotted = true
	}
	if r <= Quarter {
		r = Quarter
	} else if r >= ThirtySecond {
		r = ThirtySecond
	}
	c, ok := classOf(r)
	if !ok {
		return Duration{}, &DurationError{Ratio: ratio}
	}
	d.Class = c
	return d, nil
}
