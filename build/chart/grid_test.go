package chart

import (
	"errors"
	"math"
	"testing"
)

func mustParse(t *testing.T, src string) *Document {
	t.Helper()
	doc, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCompileGridOneMeasure(t *testing.T) {
	doc := mustParse(t, "BPM:120\n#START\n1000100010001000,\n#END\n")
	evs, err := CompileGrid(doc, 0)
	if err != nil {
		t.Fatal(err)
	}
	expect := []GridEvent{{0, Measure}}
	for i := 0; i < 4; i++ {
		bt := float64(i) * 0.5
		expect = append(expect, GridEvent{bt, Beat})
		for j := 1; j <= 3; j++ {
			expect = append(expect, GridEvent{bt + float64(j)*0.125, Subdivision})
		}
	}
	if len(evs) != len(expect) {
		t.Fatalf("got %d events, expect %d", len(evs), len(expect))
	}
	for i, e := range expect {
		if evs[i].Kind != e.Kind || !closeTo(evs[i].Time, e.Time) {
			t.Errorf("event %d: got %v@%g, expect %v@%g", i, evs[i].Kind, evs[i].Time, e.Kind, e.Time)
		}
	}
}

func TestCompileGridMeterAndTempo(t *testing.T) {
	const src = "#START\n" +
		"#BPMCHANGE 120\n" +
		"#MEASURE 3/8\n" +
		"100100,\n" +
		"#BPMCHANGE 60\n" +
		"#MEASURE 2/16\n" +
		"11,\n" +
		"#END\n"
	evs, err := CompileGrid(mustParse(t, src), 0)
	if err != nil {
		t.Fatal(err)
	}
	type testcase struct {
		kind GridKind
		time float64
	}
	expect := []testcase{
		// 3/8 at 120: beats every 0.5s, one subdivision after each.
		{Measure, 0},
		{Beat, 0}, {Subdivision, 0.125},
		{Beat, 0.5}, {Subdivision, 0.625},
		{Beat, 1.0}, {Subdivision, 1.125},
		// 2/16 at 60: no subdivisions.
		{Measure, 1.5},
		{Beat, 1.5},
		{Beat, 2.5},
	}
	if len(evs) != len(expect) {
		t.Fatalf("got %d events, expect %d: %v", len(evs), len(expect), evs)
	}
	for i, e := range expect {
		if evs[i].Kind != e.kind || !closeTo(evs[i].Time, e.time) {
			t.Errorf("event %d: got %v@%g, expect %v@%g", i, evs[i].Kind, evs[i].Time, e.kind, e.time)
		}
	}
}

func TestCompileGridMonotonic(t *testing.T) {
	// Half-note beats put subdivisions past the following beat.
	const src = "BPM:97\n#START\n" +
		"1111,\n" +
		"#MEASURE 3/2\n" +
		"101,\n" +
		"#BPMCHANGE 213.5\n" +
		"#MEASURE 5/4\n" +
		"10101,\n" +
		"#MEASURE 7/8\n" +
		"1,\n" +
		"#END\n"
	for _, off := range []Offset{0, 2.5, -3.25} {
		evs, err := CompileGrid(mustParse(t, src), off)
		if err != nil {
			t.Fatal(err)
		}
		for i := 1; i < len(evs); i++ {
			if evs[i].Time < evs[i-1].Time {
				t.Fatalf("offset %g: event %d at %g before event %d at %g",
					off, i, evs[i].Time, i-1, evs[i-1].Time)
			}
		}
	}
}

func TestCompileGridOffset(t *testing.T) {
	doc := mustParse(t, "BPM:140\n#START\n10,\n#MEASURE 6/8\n111111,\n#END\n")
	base, err := CompileGrid(doc, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, off := range []Offset{0.9, -0.9} {
		evs, err := CompileGrid(doc, off)
		if err != nil {
			t.Fatal(err)
		}
		if len(evs) != len(base) {
			t.Fatalf("offset %g: got %d events, expect %d", off, len(evs), len(base))
		}
		for i := range evs {
			if evs[i].Kind != base[i].Kind || !closeTo(evs[i].Time-base[i].Time, float64(off)) {
				t.Errorf("offset %g: event %d: got %v@%g, base %v@%g",
					off, i, evs[i].Kind, evs[i].Time, base[i].Kind, base[i].Time)
			}
		}
	}
}

func TestCompileGridUndefinedTempo(t *testing.T) {
	_, err := CompileGrid(mustParse(t, "#START\n#MEASURE 4/4\n1000,\n#END\n"), 0)
	if !errors.Is(err, ErrUndefinedTempo) {
		t.Fatalf("got %v, expect %v", err, ErrUndefinedTempo)
	}
	var e *Error
	if !errors.As(err, &e) || e.Line != 3 {
		t.Errorf("got %v, expect error on line 3", err)
	}
}

func TestCompileGridInfiniteTempo(t *testing.T) {
	_, err := CompileGrid(mustParse(t, "BPM:120\n#START\n#BPMCHANGE inf\n1,\n#END\n"), 0)
	var de *DirectiveError
	if !errors.As(err, &de) {
		t.Fatalf("got %v, expect *DirectiveError", err)
	}
	var e *Error
	if !errors.As(err, &e) || e.Line != 3 {
		t.Errorf("got %v, expect error on line 3", err)
	}
}
