package project

import (
	"context"
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"moria.us/chartline/build/chart"
)

func writeFile(t *testing.T, dir, name, data string) {
	t.Helper()
	if err := ioutil.WriteFile(filepath.Join(dir, name), []byte(data), 0666); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCompile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, DefaultConfig, `{
		"title": "Test",
		"chart": "song.tja",
		"audio": "song.ogg",
		"chartOffset": 0.9,
		"audioOffset": -0.25
	}`)
	writeFile(t, dir, "song.tja", "BPM:120\n#START\n1000100010001000,\n#END\n")
	p, err := Load(dir, DefaultConfig)
	if err != nil {
		t.Fatal(err)
	}
	if got := p.ChartPath(); got != filepath.Join(dir, "song.tja") {
		t.Errorf("ChartPath: got %q", got)
	}
	if got := p.AudioOffset(); got != -250*time.Millisecond {
		t.Errorf("AudioOffset: got %v", got)
	}
	tl, err := p.Compile(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(tl.Notes) != 4 {
		t.Fatalf("got %d notes, expect 4", len(tl.Notes))
	}
	if tl.Notes[0].Time != 0.9 {
		t.Errorf("first note at %g, expect 0.9", tl.Notes[0].Time)
	}
}

func TestLoadInvalid(t *testing.T) {
	cases := []string{
		`{"chart": "a.tja", "unknown": 1}`,
		`{"title": "no chart"}`,
		`{"chart": `,
	}
	for _, c := range cases {
		dir := t.TempDir()
		writeFile(t, dir, DefaultConfig, c)
		if _, err := Load(dir, DefaultConfig); err == nil {
			t.Errorf("%s: loaded, expect error", c)
		}
	}
}

func TestCompileError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, DefaultConfig, `{"chart": "bad.tja"}`)
	writeFile(t, dir, "bad.tja", "#START\n#BPMCHANGE\n1,\n#END\n")
	p, err := Load(dir, DefaultConfig)
	if err != nil {
		t.Fatal(err)
	}
	_, err = p.Compile(context.Background())
	var de *chart.DirectiveError
	if !errors.As(err, &de) {
		t.Fatalf("got %v, expect *chart.DirectiveError", err)
	}
}

func TestIsChartName(t *testing.T) {
	type testcase struct {
		name string
		ok   bool
	}
	cases := []testcase{
		{"song.tja", true},
		{"Song.TJA", true},
		{"song.tja.bak", false},
		{".song.tja", false},
		{"song.osu", false},
	}
	for _, c := range cases {
		if got := IsChartName(c.name); got != c.ok {
			t.Errorf("IsChartName(%q) = %t, expect %t", c.name, got, c.ok)
		}
	}
}

func TestAudioPath(t *testing.T) {
	type testcase struct {
		audio  string
		wave   string
		expect string
	}
	cases := []testcase{
		{"", "", ""},
		{"song.ogg", "", filepath.Join("base", "song.ogg")},
		{"", "wave.ogg", filepath.Join("base", "wave.ogg")},
		{"song.ogg", "wave.ogg", filepath.Join("base", "song.ogg")},
	}
	for _, c := range cases {
		p := Project{BaseDir: "base", Config: Config{Audio: c.audio}}
		if got := p.AudioPath(chart.Header{Wave: c.wave}); got != c.expect {
			t.Errorf("audio %q, wave %q: got %q, expect %q", c.audio, c.wave, got, c.expect)
		}
	}
}
