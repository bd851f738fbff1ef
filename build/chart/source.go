// Package chart compiles TJA rhythm charts into timed grid and note events.
package chart

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

const (
	startMarker   = "#START"
	endMarker     = "#END"
	commentMarker = "//"
	directiveChar = '#'

	hitMark  = '1'
	restMark = '0'
)

// Directive names understood by the tracker. Other directives are kept in the
// document but have no effect on timing.
const (
	DirectiveBPMChange = "BPMCHANGE"
	DirectiveMeasure   = "MEASURE"
)

// A Kind identifies what a line in the chart region contains.
type Kind int

const (
	KindDirective Kind = iota + 1
	KindData
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindDirective:
		return "directive"
	case KindData:
		return "data"
	case KindEnd:
		return "end"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// A Line is a classified line from inside the chart region.
type Line struct {
	Lineno int
	Kind   Kind

	// Name is the upper-cased directive name, without the leading '#'.
	Name string
	Args []string

	// Marks contains only the hit and rest marks of a data row.
	Marks string
}

// A Header contains the metadata declared before the chart region.
type Header struct {
	Title string
	Wave  string
	BPM   float64

	// Fields holds every header value by upper-cased key, including the
	// ones above.
	Fields map[string]string
}

// A Document is a chart reduced to its header and the classified lines of
// its active region. The region always ends with a KindEnd line, even when
// the source omits the end marker.
type Document struct {
	Header Header
	Lines  []Line
}

var bom = []byte{0xef, 0xbb, 0xbf}

func splitLine(data []byte) (line, rest []byte) {
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c == '\r' {
			line = data[:i]
			rest = data[i+1:]
			if len(rest) != 0 && rest[0] == '\n' {
				rest = rest[1:]
			}
			return
		}
		if c == '\n' {
			line = data[:i]
			rest = data[i+1:]
			return
		}
	}
	line = data
	return
}

func trim(d []byte) []byte {
	return bytes.TrimFunc(d, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '　'
	})
}

// marks strips everything but hit and rest marks from a data row. A trailing
// comment is dropped first.
func marks(text []byte) string {
	if i := bytes.Index(text, []byte(commentMarker)); i != -1 {
		text = text[:i]
	}
	var b strings.Builder
	for _, c := range text {
		if c == hitMark || c == restMark {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func parseDirective(lineno int, text string) (Line, error) {
	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return Line{}, &Error{lineno, errors.New("missing directive name")}
	}
	return Line{
		Lineno: lineno,
		Kind:   KindDirective,
		Name:   strings.ToUpper(fields[0]),
		Args:   fields[1:],
	}, nil
}

func (h *Header) setField(key, value string) {
	if h.Fields == nil {
		h.Fields = make(map[string]string)
	}
	key = strings.ToUpper(key)
	h.Fields[key] = value
	switch key {
	case "TITLE":
		h.Title = value
	case "WAVE":
		h.Wave = value
	case "BPM":
		if n, err := strconv.ParseFloat(value, 64); err == nil && validTempo(n) {
			h.BPM = n
		}
	}
}

// Parse reads a chart document. Unknown header keys and directives are kept,
// and lines outside the chart region are skipped.
func Parse(data []byte) (*Document, error) {
	data = bytes.TrimPrefix(data, bom)
	var doc Document
	var inChart bool
	for lineno := 1; len(data) != 0; lineno++ {
		var text []byte
		text, data = splitLine(data)
		text = trim(text)
		if len(text) == 0 || bytes.HasPrefix(text, []byte(commentMarker)) {
			continue
		}
		s := string(text)
		if !inChart {
			if strings.EqualFold(s, startMarker) {
				inChart = true
				continue
			}
			if i := strings.IndexByte(s, ':'); i > 0 && s[0] != directiveChar {
				doc.Header.setField(strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:]))
			}
			continue
		}
		if strings.EqualFold(s, startMarker) {
			return nil, &Error{lineno, errors.New("chart region already started")}
		}
		if strings.EqualFold(s, endMarker) {
			doc.Lines = append(doc.Lines, Line{Lineno: lineno, Kind: KindEnd})
			return &doc, nil
		}
		if s[0] == directiveChar {
			l, err := parseDirective(lineno, s)
			if err != nil {
				return nil, err
			}
			doc.Lines = append(doc.Lines, l)
			continue
		}
		m := marks(text)
		if m == "" {
			continue
		}
		doc.Lines = append(doc.Lines, Line{Lineno: lineno, Kind: KindData, Marks: m})
	}
	if inChart {
		doc.Lines = append(doc.Lines, Line{Kind: KindEnd})
	}
	return &doc, nil
}
