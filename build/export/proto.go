package export

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"

	"moria.us/chartline/build/chart"
)

/*
	Binary format, protobuf wire encoding of:

	message Timeline {
		string title = 1;
		repeated GridEvent grid = 2;
		repeated NoteEvent notes = 3;
		double duration = 4;
	}
	message GridEvent {
		double time = 1;
		uint32 kind = 2;    // 0 measure, 1 beat, 2 subdivision
	}
	message NoteEvent {
		double time = 1;
		uint32 class = 2;   // 4, 8, 12, 16, 24 or 32
		bool dotted = 3;
		uint32 measure = 4;
	}
*/

const (
	fieldTitle    protowire.Number = 1
	fieldGrid     protowire.Number = 2
	fieldNotes    protowire.Number = 3
	fieldDuration protowire.Number = 4

	fieldTime    protowire.Number = 1
	fieldKind    protowire.Number = 2
	fieldClass   protowire.Number = 2
	fieldDotted  protowire.Number = 3
	fieldMeasure protowire.Number = 4
)

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// MarshalProto encodes a compiled chart in protobuf wire format.
func MarshalProto(tl *chart.Timeline) []byte {
	var b, msg []byte
	if tl.Header.Title != "" {
		b = protowire.AppendTag(b, fieldTitle, protowire.BytesType)
		b = protowire.AppendString(b, tl.Header.Title)
	}
	for _, e := range tl.Grid {
		msg = appendDouble(msg[:0], fieldTime, e.Time)
		msg = appendUint(msg, fieldKind, uint64(e.Kind))
		b = protowire.AppendTag(b, fieldGrid, protowire.BytesType)
		b = protowire.AppendBytes(b, msg)
	}
	for _, e := range tl.Notes {
		msg = appendDouble(msg[:0], fieldTime, e.Time)
		msg = appendUint(msg, fieldClass, uint64(e.Duration.Class))
		if e.Duration.Dotted {
			msg = appendUint(msg, fieldDotted, protowire.EncodeBool(true))
		}
		msg = appendUint(msg, fieldMeasure, uint64(e.Measure))
		b = protowire.AppendTag(b, fieldNotes, protowire.BytesType)
		b = protowire.AppendBytes(b, msg)
	}
	return appendDouble(b, fieldDuration, tl.Duration())
}

var errWireType = errors.New("unexpected wire type")

// fields calls fn for every field in a message. Unknown fields are passed to
// fn too, which should ignore them.
func fields(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte) error) error {
	for len(b) != 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		if err := fn(num, typ, b[:n]); err != nil {
			return fmt.Errorf("field %d: %v", num, err)
		}
		b = b[n:]
	}
	return nil
}

func double(typ protowire.Type, v []byte) (float64, error) {
	if typ != protowire.Fixed64Type {
		return 0, errWireType
	}
	x, n := protowire.ConsumeFixed64(v)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return math.Float64frombits(x), nil
}

func uvarint(typ protowire.Type, v []byte) (uint64, error) {
	if typ != protowire.VarintType {
		return 0, errWireType
	}
	x, n := protowire.ConsumeVarint(v)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return x, nil
}

func bytesField(typ protowire.Type, v []byte) ([]byte, error) {
	if typ != protowire.BytesType {
		return nil, errWireType
	}
	x, n := protowire.ConsumeBytes(v)
	if n < 0 {
		return nil, protowire.ParseError(n)
	}
	return x, nil
}

func unmarshalGrid(b []byte) (e chart.GridEvent, err error) {
	err = fields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case fieldTime:
			e.Time, err = double(typ, v)
			return err
		case fieldKind:
			k, err := uvarint(typ, v)
			if err != nil {
				return err
			}
			if k > uint64(chart.Subdivision) {
				return fmt.Errorf("unknown grid kind: %d", k)
			}
			e.Kind = chart.GridKind(k)
		}
		return nil
	})
	return e, err
}

func unmarshalNote(b []byte) (e chart.NoteEvent, err error) {
	err = fields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case fieldTime:
			e.Time, err = double(typ, v)
			return err
		case fieldClass, fieldDotted, fieldMeasure:
			x, err := uvarint(typ, v)
			if err != nil {
				return err
			}
			switch num {
			case fieldClass:
				e.Duration.Class = int(x)
			case fieldDotted:
				e.Duration.Dotted = protowire.DecodeBool(x)
			default:
				e.Measure = int(x)
			}
		}
		return nil
	})
	return e, err
}

// UnmarshalProto decodes a chart encoded by MarshalProto. Only the title is
// restored in the header.
func UnmarshalProto(b []byte) (*chart.Timeline, error) {
	var tl chart.Timeline
	err := fields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case fieldTitle:
			s, err := bytesField(typ, v)
			if err != nil {
				return err
			}
			tl.Header.Title = string(s)
		case fieldGrid:
			m, err := bytesField(typ, v)
			if err != nil {
				return err
			}
			e, err := unmarshalGrid(m)
			if err != nil {
				return err
			}
			tl.Grid = append(tl.Grid, e)
		case fieldNotes:
			m, err := bytesField(typ, v)
			if err != nil {
				return err
			}
			e, err := unmarshalNote(m)
			if err != nil {
				return err
			}
			tl.Notes = append(tl.Notes, e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tl, nil
}
