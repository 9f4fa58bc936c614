package cbor

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"
)

// Diagnose returns the diagnostic notation (RFC 8949 Section 8) of the
// CBOR data items read from src. Items of a CBOR sequence are separated by ", ".
// Indefinite-length items are marked with an underscore, as in [_ 1, 2].
// Of opts, only WithLogger has an effect.
func Diagnose(src ChunkSource, opts ...DecodeOption) (string, error) {
	s := ednState{}
	d := NewDecoder(src, opts...)
	for {
		ev, err := d.ReadEvent()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if err := s.event(ev); err != nil {
			return "", err
		}
	}
	return s.buf.String(), nil
}

// DiagnoseBytes returns the diagnostic notation of the CBOR data items in data.
func DiagnoseBytes(data []byte, opts ...DecodeOption) (string, error) {
	return Diagnose(BytesSource(data), opts...)
}

type ednFrame struct {
	major      MajorType // MajorTypeTag for a tag waiting for its content
	indefinite bool
	items      int    // items started in this container
	text       []byte // payload of a definite-length text string
}

type ednState struct {
	buf    bytes.Buffer
	frames []ednFrame
	items  int // top-level items
}

func (s *ednState) top() *ednFrame {
	if len(s.frames) == 0 {
		return nil
	}
	return &s.frames[len(s.frames)-1]
}

// separator writes the punctuation before an item in the current container.
func (s *ednState) separator() {
	f := s.top()
	switch {
	case f == nil:
		if s.items > 0 {
			s.buf.WriteString(", ")
		}
		s.items++
	case f.major == MajorTypeTag:
	case f.major == MajorTypeMap && f.items%2 == 1:
		f.items++
		s.buf.WriteString(": ")
	default:
		if f.items > 0 {
			s.buf.WriteString(", ")
		}
		f.items++
	}
}

// done closes the tags waiting for the item that just ended.
func (s *ednState) done() {
	for f := s.top(); f != nil && f.major == MajorTypeTag; f = s.top() {
		s.frames = s.frames[:len(s.frames)-1]
		s.buf.WriteByte(')')
	}
}

func (s *ednState) event(ev Event) error {
	switch ev.Kind {
	case EventLiteral:
		s.separator()
		s.literal(ev.Value)
		s.done()

	case EventTag:
		s.separator()
		b := s.buf.AvailableBuffer()
		b = strconv.AppendUint(b, uint64(ev.Tag), 10)
		s.buf.Write(b)
		s.buf.WriteByte('(')
		s.frames = append(s.frames, ednFrame{major: MajorTypeTag})

	case EventStart:
		s.start(ev)

	case EventData:
		if f := s.top(); f.major == MajorTypeString {
			f.text = append(f.text, ev.Data...)
		} else {
			b := s.buf.AvailableBuffer()
			b = hex.AppendEncode(b, ev.Data)
			s.buf.Write(b)
		}

	case EventEnd:
		return s.end()
	}
	return nil
}

func (s *ednState) start(ev Event) {
	s.separator()
	s.frames = append(s.frames, ednFrame{major: ev.Major, indefinite: ev.Indefinite})
	if ev.Indefinite {
		switch ev.Major {
		case MajorTypeArray:
			s.buf.WriteString("[_ ")
		case MajorTypeMap:
			s.buf.WriteString("{_ ")
		default:
			s.buf.WriteString("(_ ")
		}
		return
	}
	switch ev.Major {
	case MajorTypeBytes:
		s.buf.WriteString("h'")
	case MajorTypeArray:
		s.buf.WriteByte('[')
	case MajorTypeMap:
		s.buf.WriteByte('{')
	}
}

func (s *ednState) end() error {
	f := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]
	if f.indefinite {
		switch f.major {
		case MajorTypeArray:
			s.buf.WriteByte(']')
		case MajorTypeMap:
			s.buf.WriteByte('}')
		default:
			if f.items == 0 {
				// empty indefinite-length string
				s.buf.Truncate(s.buf.Len() - len("(_ "))
				if f.major == MajorTypeBytes {
					s.buf.WriteString("''_")
				} else {
					s.buf.WriteString(`""_`)
				}
			} else {
				s.buf.WriteByte(')')
			}
		}
		s.done()
		return nil
	}

	switch f.major {
	case MajorTypeBytes:
		s.buf.WriteByte('\'')
	case MajorTypeString:
		data, err := json.Marshal(string(f.text))
		if err != nil {
			return err
		}
		s.buf.Write(data)
	case MajorTypeArray:
		s.buf.WriteByte(']')
	case MajorTypeMap:
		s.buf.WriteByte('}')
	}
	s.done()
	return nil
}

func (s *ednState) literal(v any) {
	switch v := v.(type) {
	case Integer:
		s.buf.WriteString(v.String())
	case float64:
		b := s.buf.AvailableBuffer()
		b = appendEDNFloat(b, v)
		s.buf.Write(b)
	case bool:
		if v {
			s.buf.WriteString("true")
		} else {
			s.buf.WriteString("false")
		}
	case nil:
		s.buf.WriteString("null")
	case undefined:
		s.buf.WriteString("undefined")
	case SimpleValue:
		s.buf.WriteString(v.String())
	}
}

func appendEDNFloat(b []byte, f float64) []byte {
	switch {
	case math.IsInf(f, 1):
		return append(b, "Infinity"...)
	case math.IsInf(f, -1):
		return append(b, "-Infinity"...)
	case math.IsNaN(f):
		return append(b, "NaN"...)
	}

	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		b = append(b, mant...)
		if !strings.Contains(mant, ".") {
			b = append(b, ".0"...)
		}
		b = append(b, 'e', exp[0])
		return append(b, strings.TrimLeft(exp[1:], "0")...)
	}

	l := len(b)
	b = strconv.AppendFloat(b, f, 'f', -1, 64)
	if !bytes.ContainsRune(b[l:], '.') {
		b = append(b, ".0"...)
	}
	return b
}
