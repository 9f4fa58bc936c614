package cbor

import (
	"fmt"
	"strconv"
)

// EventKind is the kind of a decode event.
type EventKind int

const (
	// EventLiteral is a complete integer, float or simple value.
	EventLiteral EventKind = iota

	// EventStart opens a byte string, text string, array or map.
	EventStart

	// EventEnd closes the innermost open container.
	EventEnd

	// EventData is a fragment of the open byte or text string.
	EventData

	// EventTag is a tag number. The next item is its content.
	EventTag
)

func (k EventKind) String() string {
	switch k {
	case EventLiteral:
		return "Literal"
	case EventStart:
		return "Start"
	case EventEnd:
		return "End"
	case EventData:
		return "Data"
	case EventTag:
		return "Tag"
	default:
		return "EventKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Event is one structural unit of a decoded CBOR stream.
//
// The events of a stream follow a depth-first traversal of the item tree,
// and every Start is matched by an End at the same depth.
// Definite-length strings, arrays and maps are closed by a synthetic End
// as soon as their declared length is satisfied; indefinite-length items are
// closed by the break byte on the wire.
type Event struct {
	Kind  EventKind
	Major MajorType

	// Value is the decoded literal of an EventLiteral:
	// Integer for major types 0 and 1; bool, nil, Undefined, SimpleValue
	// or float64 for major type 7.
	Value any

	// Length is the declared length of an EventStart; the number of bytes for
	// strings and the number of items or pairs for arrays and maps.
	// It is meaningless if Indefinite is true.
	Length     uint64
	Indefinite bool

	// Data is the payload of an EventData. Fragments of a text string are
	// always complete, valid UTF-8.
	Data []byte

	// Tag is the tag number of an EventTag.
	Tag TagNumber

	// Synthetic reports whether an EventEnd was derived from a declared length
	// rather than read from a break byte.
	Synthetic bool

	// Offset is the stream offset of the head that produced the event.
	Offset int64
}

func (ev Event) String() string {
	switch ev.Kind {
	case EventLiteral:
		return fmt.Sprintf("Literal(%s, %v)", ev.Major, ev.Value)
	case EventStart:
		if ev.Indefinite {
			return fmt.Sprintf("Start(%s, indefinite)", ev.Major)
		}
		return fmt.Sprintf("Start(%s, %d)", ev.Major, ev.Length)
	case EventEnd:
		if ev.Synthetic {
			return fmt.Sprintf("End(%s)", ev.Major)
		}
		return fmt.Sprintf("End(%s, break)", ev.Major)
	case EventData:
		if ev.Major == MajorTypeString {
			return fmt.Sprintf("Data(%q)", ev.Data)
		}
		return fmt.Sprintf("Data(%x)", ev.Data)
	case EventTag:
		return fmt.Sprintf("Tag(%d)", uint64(ev.Tag))
	}
	return ev.Kind.String()
}
