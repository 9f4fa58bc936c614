// Package cbor implements a streaming codec for the Concise Binary Object
// Representation (CBOR) described in RFC 8949.
//
// Decoding is incremental: a Decoder pulls byte chunks from a ChunkSource and
// produces a lazy sequence of structural events (see Event). The chunks may be
// split anywhere, including inside a multi-byte argument or a UTF-8 codepoint.
// A Builder reconstructs Go values from those events by running an ordered,
// replaceable chain of DecodeHandlers.
//
// Encoding mirrors decoding: an Encoder writes values to an io.Writer through
// an ordered chain of EncodeHandlers, and can stream open-ended byte and text
// string content as indefinite-length strings.
package cbor

import (
	"fmt"
	"math"
	"math/big"
)

// MajorType is the 3-bit type in the initial byte of a CBOR data item.
type MajorType uint8

const (
	MajorTypePositiveInt MajorType = 0
	MajorTypeNegativeInt MajorType = 1
	MajorTypeBytes       MajorType = 2
	MajorTypeString      MajorType = 3
	MajorTypeArray       MajorType = 4
	MajorTypeMap         MajorType = 5
	MajorTypeTag         MajorType = 6
	MajorTypeOther       MajorType = 7
)

func (t MajorType) String() string {
	switch t {
	case MajorTypePositiveInt:
		return "unsigned integer"
	case MajorTypeNegativeInt:
		return "negative integer"
	case MajorTypeBytes:
		return "byte string"
	case MajorTypeString:
		return "text string"
	case MajorTypeArray:
		return "array"
	case MajorTypeMap:
		return "map"
	case MajorTypeTag:
		return "tag"
	case MajorTypeOther:
		return "simple value"
	}
	return fmt.Sprintf("major type %d", uint8(t))
}

// additional information values with a special meaning.
const (
	infoUint8      = 24
	infoUint16     = 25
	infoUint32     = 26
	infoUint64     = 27
	infoIndefinite = 31
)

// byte values of the fixed single-byte items.
const (
	sigilFalse     byte = 0xf4
	sigilTrue      byte = 0xf5
	sigilNull      byte = 0xf6
	sigilUndefined byte = 0xf7
	sigilFloat16   byte = 0xf9
	sigilFloat32   byte = 0xfa
	sigilFloat64   byte = 0xfb
	sigilBreak     byte = 0xff
)

type undefined *struct{}

// Undefined is the CBOR undefined value (simple value 23).
var Undefined undefined = nil

// SimpleValue is a CBOR simple value that has no other Go representation:
// the unassigned codes 0..19 and 32..255.
type SimpleValue uint8

func (s SimpleValue) String() string {
	return fmt.Sprintf("simple(%d)", uint8(s))
}

// Integer is a CBOR integer of major type 0 or 1.
// It covers the whole range [-2^64, 2^64-1].
type Integer struct {
	// Sign is true if the integer is negative.
	Sign bool

	// Value is the CBOR argument.
	// The integer is Value if Sign is false, and -1-Value otherwise.
	Value uint64
}

// Int64 returns the integer as int64.
// It returns an error if the integer overflows int64.
func (i Integer) Int64() (int64, error) {
	if i.Value > math.MaxInt64 {
		return 0, fmt.Errorf("cbor: integer %s overflows int64", i.String())
	}
	if i.Sign {
		return ^int64(i.Value), nil
	}
	return int64(i.Value), nil
}

// Uint64 returns the integer as uint64.
// It returns an error if the integer is negative.
func (i Integer) Uint64() (uint64, error) {
	if i.Sign {
		return 0, fmt.Errorf("cbor: integer %s overflows uint64", i.String())
	}
	return i.Value, nil
}

// BigInt returns the integer as *big.Int.
func (i Integer) BigInt() *big.Int {
	b := new(big.Int).SetUint64(i.Value)
	if i.Sign {
		b.Sub(minusOne, b)
	}
	return b
}

func (i Integer) String() string {
	return i.BigInt().String()
}

var minusOne = big.NewInt(-1)

// Pair is a key/value pair of a CBOR map.
type Pair struct {
	Key   any
	Value any
}

// Map is a CBOR map in wire order.
// Unlike Go maps, its keys may be of any type, including []byte and []any.
type Map []Pair

// Get returns the value of the last pair whose key is the string key.
func (m Map) Get(key string) (any, bool) {
	for i := len(m) - 1; i >= 0; i-- {
		if k, ok := m[i].Key.(string); ok && k == key {
			return m[i].Value, true
		}
	}
	return nil, false
}

// RawMessage is a raw encoded CBOR value.
// The encoder writes it verbatim, so it can be used to precompute an encoding.
type RawMessage []byte

// MarshalCBOR returns m as the CBOR encoding of m.
func (m RawMessage) MarshalCBOR() ([]byte, error) {
	return []byte(m), nil
}
