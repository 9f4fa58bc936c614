package cbor

import (
	"cmp"
	"encoding/binary"
	"math/big"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/shogo82148/float16"
)

// Marshaler is the interface implemented by types that
// can marshal themselves into valid CBOR.
type Marshaler interface {
	// MarshalCBOR returns the CBOR encoding of the receiver.
	MarshalCBOR() ([]byte, error)
}

// An EncodeHandler writes values of the types it matches.
//
// Encode is called for the first handler of the chain whose Match accepts
// a value. It writes the value with the Encoder methods, and encodes nested
// values with Encoder.WriteValue so that they run through the chain again.
type EncodeHandler interface {
	Match(v any) bool
	Encode(e *Encoder, v any) error
}

// DefaultEncodeHandlers returns the default encode handler chain.
func DefaultEncodeHandlers() []EncodeHandler {
	return []EncodeHandler{
		SimpleEncoder{},
		IntegerEncoder{},
		FloatEncoder{},
		BytesEncoder{},
		StringEncoder{},
		StringStreamEncoder{},
		ArrayEncoder{},
		RecordEncoder{},
		MapEncoder{},
		TagEncoder{},
		RawEncoder{},
		SequenceEncoder{},
		ReflectEncoder{},
	}
}

type encodeOptions struct {
	handlers []EncodeHandler
}

// An EncodeOption configures an Encoder.
type EncodeOption func(*encodeOptions)

// WithEncodeHandlers replaces the encode handler chain.
// Handlers are tried in order and the first match wins.
func WithEncodeHandlers(handlers ...EncodeHandler) EncodeOption {
	return func(o *encodeOptions) {
		o.handlers = handlers
	}
}

// Marshal returns the CBOR encoding of v.
func Marshal(v any, opts ...EncodeOption) ([]byte, error) {
	e := newEncoder(nil, opts)
	if err := e.WriteValue(v); err != nil {
		return nil, err
	}
	return e.buf, nil
}

// WriteValue writes v with the first handler of the chain that matches it.
// Values no handler matches are reported as UnsupportedValueError.
func (e *Encoder) WriteValue(v any) error {
	for _, h := range e.handlers {
		if h.Match(v) {
			return h.Encode(e, v)
		}
	}
	return &UnsupportedValueError{Type: reflect.TypeOf(v)}
}

// marshal encodes v on its own with the handler chain of e.
func (e *Encoder) marshal(v any) ([]byte, error) {
	sub := &Encoder{handlers: e.handlers}
	if err := sub.WriteValue(v); err != nil {
		return nil, err
	}
	return sub.buf, nil
}

func (e *Encoder) writeByte(v byte) {
	e.buf = append(e.buf, v)
}

func (e *Encoder) writeUint16(v uint16) {
	e.buf = binary.BigEndian.AppendUint16(e.buf, v)
}

func (e *Encoder) writeUint32(v uint32) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) writeUint64(v uint64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, v)
}

// WriteArgument writes a head with the given major type and argument,
// in the shortest form that holds n.
func (e *Encoder) WriteArgument(major MajorType, n uint64) {
	bits := byte(major) << 5
	switch {
	case n < 24:
		e.writeByte(bits | byte(n))
	case n < 0x100:
		e.writeByte(bits | infoUint8)
		e.writeByte(byte(n))
	case n < 0x10000:
		e.writeByte(bits | infoUint16)
		e.writeUint16(uint16(n))
	case n < 0x100000000:
		e.writeByte(bits | infoUint32)
		e.writeUint32(uint32(n))
	default:
		e.writeByte(bits | infoUint64)
		e.writeUint64(n)
	}
}

// WriteBigArgument is like WriteArgument for an arbitrary precision argument.
// It returns an EncodingRangeError if n is negative or does not fit in 64 bits.
func (e *Encoder) WriteBigArgument(major MajorType, n *big.Int) error {
	if n.Sign() < 0 || !n.IsUint64() {
		return &EncodingRangeError{Major: major, Value: n.String()}
	}
	e.WriteArgument(major, n.Uint64())
	return nil
}

// WriteIndefinite writes the head of an indefinite-length byte string,
// text string, array or map. The item must be closed with WriteBreak.
func (e *Encoder) WriteIndefinite(major MajorType) {
	e.writeByte(byte(major)<<5 | infoIndefinite)
}

// WriteBreak writes the break byte that closes an indefinite-length item.
func (e *Encoder) WriteBreak() {
	e.writeByte(sigilBreak)
}

// WriteTag writes the head of a tag. The tag content must follow.
func (e *Encoder) WriteTag(n TagNumber) {
	e.WriteArgument(MajorTypeTag, uint64(n))
}

// WriteRaw writes data verbatim. It must be a well-formed CBOR encoding.
func (e *Encoder) WriteRaw(data []byte) {
	e.buf = append(e.buf, data...)
}

func (e *Encoder) writeInt(v int64) {
	ui := uint64(v >> 63)
	major := MajorType(ui) & MajorTypeNegativeInt
	ui ^= uint64(v)
	e.WriteArgument(major, ui)
}

func (e *Encoder) writeBool(v bool) {
	if v {
		e.writeByte(sigilTrue)
	} else {
		e.writeByte(sigilFalse)
	}
}

func (e *Encoder) writeBytes(v []byte) {
	e.WriteArgument(MajorTypeBytes, uint64(len(v)))
	e.buf = append(e.buf, v...)
}

func (e *Encoder) writeString(v string) {
	e.WriteArgument(MajorTypeString, uint64(len(v)))
	e.buf = append(e.buf, v...)
}

// writeBigInt writes i as a native integer if it fits, as a bignum otherwise.
func (e *Encoder) writeBigInt(i *big.Int) error {
	major, tag := MajorTypePositiveInt, tagNumberPositiveBignum
	n := i
	if i.Sign() < 0 {
		major, tag = MajorTypeNegativeInt, tagNumberNegativeBignum
		n = new(big.Int).Sub(minusOne, i)
	}
	if n.IsUint64() {
		return e.WriteBigArgument(major, n)
	}
	e.WriteTag(tag)
	e.writeBytes(n.Bytes())
	return nil
}

// SimpleEncoder writes nil, bool, Undefined and SimpleValue.
type SimpleEncoder struct{}

func (SimpleEncoder) Match(v any) bool {
	switch v.(type) {
	case nil, bool, undefined, SimpleValue:
		return true
	}
	return false
}

func (SimpleEncoder) Encode(e *Encoder, v any) error {
	switch v := v.(type) {
	case nil:
		e.writeByte(sigilNull)
	case undefined:
		e.writeByte(sigilUndefined)
	case bool:
		e.writeBool(v)
	case SimpleValue:
		switch {
		case v < 20:
			e.writeByte(byte(MajorTypeOther)<<5 | byte(v))
		case v < 32:
			// 20-23 are false, true, null and undefined; 24-31 are reserved
			return &EncodingRangeError{Major: MajorTypeOther, Value: strconv.Itoa(int(v))}
		default:
			e.writeByte(byte(MajorTypeOther)<<5 | infoUint8)
			e.writeByte(byte(v))
		}
	}
	return nil
}

// IntegerEncoder writes Go integers, Integer and big integers.
// Big integers out of the 64-bit argument range are written as bignums.
type IntegerEncoder struct{}

func (IntegerEncoder) Match(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, uintptr,
		Integer, *big.Int, big.Int:
		return true
	}
	return false
}

func (IntegerEncoder) Encode(e *Encoder, v any) error {
	switch v := v.(type) {
	case int:
		e.writeInt(int64(v))
	case int8:
		e.writeInt(int64(v))
	case int16:
		e.writeInt(int64(v))
	case int32:
		e.writeInt(int64(v))
	case int64:
		e.writeInt(v)
	case uint:
		e.WriteArgument(MajorTypePositiveInt, uint64(v))
	case uint8:
		e.WriteArgument(MajorTypePositiveInt, uint64(v))
	case uint16:
		e.WriteArgument(MajorTypePositiveInt, uint64(v))
	case uint32:
		e.WriteArgument(MajorTypePositiveInt, uint64(v))
	case uint64:
		e.WriteArgument(MajorTypePositiveInt, v)
	case uintptr:
		e.WriteArgument(MajorTypePositiveInt, uint64(v))
	case Integer:
		if v.Sign {
			e.WriteArgument(MajorTypeNegativeInt, v.Value)
		} else {
			e.WriteArgument(MajorTypePositiveInt, v.Value)
		}
	case *big.Int:
		if v == nil {
			e.writeByte(sigilNull)
			return nil
		}
		return e.writeBigInt(v)
	case big.Int:
		return e.writeBigInt(&v)
	}
	return nil
}

// FloatEncoder writes float32 and float64 as double-precision floats,
// and float16.Float16 as half-precision floats.
type FloatEncoder struct{}

func (FloatEncoder) Match(v any) bool {
	switch v.(type) {
	case float32, float64, float16.Float16:
		return true
	}
	return false
}

func (FloatEncoder) Encode(e *Encoder, v any) error {
	switch v := v.(type) {
	case float32:
		e.WriteFloat64(float64(v))
	case float64:
		e.WriteFloat64(v)
	case float16.Float16:
		e.WriteFloat16(v)
	}
	return nil
}

// BytesEncoder writes []byte as definite-length byte strings.
type BytesEncoder struct{}

func (BytesEncoder) Match(v any) bool {
	_, ok := v.([]byte)
	return ok
}

func (BytesEncoder) Encode(e *Encoder, v any) error {
	e.writeBytes(v.([]byte))
	return nil
}

// StringEncoder writes string as definite-length text strings.
type StringEncoder struct{}

func (StringEncoder) Match(v any) bool {
	_, ok := v.(string)
	return ok
}

func (StringEncoder) Encode(e *Encoder, v any) error {
	e.writeString(v.(string))
	return nil
}

// ArrayEncoder writes []any as definite-length arrays.
type ArrayEncoder struct{}

func (ArrayEncoder) Match(v any) bool {
	_, ok := v.([]any)
	return ok
}

func (ArrayEncoder) Encode(e *Encoder, v any) error {
	items := v.([]any)
	e.WriteArgument(MajorTypeArray, uint64(len(items)))
	for _, item := range items {
		if err := e.WriteValue(item); err != nil {
			return err
		}
	}
	return nil
}

// RecordEncoder writes map[string]any as definite-length maps.
// The keys are written in the bytewise order of their encodings,
// that is shorter keys first.
type RecordEncoder struct{}

func (RecordEncoder) Match(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

func (RecordEncoder) Encode(e *Encoder, v any) error {
	record := v.(map[string]any)
	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, cmpRecordKey)

	e.WriteArgument(MajorTypeMap, uint64(len(keys)))
	for _, key := range keys {
		e.writeString(key)
		if err := e.WriteValue(record[key]); err != nil {
			return err
		}
	}
	return nil
}

func cmpRecordKey(a, b string) int {
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// MapEncoder writes Map as a definite-length map, keeping the order of its pairs.
type MapEncoder struct{}

func (MapEncoder) Match(v any) bool {
	_, ok := v.(Map)
	return ok
}

func (MapEncoder) Encode(e *Encoder, v any) error {
	pairs := v.(Map)
	e.WriteArgument(MajorTypeMap, uint64(len(pairs)))
	for _, p := range pairs {
		if err := e.WriteValue(p.Key); err != nil {
			return err
		}
		if err := e.WriteValue(p.Value); err != nil {
			return err
		}
	}
	return nil
}

// RawEncoder writes the encoding returned by a Marshaler, such as RawMessage.
type RawEncoder struct{}

func (RawEncoder) Match(v any) bool {
	_, ok := v.(Marshaler)
	return ok
}

func (RawEncoder) Encode(e *Encoder, v any) error {
	data, err := v.(Marshaler).MarshalCBOR()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return newSemanticError("cbor: empty raw value")
	}
	e.WriteRaw(data)
	return nil
}
