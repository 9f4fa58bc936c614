package cbor

import (
	"errors"
	"fmt"
	"io"
	"reflect"
)

// ErrTrailingData is returned by Decode and Unmarshal when more data follows
// the first complete top-level value.
var ErrTrailingData = errors.New("cbor: unexpected trailing data")

// A StructuralError describes input that is not well-formed CBOR.
type StructuralError struct {
	Offset int64 // offset of the offending byte
	msg    string
}

func newStructuralError(offset int64, format string, args ...any) *StructuralError {
	return &StructuralError{Offset: offset, msg: fmt.Sprintf(format, args...)}
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("cbor: %s at offset %d", e.msg, e.Offset)
}

// A TruncatedInputError describes input that ends inside a data item.
type TruncatedInputError struct {
	Offset int64 // offset at which the input ended
	msg    string
}

func newTruncatedInputError(offset int64, what string) *TruncatedInputError {
	return &TruncatedInputError{Offset: offset, msg: what}
}

func (e *TruncatedInputError) Error() string {
	return fmt.Sprintf("cbor: unexpected end of input in %s at offset %d", e.msg, e.Offset)
}

// Is reports TruncatedInputError as io.ErrUnexpectedEOF.
func (e *TruncatedInputError) Is(target error) bool {
	return target == io.ErrUnexpectedEOF
}

// An InvalidUTF8Error describes a text string that is not valid UTF-8.
type InvalidUTF8Error struct {
	Offset int64 // offset of the text string fragment
}

func (e *InvalidUTF8Error) Error() string {
	return fmt.Sprintf("cbor: invalid UTF-8 in text string at offset %d", e.Offset)
}

// An EncodingRangeError describes an argument that does not fit in
// the 64-bit argument of a CBOR head.
type EncodingRangeError struct {
	Major MajorType
	Value string
}

func (e *EncodingRangeError) Error() string {
	return fmt.Sprintf("cbor: argument %s of %s out of range", e.Value, e.Major)
}

// A DecodingRangeError describes a declared length that cannot be held in memory.
type DecodingRangeError struct {
	Offset int64
	Major  MajorType
	Length uint64
}

func (e *DecodingRangeError) Error() string {
	return fmt.Sprintf("cbor: %s length %d too large at offset %d", e.Major, e.Length, e.Offset)
}

// A MapParityError describes a map that ends between a key and its value.
type MapParityError struct {
	Offset int64
}

func (e *MapParityError) Error() string {
	return fmt.Sprintf("cbor: map ends without the value of its last key at offset %d", e.Offset)
}

// An UnsupportedValueError is returned by the encoder when no handler
// accepts a value.
type UnsupportedValueError struct {
	Type reflect.Type
}

func (e *UnsupportedValueError) Error() string {
	if e.Type == nil {
		return "cbor: unsupported value"
	}
	return "cbor: unsupported type: " + e.Type.String()
}

// A SemanticError describes a well-formed data item with invalid content,
// such as a bignum tag on a text string.
type SemanticError struct {
	msg string
	err error
}

func newSemanticError(msg string) error {
	return &SemanticError{msg: msg}
}

func wrapSemanticError(msg string, err error) error {
	return &SemanticError{msg: msg, err: err}
}

func (e *SemanticError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *SemanticError) Unwrap() error {
	return e.err
}
