package cbor

import (
	"io"
	"iter"
)

// An Encoder writes CBOR to an output stream.
//
// Encoded bytes are buffered and written to the stream by Flush.
// Encode flushes after every top-level value, and the streaming handlers
// flush after every chunk or item so that memory use does not grow with
// the length of a stream.
type Encoder struct {
	w        io.Writer
	handlers []EncodeHandler
	buf      []byte
	err      error
}

// NewEncoder returns a new encoder that writes to w.
func NewEncoder(w io.Writer, opts ...EncodeOption) *Encoder {
	return newEncoder(w, opts)
}

func newEncoder(w io.Writer, opts []EncodeOption) *Encoder {
	var o encodeOptions
	for _, opt := range opts {
		opt(&o)
	}
	if len(o.handlers) == 0 {
		o.handlers = DefaultEncodeHandlers()
	}
	return &Encoder{w: w, handlers: o.handlers}
}

// Encode writes the CBOR encoding of v to the stream.
// After the first error, Encode returns it without writing anything.
func (e *Encoder) Encode(v any) error {
	if e.err != nil {
		return e.err
	}

	err := e.WriteValue(v)
	if err == nil {
		err = e.Flush()
	}
	if err != nil {
		e.buf = e.buf[:0]
		e.err = err
	}
	return err
}

// Flush writes the buffered bytes to the stream.
// An Encoder without a stream keeps them buffered.
func (e *Encoder) Flush() error {
	if e.w == nil || len(e.buf) == 0 {
		return nil
	}
	_, err := e.w.Write(e.buf)
	e.buf = e.buf[:0]
	return err
}

// ByteStream is written as an indefinite-length byte string,
// one chunk for each non-empty chunk of Source.
type ByteStream struct {
	Source ChunkSource
}

// TextStream is written as an indefinite-length text string.
// Chunks of Source may split UTF-8 sequences; they are rejoined so that
// every chunk written is valid UTF-8 on its own.
type TextStream struct {
	Source ChunkSource
}

// WriteByteStream writes the chunks of src as an indefinite-length byte string.
func (e *Encoder) WriteByteStream(src ChunkSource) error {
	e.WriteIndefinite(MajorTypeBytes)
	for {
		chunk, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			continue
		}
		e.writeBytes(chunk)
		if err := e.Flush(); err != nil {
			return err
		}
	}
	e.WriteBreak()
	return nil
}

// WriteTextStream writes the chunks of src as an indefinite-length text string.
// It returns an InvalidUTF8Error if the text is not valid UTF-8.
func (e *Encoder) WriteTextStream(src ChunkSource) error {
	var text textReassembler
	var offset int64
	e.WriteIndefinite(MajorTypeString)
	for {
		chunk, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		data, ok := text.write(chunk, false)
		if !ok {
			return &InvalidUTF8Error{Offset: offset}
		}
		offset += int64(len(chunk))
		if len(data) == 0 {
			continue
		}
		e.WriteArgument(MajorTypeString, uint64(len(data)))
		e.WriteRaw(data)
		if err := e.Flush(); err != nil {
			return err
		}
	}
	if text.pending() {
		return &InvalidUTF8Error{Offset: offset}
	}
	e.WriteBreak()
	return nil
}

// StringStreamEncoder writes ByteStream and TextStream.
type StringStreamEncoder struct{}

func (StringStreamEncoder) Match(v any) bool {
	switch v.(type) {
	case ByteStream, *ByteStream, TextStream, *TextStream:
		return true
	}
	return false
}

func (StringStreamEncoder) Encode(e *Encoder, v any) error {
	switch v := v.(type) {
	case ByteStream:
		return e.WriteByteStream(v.Source)
	case *ByteStream:
		return e.WriteByteStream(v.Source)
	case TextStream:
		return e.WriteTextStream(v.Source)
	case *TextStream:
		return e.WriteTextStream(v.Source)
	}
	return nil
}

// SequenceEncoder writes iterators and receive-only channels of unknown
// length as indefinite-length arrays, and iterators of pairs as
// indefinite-length maps.
type SequenceEncoder struct{}

func (SequenceEncoder) Match(v any) bool {
	switch v.(type) {
	case iter.Seq[any], func(func(any) bool), <-chan any,
		iter.Seq2[any, any], func(func(any, any) bool):
		return true
	}
	return false
}

func (SequenceEncoder) Encode(e *Encoder, v any) error {
	switch v := v.(type) {
	case iter.Seq[any]:
		return e.writeSeq(v)
	case func(func(any) bool):
		return e.writeSeq(v)
	case <-chan any:
		return e.writeSeq(func(yield func(any) bool) {
			for item := range v {
				if !yield(item) {
					return
				}
			}
		})
	case iter.Seq2[any, any]:
		return e.writeSeq2(v)
	case func(func(any, any) bool):
		return e.writeSeq2(v)
	}
	return nil
}

func (e *Encoder) writeSeq(seq iter.Seq[any]) error {
	var err error
	e.WriteIndefinite(MajorTypeArray)
	for item := range seq {
		if err = e.WriteValue(item); err != nil {
			break
		}
		if err = e.Flush(); err != nil {
			break
		}
	}
	if err != nil {
		return err
	}
	e.WriteBreak()
	return nil
}

func (e *Encoder) writeSeq2(seq iter.Seq2[any, any]) error {
	var err error
	e.WriteIndefinite(MajorTypeMap)
	for key, value := range seq {
		if err = e.WriteValue(key); err != nil {
			break
		}
		if err = e.WriteValue(value); err != nil {
			break
		}
		if err = e.Flush(); err != nil {
			break
		}
	}
	if err != nil {
		return err
	}
	e.WriteBreak()
	return nil
}
