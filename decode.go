package cbor

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"math"
)

type decodeOptions struct {
	handlers []DecodeHandler
	mapper   func(Tag) (any, error)
	logger   *slog.Logger
}

// A DecodeOption configures a Decoder.
type DecodeOption func(*decodeOptions)

// WithDecodeHandlers replaces the decode handler chain.
// Handlers are tried in order and the first match wins.
func WithDecodeHandlers(handlers ...DecodeHandler) DecodeOption {
	return func(o *decodeOptions) {
		o.handlers = handlers
	}
}

// WithTagMapper sets a function applied to every Tag produced by TagDecoder.
// Its result replaces the Tag in the decoded value.
func WithTagMapper(fn func(Tag) (any, error)) DecodeOption {
	return func(o *decodeOptions) {
		o.mapper = fn
	}
}

// WithLogger enables debug-level tracing of decode events to logger.
func WithLogger(logger *slog.Logger) DecodeOption {
	return func(o *decodeOptions) {
		o.logger = logger
	}
}

// Unmarshal decodes the single CBOR data item in data.
func Unmarshal(data []byte, opts ...DecodeOption) (any, error) {
	return Decode(BytesSource(data), opts...)
}

// Decode decodes the single CBOR data item read from src.
// It returns ErrTrailingData if src holds more than one item.
func Decode(src ChunkSource, opts ...DecodeOption) (any, error) {
	d := NewDecoder(src, opts...)
	v, err := d.Decode()
	if err == io.EOF {
		return nil, newTruncatedInputError(d.cur.offset(), "data item")
	}
	if err != nil {
		return nil, err
	}
	more, err := d.more()
	if err != nil {
		return nil, err
	}
	if more {
		return nil, ErrTrailingData
	}
	return v, nil
}

// Valid reports whether data is exactly one well-formed CBOR data item.
func Valid(data []byte) bool {
	d := NewDecoder(BytesSource(data))
	var open, items int
	for ev, err := range d.Events() {
		if err != nil {
			return false
		}
		switch ev.Kind {
		case EventStart:
			open++
		case EventEnd:
			open--
		}
		if open == 0 && ev.Kind != EventTag {
			items++
		}
	}
	return items == 1
}

type decodeState int

const (
	stateHead     decodeState = iota // expecting a data item
	stateArgument                    // reading the argument bytes of a head
	stateData                        // reading the payload of a string
)

// A Decoder reads CBOR data items from a ChunkSource and produces decode events.
// A Decoder is a single decode session; it is not safe for concurrent use and
// cannot be resumed after an error.
type Decoder struct {
	cur   chunkCursor
	state decodeState

	// the head being read
	major      MajorType
	info       byte
	headOffset int64
	arg        uint64
	argLen     int // argument bytes not read yet

	// the string payload being read
	remaining uint64
	str       stringReassembler
	text      textReassembler

	depth      depthTracker
	tagPending bool // a tag is waiting for its content

	queue []Event
	qhead int
	err   error
	opts  decodeOptions
}

// NewDecoder returns a new decoder that reads from src.
func NewDecoder(src ChunkSource, opts ...DecodeOption) *Decoder {
	d := &Decoder{
		cur: chunkCursor{src: src},
	}
	for _, opt := range opts {
		opt(&d.opts)
	}
	return d
}

// ReadEvent returns the next decode event.
// It returns io.EOF when the input ends on a data item boundary.
func (d *Decoder) ReadEvent() (Event, error) {
	for d.qhead == len(d.queue) {
		if d.err != nil {
			return Event{}, d.err
		}
		d.queue, d.qhead = d.queue[:0], 0
		if err := d.step(); err != nil {
			d.err = err
		}
	}
	ev := d.queue[d.qhead]
	d.qhead++
	if logger := d.opts.logger; logger != nil && logger.Enabled(context.Background(), slog.LevelDebug) {
		logger.LogAttrs(context.Background(), slog.LevelDebug, "cbor event",
			slog.String("event", ev.String()),
			slog.Int64("offset", ev.Offset),
			slog.Int("depth", d.depth.depth()),
		)
	}
	return ev, nil
}

// Events returns the remaining decode events as a sequence.
// The sequence stops after the first error.
func (d *Decoder) Events() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			ev, err := d.ReadEvent()
			if err == io.EOF {
				return
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}

// Decode reads the next complete data item and returns its value.
// It returns io.EOF if the input ends before a data item starts,
// so it can be called repeatedly to read a CBOR sequence.
func (d *Decoder) Decode() (any, error) {
	b := NewBuilder(d.opts.handlers...)
	b.mapper = d.opts.mapper
	started := false
	for {
		ev, err := d.ReadEvent()
		if err == io.EOF && started {
			return nil, newTruncatedInputError(d.cur.offset(), "data item")
		}
		if err != nil {
			return nil, err
		}
		started = true
		if err := b.Feed(ev); err != nil {
			d.err = err
			return nil, err
		}
		if v, ok := b.Result(); ok {
			return v, nil
		}
	}
}

// more reports whether any input is left after the last complete item.
func (d *Decoder) more() (bool, error) {
	if d.qhead < len(d.queue) || d.state != stateHead {
		return true, nil
	}
	if d.err != nil {
		if d.err == io.EOF {
			return false, nil
		}
		return false, d.err
	}
	return d.cur.fill()
}

func (d *Decoder) emit(ev Event) {
	d.queue = append(d.queue, ev)
}

func (d *Decoder) step() error {
	switch d.state {
	case stateArgument:
		return d.readArgument()
	case stateData:
		return d.readData()
	default:
		return d.readHead()
	}
}

func (d *Decoder) readHead() error {
	ok, err := d.cur.fill()
	if err != nil {
		return err
	}
	if !ok {
		if top := d.depth.top(); top != nil {
			return newTruncatedInputError(d.cur.offset(), top.major.String())
		}
		if d.tagPending {
			return newTruncatedInputError(d.cur.offset(), "tag content")
		}
		return io.EOF
	}

	d.headOffset = d.cur.offset()
	b := d.cur.readByte()
	d.major = MajorType(b >> 5)
	d.info = b & 0x1f
	switch {
	case d.info < infoUint8:
		d.arg = uint64(d.info)
		return d.dispatch()
	case d.info <= infoUint64:
		d.arg = 0
		d.argLen = 1 << (d.info - infoUint8)
		d.state = stateArgument
		return d.readArgument()
	case d.info < infoIndefinite:
		return newStructuralError(d.headOffset, "reserved additional information %d", d.info)
	default:
		return d.indefinite()
	}
}

// readArgument accumulates the big-endian argument of the current head,
// which may be split across chunks.
func (d *Decoder) readArgument() error {
	for d.argLen > 0 {
		ok, err := d.cur.fill()
		if err != nil {
			return err
		}
		if !ok {
			return newTruncatedInputError(d.cur.offset(), "argument of "+d.major.String())
		}
		d.arg = d.arg<<8 | uint64(d.cur.readByte())
		d.argLen--
	}
	d.state = stateHead
	return d.dispatch()
}

// dispatch handles a head whose argument is complete.
func (d *Decoder) dispatch() error {
	if err := d.checkStringChunk(); err != nil {
		return err
	}

	switch d.major {
	case MajorTypePositiveInt, MajorTypeNegativeInt:
		d.literal(Integer{Sign: d.major == MajorTypeNegativeInt, Value: d.arg})
		return nil
	case MajorTypeTag:
		d.tagPending = true
		d.emit(Event{Kind: EventTag, Major: MajorTypeTag, Tag: TagNumber(d.arg), Offset: d.headOffset})
		return nil
	case MajorTypeBytes, MajorTypeString:
		return d.startString()
	case MajorTypeArray, MajorTypeMap:
		return d.startContainer()
	default:
		return d.simple()
	}
}

// checkStringChunk rejects items other than same-typed definite strings
// inside an indefinite-length string.
func (d *Decoder) checkStringChunk() error {
	top := d.depth.top()
	if top == nil || !top.indefinite || !isString(top.major) {
		return nil
	}
	if d.major != top.major {
		return newStructuralError(d.headOffset, "%s in indefinite-length %s", d.major, top.major)
	}
	return nil
}

func isString(t MajorType) bool {
	return t == MajorTypeBytes || t == MajorTypeString
}

// literal emits a scalar item and completes it.
func (d *Decoder) literal(v any) {
	d.tagPending = false
	d.emit(Event{Kind: EventLiteral, Major: d.major, Value: v, Offset: d.headOffset})
	d.complete()
}

// complete runs the depth tracker after a child item has ended.
func (d *Decoder) complete() {
	d.depth.complete(d.syntheticEnd)
}

func (d *Decoder) syntheticEnd(major MajorType) {
	d.emit(Event{Kind: EventEnd, Major: major, Synthetic: true, Offset: d.cur.offset()})
}

func (d *Decoder) simple() error {
	var v any
	switch d.info {
	case infoUint16, infoUint32, infoUint64:
		v = decodeFloat(d.info, d.arg)
	case infoUint8:
		if d.arg < 32 {
			return newStructuralError(d.headOffset, "simple value %d in two-byte form", d.arg)
		}
		v = SimpleValue(d.arg)
	default:
		switch d.arg {
		case 20:
			v = false
		case 21:
			v = true
		case 22:
			v = nil
		case 23:
			v = Undefined
		default:
			v = SimpleValue(d.arg)
		}
	}
	d.literal(v)
	return nil
}

func (d *Decoder) startString() error {
	if d.arg > math.MaxInt {
		return &DecodingRangeError{Offset: d.headOffset, Major: d.major, Length: d.arg}
	}
	d.tagPending = false
	d.emit(Event{Kind: EventStart, Major: d.major, Length: d.arg, Offset: d.headOffset})

	if d.major == MajorTypeString {
		d.str = &d.text
	} else {
		d.str = bytesReassembler{}
	}
	d.str.reset()
	if d.arg == 0 {
		d.endString()
		return nil
	}
	d.remaining = d.arg
	d.state = stateData
	return nil
}

// readData copies the payload available in the current chunk to the reassembler.
func (d *Decoder) readData() error {
	ok, err := d.cur.fill()
	if err != nil {
		return err
	}
	if !ok {
		return newTruncatedInputError(d.cur.offset(), d.major.String())
	}

	offset := d.cur.offset()
	p := d.cur.next(d.remaining)
	d.remaining -= uint64(len(p))
	final := d.remaining == 0
	data, ok := d.str.write(p, final)
	if !ok {
		return &InvalidUTF8Error{Offset: offset}
	}
	if len(data) > 0 {
		d.emit(Event{Kind: EventData, Major: d.major, Data: data, Offset: offset})
	}
	if final {
		d.state = stateHead
		d.endString()
	}
	return nil
}

func (d *Decoder) endString() {
	d.emit(Event{Kind: EventEnd, Major: d.major, Synthetic: true, Offset: d.cur.offset()})
	d.complete()
}

func (d *Decoder) startContainer() error {
	items := d.arg
	if d.major == MajorTypeMap {
		if items > math.MaxUint64/2 {
			return &DecodingRangeError{Offset: d.headOffset, Major: d.major, Length: d.arg}
		}
		items *= 2
	}
	d.tagPending = false
	d.emit(Event{Kind: EventStart, Major: d.major, Length: d.arg, Offset: d.headOffset})
	if items == 0 {
		d.syntheticEnd(d.major)
		d.complete()
		return nil
	}
	d.depth.pushDefinite(d.major, items)
	return nil
}

// indefinite handles additional information 31.
func (d *Decoder) indefinite() error {
	switch d.major {
	case MajorTypeBytes, MajorTypeString, MajorTypeArray, MajorTypeMap:
		if err := d.checkStringChunk(); err != nil {
			return err
		}
		if top := d.depth.top(); top != nil && top.indefinite && isString(top.major) {
			return newStructuralError(d.headOffset, "nested indefinite-length %s", d.major)
		}
		d.tagPending = false
		d.depth.pushIndefinite(d.major)
		d.emit(Event{Kind: EventStart, Major: d.major, Indefinite: true, Offset: d.headOffset})
		return nil
	case MajorTypeOther:
		return d.breakItem()
	default:
		return newStructuralError(d.headOffset, "indefinite length for %s", d.major)
	}
}

// breakItem closes the innermost indefinite-length item.
func (d *Decoder) breakItem() error {
	top := d.depth.top()
	if top == nil || !top.indefinite {
		return newStructuralError(d.headOffset, "unexpected break")
	}
	if d.tagPending {
		return newStructuralError(d.headOffset, "break as tag content")
	}
	if top.major == MajorTypeMap && top.items%2 != 0 {
		return &MapParityError{Offset: d.headOffset}
	}
	l := d.depth.pop()
	d.emit(Event{Kind: EventEnd, Major: l.major, Offset: d.headOffset})
	d.complete()
	return nil
}
