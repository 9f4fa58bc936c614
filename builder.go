package cbor

import (
	"slices"
)

// A DecodeHandler reconstructs values from decode events.
//
// Handle is called for the first handler of the chain whose Match accepts
// an event. It either yields a value with Builder.Yield, or pushes a Frame
// that collects the events and values that follow.
type DecodeHandler interface {
	Match(ev Event) bool
	Handle(b *Builder, ev Event) error
}

// A Frame is an in-progress composite value on the Builder stack.
//
// OnEvent sees every event while the frame is on top of the stack, before the
// handler chain does. If it reports true, the event is consumed.
// OnYield receives each complete child value.
type Frame interface {
	OnEvent(b *Builder, ev Event) (bool, error)
	OnYield(b *Builder, v any) error
}

// DefaultDecodeHandlers returns the default decode handler chain.
func DefaultDecodeHandlers() []DecodeHandler {
	return []DecodeHandler{
		IntegerDecoder{},
		FloatDecoder{},
		SimpleDecoder{},
		ArrayDecoder{},
		MapDecoder{},
		StringDecoder{},
		BignumDecoder{},
		TagDecoder{},
	}
}

// A Builder reconstructs one value from a sequence of decode events.
type Builder struct {
	handlers []DecodeHandler
	mapper   func(Tag) (any, error)
	frames   []Frame
	offset   int64

	result any
	done   bool
}

// NewBuilder returns a Builder that uses handlers,
// or DefaultDecodeHandlers if none are given.
func NewBuilder(handlers ...DecodeHandler) *Builder {
	if len(handlers) == 0 {
		handlers = DefaultDecodeHandlers()
	}
	return &Builder{handlers: handlers}
}

// Feed processes the next event.
func (b *Builder) Feed(ev Event) error {
	if b.done {
		return ErrTrailingData
	}
	b.offset = ev.Offset
	if n := len(b.frames); n > 0 {
		consumed, err := b.frames[n-1].OnEvent(b, ev)
		if err != nil || consumed {
			return err
		}
	}
	for _, h := range b.handlers {
		if h.Match(ev) {
			return h.Handle(b, ev)
		}
	}
	return newStructuralError(ev.Offset, "unexpected %s", ev)
}

// Push makes f the top frame.
func (b *Builder) Push(f Frame) {
	b.frames = append(b.frames, f)
}

// Pop removes the top frame.
func (b *Builder) Pop() {
	b.frames[len(b.frames)-1] = nil
	b.frames = b.frames[:len(b.frames)-1]
}

// Depth returns the number of frames on the stack.
func (b *Builder) Depth() int {
	return len(b.frames)
}

// Offset returns the stream offset of the event being processed.
func (b *Builder) Offset() int64 {
	return b.offset
}

// Yield delivers a complete value to the top frame,
// or sets the result if the stack is empty.
func (b *Builder) Yield(v any) error {
	if n := len(b.frames); n > 0 {
		return b.frames[n-1].OnYield(b, v)
	}
	if b.done {
		return ErrTrailingData
	}
	b.result, b.done = v, true
	return nil
}

// Result returns the top-level value once it is complete.
func (b *Builder) Result() (any, bool) {
	return b.result, b.done
}

// capacity limits preallocation for declared lengths, which are untrusted.
func capacity(ev Event, max int) int {
	if ev.Indefinite || ev.Length > uint64(max) {
		return 0
	}
	return int(ev.Length)
}

// IntegerDecoder yields integers as int64 when they fit, uint64 for larger
// unsigned integers and Integer for smaller negative integers.
type IntegerDecoder struct{}

func (IntegerDecoder) Match(ev Event) bool {
	if ev.Kind != EventLiteral {
		return false
	}
	_, ok := ev.Value.(Integer)
	return ok
}

func (IntegerDecoder) Handle(b *Builder, ev Event) error {
	i := ev.Value.(Integer)
	if v, err := i.Int64(); err == nil {
		return b.Yield(v)
	}
	if i.Sign {
		return b.Yield(i)
	}
	return b.Yield(i.Value)
}

// FloatDecoder yields half, single and double precision floats as float64.
type FloatDecoder struct{}

func (FloatDecoder) Match(ev Event) bool {
	if ev.Kind != EventLiteral {
		return false
	}
	_, ok := ev.Value.(float64)
	return ok
}

func (FloatDecoder) Handle(b *Builder, ev Event) error {
	return b.Yield(ev.Value)
}

// SimpleDecoder yields false, true, null, undefined and other simple values.
type SimpleDecoder struct{}

func (SimpleDecoder) Match(ev Event) bool {
	if ev.Kind != EventLiteral || ev.Major != MajorTypeOther {
		return false
	}
	switch ev.Value.(type) {
	case nil, bool, undefined, SimpleValue:
		return true
	}
	return false
}

func (SimpleDecoder) Handle(b *Builder, ev Event) error {
	return b.Yield(ev.Value)
}

// ArrayDecoder yields arrays as []any.
type ArrayDecoder struct{}

func (ArrayDecoder) Match(ev Event) bool {
	return ev.Kind == EventStart && ev.Major == MajorTypeArray
}

func (ArrayDecoder) Handle(b *Builder, ev Event) error {
	b.Push(&arrayFrame{items: make([]any, 0, capacity(ev, 1024))})
	return nil
}

type arrayFrame struct {
	items []any
}

func (f *arrayFrame) OnEvent(b *Builder, ev Event) (bool, error) {
	if ev.Kind != EventEnd {
		return false, nil
	}
	b.Pop()
	return true, b.Yield(f.items)
}

func (f *arrayFrame) OnYield(b *Builder, v any) error {
	f.items = append(f.items, v)
	return nil
}

// MapDecoder yields maps whose keys are all text strings as map[string]any,
// and other maps, including the empty map, as Map.
// Of duplicate keys in a map[string]any, the last one wins.
type MapDecoder struct{}

func (MapDecoder) Match(ev Event) bool {
	return ev.Kind == EventStart && ev.Major == MajorTypeMap
}

func (MapDecoder) Handle(b *Builder, ev Event) error {
	b.Push(&mapFrame{pairs: make(Map, 0, capacity(ev, 512))})
	return nil
}

type mapFrame struct {
	pairs  Map
	key    any
	hasKey bool
}

func (f *mapFrame) OnEvent(b *Builder, ev Event) (bool, error) {
	if ev.Kind != EventEnd {
		return false, nil
	}
	if f.hasKey {
		return true, &MapParityError{Offset: ev.Offset}
	}
	b.Pop()
	return true, b.Yield(f.value())
}

func (f *mapFrame) OnYield(b *Builder, v any) error {
	if !f.hasKey {
		f.key, f.hasKey = v, true
		return nil
	}
	f.pairs = append(f.pairs, Pair{Key: f.key, Value: v})
	f.key, f.hasKey = nil, false
	return nil
}

func (f *mapFrame) value() any {
	if len(f.pairs) == 0 {
		return f.pairs
	}
	for _, p := range f.pairs {
		if _, ok := p.Key.(string); !ok {
			return f.pairs
		}
	}
	record := make(map[string]any, len(f.pairs))
	for _, p := range f.pairs {
		record[p.Key.(string)] = p.Value
	}
	return record
}

// StringDecoder yields byte strings as []byte and text strings as string,
// concatenating the chunks of indefinite-length strings.
type StringDecoder struct{}

func (StringDecoder) Match(ev Event) bool {
	return ev.Kind == EventStart && isString(ev.Major)
}

func (StringDecoder) Handle(b *Builder, ev Event) error {
	b.Push(&stringFrame{
		major: ev.Major,
		depth: 1,
		buf:   make([]byte, 0, capacity(ev, 1<<16)),
	})
	return nil
}

type stringFrame struct {
	major MajorType
	depth int // open Start events, including the frame's own
	buf   []byte
}

func (f *stringFrame) OnEvent(b *Builder, ev Event) (bool, error) {
	switch ev.Kind {
	case EventStart:
		f.depth++
	case EventData:
		f.buf = append(f.buf, ev.Data...)
	case EventEnd:
		f.depth--
		if f.depth > 0 {
			return true, nil
		}
		b.Pop()
		if f.major == MajorTypeString {
			return true, b.Yield(string(f.buf))
		}
		return true, b.Yield(slices.Clip(f.buf))
	default:
		return true, newStructuralError(ev.Offset, "unexpected %s in %s", ev, f.major)
	}
	return true, nil
}

func (f *stringFrame) OnYield(b *Builder, v any) error {
	return newStructuralError(b.Offset(), "unexpected value in %s", f.major)
}
