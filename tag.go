package cbor

import (
	"math"
	"math/big"
	"net/netip"
	"net/url"
	"time"
)

// TagNumber is a CBOR tag number type.
type TagNumber uint64

const (
	tagNumberDatetimeString TagNumber = 0
	tagNumberEpochDatetime  TagNumber = 1
	tagNumberPositiveBignum TagNumber = 2
	tagNumberNegativeBignum TagNumber = 3

	tagNumberEncodedData  TagNumber = 24
	tagNumberURI          TagNumber = 32
	tagNumberBase64URL    TagNumber = 33
	tagNumberBase64       TagNumber = 34
	tagNumberSelfDescribe TagNumber = 55799

	// RFC 9164
	tagNumberIPv4Address TagNumber = 52
	tagNumberIPv6Address TagNumber = 54
)

// Tag is a CBOR tag that is not decoded into a more specific type.
type Tag struct {
	Number  TagNumber
	Content any
}

// EncodedData is an embedded CBOR data item (tag 24).
type EncodedData []byte

// ExtendedDecodeHandlers returns the default decode handler chain extended
// with handlers for date/time (tags 0 and 1), expected conversions
// (tags 21 to 23), encoded CBOR data (tag 24), URI (tag 32),
// base64url and base64 text (tags 33 and 34), IP address (tags 52 and 54)
// and self-described CBOR (tag 55799).
func ExtendedDecodeHandlers() []DecodeHandler {
	handlers := DefaultDecodeHandlers()
	last := handlers[len(handlers)-1]
	handlers = append(handlers[:len(handlers)-1],
		TimeDecoder{},
		ExpectedConversionDecoder{},
		EncodedDataDecoder{},
		URIDecoder{},
		Base64StringDecoder{},
		IPAddrDecoder{},
		SelfDescribeDecoder{},
	)
	return append(handlers, last)
}

// contentFrame waits for the content of a tag and converts it.
type contentFrame struct {
	convert func(v any) (any, error)
}

func (f *contentFrame) OnEvent(b *Builder, ev Event) (bool, error) {
	return false, nil
}

func (f *contentFrame) OnYield(b *Builder, v any) error {
	b.Pop()
	converted, err := f.convert(v)
	if err != nil {
		return err
	}
	return b.Yield(converted)
}

func matchTag(ev Event, numbers ...TagNumber) bool {
	if ev.Kind != EventTag {
		return false
	}
	for _, n := range numbers {
		if ev.Tag == n {
			return true
		}
	}
	return false
}

// TagDecoder yields any tag as Tag, transformed by the mapper
// set with WithTagMapper.
type TagDecoder struct{}

func (TagDecoder) Match(ev Event) bool {
	return ev.Kind == EventTag
}

func (TagDecoder) Handle(b *Builder, ev Event) error {
	number := ev.Tag
	mapper := b.mapper
	b.Push(&contentFrame{convert: func(v any) (any, error) {
		t := Tag{Number: number, Content: v}
		if mapper == nil {
			return t, nil
		}
		return mapper(t)
	}})
	return nil
}

// BignumDecoder yields positive (tag 2) and negative (tag 3) bignums as *big.Int.
type BignumDecoder struct{}

func (BignumDecoder) Match(ev Event) bool {
	return matchTag(ev, tagNumberPositiveBignum, tagNumberNegativeBignum)
}

func (BignumDecoder) Handle(b *Builder, ev Event) error {
	negative := ev.Tag == tagNumberNegativeBignum
	b.Push(&contentFrame{convert: func(v any) (any, error) {
		data, ok := v.([]byte)
		if !ok {
			return nil, newSemanticError("cbor: invalid bignum")
		}
		i := new(big.Int).SetBytes(data)
		if negative {
			i.Sub(minusOne, i)
		}
		return i, nil
	}})
	return nil
}

// the range of epoch-based date/time supported by time.Time
const (
	minEpoch = -62135596800 // 0001-01-01T00:00:00Z
	maxEpoch = 253402300799 // 9999-12-31T23:59:59Z
)

// TimeDecoder yields date/time strings (tag 0) and epoch-based
// date/time (tag 1) as time.Time.
type TimeDecoder struct{}

func (TimeDecoder) Match(ev Event) bool {
	return matchTag(ev, tagNumberDatetimeString, tagNumberEpochDatetime)
}

func (TimeDecoder) Handle(b *Builder, ev Event) error {
	if ev.Tag == tagNumberDatetimeString {
		b.Push(&contentFrame{convert: decodeDatetimeString})
	} else {
		b.Push(&contentFrame{convert: decodeEpochDatetime})
	}
	return nil
}

func decodeDatetimeString(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, newSemanticError("cbor: invalid datetime string")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, wrapSemanticError("cbor: invalid datetime string", err)
	}
	return t, nil
}

func decodeEpochDatetime(v any) (any, error) {
	switch epoch := v.(type) {
	case int64:
		if epoch <= minEpoch || epoch >= maxEpoch {
			return nil, newSemanticError("cbor: invalid range of datetime")
		}
		return time.Unix(epoch, 0).UTC(), nil
	case float64:
		if math.IsNaN(epoch) || epoch <= minEpoch || epoch >= maxEpoch {
			return nil, newSemanticError("cbor: invalid range of datetime")
		}
		i, f := math.Modf(epoch)
		return time.Unix(int64(i), int64(math.RoundToEven(f*1e9))).UTC(), nil
	}
	return nil, newSemanticError("cbor: invalid epoch-based datetime")
}

// URIDecoder yields URIs (tag 32) as *url.URL.
type URIDecoder struct{}

func (URIDecoder) Match(ev Event) bool {
	return matchTag(ev, tagNumberURI)
}

func (URIDecoder) Handle(b *Builder, ev Event) error {
	b.Push(&contentFrame{convert: func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, newSemanticError("cbor: invalid URI")
		}
		u, err := url.Parse(s)
		if err != nil {
			return nil, wrapSemanticError("cbor: invalid URI", err)
		}
		return u, nil
	}})
	return nil
}

// EncodedDataDecoder yields encoded CBOR data items (tag 24) as EncodedData.
// The embedded item must be well-formed.
type EncodedDataDecoder struct{}

func (EncodedDataDecoder) Match(ev Event) bool {
	return matchTag(ev, tagNumberEncodedData)
}

func (EncodedDataDecoder) Handle(b *Builder, ev Event) error {
	b.Push(&contentFrame{convert: func(v any) (any, error) {
		data, ok := v.([]byte)
		if !ok || !Valid(data) {
			return nil, newSemanticError("cbor: invalid encoded data")
		}
		return EncodedData(data), nil
	}})
	return nil
}

// IPAddrDecoder yields IPv4 (tag 52) and IPv6 (tag 54) addresses as netip.Addr,
// and prefixes as netip.Prefix (RFC 9164).
type IPAddrDecoder struct{}

func (IPAddrDecoder) Match(ev Event) bool {
	return matchTag(ev, tagNumberIPv4Address, tagNumberIPv6Address)
}

func (IPAddrDecoder) Handle(b *Builder, ev Event) error {
	size := 4
	if ev.Tag == tagNumberIPv6Address {
		size = 16
	}
	b.Push(&contentFrame{convert: func(v any) (any, error) {
		return decodeIPAddr(v, size)
	}})
	return nil
}

func decodeIPAddr(v any, size int) (any, error) {
	switch v := v.(type) {
	case []byte:
		if len(v) != size {
			return nil, newSemanticError("cbor: invalid IP address")
		}
		addr, _ := netip.AddrFromSlice(v)
		return addr, nil

	case []any:
		// prefix: [length, trimmed address bytes]
		if len(v) != 2 {
			return nil, newSemanticError("cbor: invalid IP prefix")
		}
		bits, ok := v[0].(int64)
		if !ok || bits < 0 || bits > int64(size*8) {
			return nil, newSemanticError("cbor: invalid IP prefix")
		}
		data, ok := v[1].([]byte)
		if !ok || len(data) > size || (len(data) > 0 && data[len(data)-1] == 0x00) {
			return nil, newSemanticError("cbor: invalid IP prefix")
		}
		buf := make([]byte, size)
		copy(buf, data)
		addr, _ := netip.AddrFromSlice(buf)
		prefix := netip.PrefixFrom(addr, int(bits))
		if prefix.Masked() != prefix {
			return nil, newSemanticError("cbor: invalid IP prefix")
		}
		return prefix, nil
	}
	return nil, newSemanticError("cbor: invalid IP address")
}

// SelfDescribeDecoder drops the self-described CBOR tag (55799).
type SelfDescribeDecoder struct{}

func (SelfDescribeDecoder) Match(ev Event) bool {
	return matchTag(ev, tagNumberSelfDescribe)
}

func (SelfDescribeDecoder) Handle(b *Builder, ev Event) error {
	b.Push(&contentFrame{convert: func(v any) (any, error) {
		return v, nil
	}})
	return nil
}

// TagEncoder writes Tag values.
type TagEncoder struct{}

func (TagEncoder) Match(v any) bool {
	switch v.(type) {
	case Tag, *Tag:
		return true
	}
	return false
}

func (TagEncoder) Encode(e *Encoder, v any) error {
	var t Tag
	switch v := v.(type) {
	case Tag:
		t = v
	case *Tag:
		if v == nil {
			e.writeByte(sigilNull)
			return nil
		}
		t = *v
	}
	e.WriteTag(t.Number)
	return e.WriteValue(t.Content)
}

// ExtendedEncodeHandlers returns the default encode handler chain extended
// with handlers for time.Time (tag 1), EncodedData (tag 24), *url.URL (tag 32),
// Base64URLString and Base64String (tags 33 and 34) and
// netip.Addr and netip.Prefix (tags 52 and 54).
func ExtendedEncodeHandlers() []EncodeHandler {
	return append([]EncodeHandler{
		TimeEncoder{},
		EncodedDataEncoder{},
		URIEncoder{},
		Base64StringEncoder{},
		IPAddrEncoder{},
	}, DefaultEncodeHandlers()...)
}

// TimeEncoder writes time.Time as epoch-based date/time (tag 1).
// Times with a fractional second are written as float.
type TimeEncoder struct{}

func (TimeEncoder) Match(v any) bool {
	_, ok := v.(time.Time)
	return ok
}

func (TimeEncoder) Encode(e *Encoder, v any) error {
	t := v.(time.Time)
	e.WriteTag(tagNumberEpochDatetime)
	if t.Nanosecond() == 0 {
		e.writeInt(t.Unix())
		return nil
	}
	e.WriteFloat64(float64(t.Unix()) + float64(t.Nanosecond())/1e9)
	return nil
}

// EncodedDataEncoder writes EncodedData as encoded CBOR data (tag 24).
type EncodedDataEncoder struct{}

func (EncodedDataEncoder) Match(v any) bool {
	_, ok := v.(EncodedData)
	return ok
}

func (EncodedDataEncoder) Encode(e *Encoder, v any) error {
	data := v.(EncodedData)
	if !Valid(data) {
		return newSemanticError("cbor: invalid encoded data")
	}
	e.WriteTag(tagNumberEncodedData)
	e.writeBytes(data)
	return nil
}

// URIEncoder writes *url.URL as URI (tag 32).
type URIEncoder struct{}

func (URIEncoder) Match(v any) bool {
	_, ok := v.(*url.URL)
	return ok
}

func (URIEncoder) Encode(e *Encoder, v any) error {
	u := v.(*url.URL)
	if u == nil {
		e.writeByte(sigilNull)
		return nil
	}
	e.WriteTag(tagNumberURI)
	e.writeString(u.String())
	return nil
}

// IPAddrEncoder writes netip.Addr and netip.Prefix (RFC 9164).
type IPAddrEncoder struct{}

func (IPAddrEncoder) Match(v any) bool {
	switch v.(type) {
	case netip.Addr, netip.Prefix:
		return true
	}
	return false
}

func (IPAddrEncoder) Encode(e *Encoder, v any) error {
	switch v := v.(type) {
	case netip.Addr:
		if !v.IsValid() {
			return newSemanticError("cbor: invalid IP address")
		}
		e.writeIPTag(v)
		e.writeBytes(v.AsSlice())
	case netip.Prefix:
		if !v.IsValid() {
			return newSemanticError("cbor: invalid IP prefix")
		}
		v = v.Masked()
		e.writeIPTag(v.Addr())
		data := v.Addr().AsSlice()
		for len(data) > 0 && data[len(data)-1] == 0 {
			data = data[:len(data)-1]
		}
		e.WriteArgument(MajorTypeArray, 2)
		e.writeInt(int64(v.Bits()))
		e.writeBytes(data)
	}
	return nil
}

func (e *Encoder) writeIPTag(addr netip.Addr) {
	if addr.Is4() {
		e.WriteTag(tagNumberIPv4Address)
	} else {
		e.WriteTag(tagNumberIPv6Address)
	}
}
