package cbor

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/netip"
	"net/url"
	"strconv"
	"time"
)

const (
	tagNumberExpectedBase64URL TagNumber = 21
	tagNumberExpectedBase64    TagNumber = 22
	tagNumberExpectedBase16    TagNumber = 23
)

var b64 = base64.StdEncoding.Strict()
var b64url = base64.RawURLEncoding.Strict()

type encMode int

const (
	encModeBase64URL encMode = iota
	encModeBase64
	encModeBase16
)

func (enc encMode) Encode(data []byte) string {
	switch enc {
	case encModeBase64:
		return b64.EncodeToString(data)
	case encModeBase16:
		return hex.EncodeToString(data)
	}
	return b64url.EncodeToString(data)
}

// Base64URLString is a base64url with no padding encoded string (tag 33).
type Base64URLString string

// Base64String is a base64 with padding encoded string (tag 34).
type Base64String string

// Base64StringDecoder yields tag 33 and 34 text as Base64URLString and
// Base64String after checking that it is strictly encoded.
type Base64StringDecoder struct{}

func (Base64StringDecoder) Match(ev Event) bool {
	return matchTag(ev, tagNumberBase64URL, tagNumberBase64)
}

func (Base64StringDecoder) Handle(b *Builder, ev Event) error {
	if ev.Tag == tagNumberBase64 {
		b.Push(&contentFrame{convert: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, newSemanticError("cbor: invalid base64")
			}
			if _, err := b64.DecodeString(s); err != nil {
				return nil, wrapSemanticError("cbor: invalid base64", err)
			}
			return Base64String(s), nil
		}})
		return nil
	}
	b.Push(&contentFrame{convert: func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, newSemanticError("cbor: invalid base64url")
		}
		if _, err := b64url.DecodeString(s); err != nil {
			return nil, wrapSemanticError("cbor: invalid base64url", err)
		}
		return Base64URLString(s), nil
	}})
	return nil
}

// Base64StringEncoder writes Base64URLString (tag 33) and Base64String (tag 34).
type Base64StringEncoder struct{}

func (Base64StringEncoder) Match(v any) bool {
	switch v.(type) {
	case Base64URLString, Base64String:
		return true
	}
	return false
}

func (Base64StringEncoder) Encode(e *Encoder, v any) error {
	switch v := v.(type) {
	case Base64URLString:
		if _, err := b64url.DecodeString(string(v)); err != nil {
			return wrapSemanticError("cbor: invalid base64url", err)
		}
		e.WriteTag(tagNumberBase64URL)
		e.writeString(string(v))
	case Base64String:
		if _, err := b64.DecodeString(string(v)); err != nil {
			return wrapSemanticError("cbor: invalid base64", err)
		}
		e.WriteTag(tagNumberBase64)
		e.writeString(string(v))
	}
	return nil
}

// ExpectedBase64URL is data expected to be encoded as base64url with no padding (tag 21).
type ExpectedBase64URL struct {
	Content any
}

func (e ExpectedBase64URL) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonctx{mode: encModeBase64URL}.convert(e.Content))
}

// ExpectedBase64 is data expected to be encoded as base64 with padding (tag 22).
type ExpectedBase64 struct {
	Content any
}

func (e ExpectedBase64) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonctx{mode: encModeBase64}.convert(e.Content))
}

// ExpectedBase16 is data expected to be encoded as base16 (tag 23).
type ExpectedBase16 struct {
	Content any
}

func (e ExpectedBase16) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonctx{mode: encModeBase16}.convert(e.Content))
}

var _ json.Marshaler = ExpectedBase64URL{}
var _ json.Marshaler = ExpectedBase64{}
var _ json.Marshaler = ExpectedBase16{}

// ExpectedConversionDecoder yields the content of tags 21, 22 and 23 as
// ExpectedBase64URL, ExpectedBase64 and ExpectedBase16.
type ExpectedConversionDecoder struct{}

func (ExpectedConversionDecoder) Match(ev Event) bool {
	return matchTag(ev, tagNumberExpectedBase64URL, tagNumberExpectedBase64, tagNumberExpectedBase16)
}

func (ExpectedConversionDecoder) Handle(b *Builder, ev Event) error {
	number := ev.Tag
	b.Push(&contentFrame{convert: func(v any) (any, error) {
		switch number {
		case tagNumberExpectedBase64:
			return ExpectedBase64{Content: v}, nil
		case tagNumberExpectedBase16:
			return ExpectedBase16{Content: v}, nil
		}
		return ExpectedBase64URL{Content: v}, nil
	}})
	return nil
}

// JSONValue converts a decoded value into a value that encoding/json
// marshals as described in RFC 8949 Section 6.1.
//
// Byte strings become base64url strings unless an expected conversion tag
// says otherwise. Integers become json.Number. NaN, infinities, undefined and
// other simple values become null. Map keys that are not text strings are
// written in diagnostic notation. Other tags are replaced by their content.
func JSONValue(v any) any {
	return jsonctx{mode: encModeBase64URL}.convert(v)
}

type jsonctx struct {
	mode encMode
}

func (ctx jsonctx) convert(data any) any {
	switch data := data.(type) {
	case []byte:
		return ctx.mode.Encode(data)
	case EncodedData:
		return ctx.mode.Encode(data)
	case Base64URLString:
		return string(data)
	case Base64String:
		return string(data)

	case int64:
		return json.Number(strconv.FormatInt(data, 10))
	case uint64:
		return json.Number(strconv.FormatUint(data, 10))
	case Integer:
		return json.Number(data.String())
	case *big.Int:
		return json.Number(data.String())

	case float64:
		if math.IsNaN(data) || math.IsInf(data, 0) {
			return nil
		}
		return data

	case undefined, SimpleValue:
		return nil

	case map[string]any:
		ret := make(map[string]any, len(data))
		for k, v := range data {
			ret[k] = ctx.convert(v)
		}
		return ret

	case Map:
		ret := make(map[string]any, len(data))
		for _, p := range data {
			ret[ctx.key(p.Key)] = ctx.convert(p.Value)
		}
		return ret

	case []any:
		ret := make([]any, len(data))
		for i, v := range data {
			ret[i] = ctx.convert(v)
		}
		return ret

	case Tag:
		return ctx.convert(data.Content)

	case ExpectedBase64URL:
		return jsonctx{mode: encModeBase64URL}.convert(data.Content)
	case ExpectedBase64:
		return jsonctx{mode: encModeBase64}.convert(data.Content)
	case ExpectedBase16:
		return jsonctx{mode: encModeBase16}.convert(data.Content)

	case time.Time:
		return data.Format(time.RFC3339Nano)
	case *url.URL:
		return data.String()
	case netip.Addr:
		return data.String()
	case netip.Prefix:
		return data.String()
	}
	return data
}

func (ctx jsonctx) key(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	data, err := Marshal(k, WithEncodeHandlers(ExtendedEncodeHandlers()...))
	if err != nil {
		return fmt.Sprint(k)
	}
	diag, err := DiagnoseBytes(data)
	if err != nil {
		return fmt.Sprint(k)
	}
	return diag
}
