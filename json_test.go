package cbor

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestExpectedBase(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{
			"base64url byte string",
			ExpectedBase64URL{Content: []byte{0xf0, 0x9f, 0x8d, 0xa3, 0xf0, 0x9f, 0x8d, 0xba}},
			`"8J-No_Cfjbo"`,
		},
		{
			"base64 byte string",
			ExpectedBase64{Content: []byte{0xf0, 0x9f, 0x8d, 0xa3, 0xf0, 0x9f, 0x8d, 0xba}},
			`"8J+No/Cfjbo="`,
		},
		{
			"base16 byte string",
			ExpectedBase16{Content: []byte{0xf0, 0x9f, 0x8d, 0xa3, 0xf0, 0x9f, 0x8d, 0xba}},
			`"f09f8da3f09f8dba"`,
		},
		{
			"text string",
			ExpectedBase16{
				Content: map[string]any{
					"x": "🍣🍺",
				},
			},
			`{"x":"🍣🍺"}`,
		},
		{
			"map",
			ExpectedBase16{
				Content: map[string]any{
					"x": []byte{0x01, 0x02, 0x03, 0x04},
				},
			},
			`{"x":"01020304"}`,
		},
		{
			"nested",
			ExpectedBase16{
				Content: []any{
					[]byte{0x01},
					ExpectedBase64{Content: []byte{0xff}},
				},
			},
			`["01","/w=="]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.input)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, string(got)); diff != "" {
				t.Errorf("json.Marshal() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJSONValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{
			"byte string defaults to base64url",
			[]byte{0xfb, 0xff},
			`"-_8"`,
		},
		{
			"integers",
			[]any{int64(-1), uint64(math.MaxUint64), Integer{Sign: true, Value: math.MaxUint64}, newBigInt("18446744073709551616")},
			`[-1,18446744073709551615,-18446744073709551616,18446744073709551616]`,
		},
		{
			"floats",
			[]any{1.5, math.NaN(), math.Inf(1)},
			`[1.5,null,null]`,
		},
		{
			"simple values",
			[]any{true, nil, Undefined, SimpleValue(16)},
			`[true,null,null,null]`,
		},
		{
			"map with non-text keys",
			Map{{Key: int64(1), Value: "a"}, {Key: []byte{0x01}, Value: "b"}},
			`{"1":"a","h'01'":"b"}`,
		},
		{
			"map with keys that cannot be encoded",
			Map{{Key: complex(1, 2), Value: "a"}, {Key: complex(3, 4), Value: "b"}},
			`{"(1+2i)":"a","(3+4i)":"b"}`,
		},
		{
			"base64 strings and encoded data",
			[]any{Base64URLString("AQ"), Base64String("AQ=="), EncodedData{0x01}},
			`["AQ","AQ==","AQ"]`,
		},
		{
			"tag",
			Tag{Number: 100, Content: []byte{0x01}},
			`"AQ"`,
		},
		{
			"time",
			time.Date(2013, 3, 21, 20, 4, 0, 0, time.UTC),
			`"2013-03-21T20:04:00Z"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(JSONValue(tt.in))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, string(got)); diff != "" {
				t.Errorf("JSONValue() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJSONValue_ExpectedConversion(t *testing.T) {
	// 22(h'ff')
	v, err := Unmarshal([]byte{0xd6, 0x41, 0xff}, WithDecodeHandlers(ExtendedDecodeHandlers()...))
	if err != nil {
		t.Fatal(err)
	}
	got, err := json.Marshal(JSONValue(v))
	if err != nil {
		t.Fatal(err)
	}
	if want := `"/w=="`; string(got) != want {
		t.Errorf("JSONValue() = %s, want %s", got, want)
	}
}
