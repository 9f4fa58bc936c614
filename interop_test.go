package cbor

import (
	"bytes"
	"testing"

	fxcbor "github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"
)

// The encodings of this package must be understood by other implementations,
// and the other way around.

func TestInterop_Marshal(t *testing.T) {
	type record struct {
		Name string `cbor:"name"`
		Tags []string `cbor:"tags"`
		Age  int64 `cbor:"age"`
	}
	in := map[string]any{
		"name": "cbor",
		"tags": []any{"a", "b"},
		"age":  int64(-12),
	}
	data, err := Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var got record
	if err := fxcbor.Unmarshal(data, &got); err != nil {
		t.Fatalf("fxamacker Unmarshal() error = %v", err)
	}
	want := record{Name: "cbor", Tags: []string{"a", "b"}, Age: -12}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fxamacker Unmarshal() mismatch (-want +got):\n%s", diff)
	}
}

func TestInterop_Unmarshal(t *testing.T) {
	in := map[string]any{
		"int":   1,
		"neg":   -1000,
		"bytes": []byte{0x01, 0x02},
		"text":  "水",
		"array": []any{true, nil, "x"},
		"float": 1.5,
	}
	data, err := fxcbor.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	want := map[string]any{
		"int":   int64(1),
		"neg":   int64(-1000),
		"bytes": []byte{0x01, 0x02},
		"text":  "水",
		"array": []any{true, nil, "x"},
		"float": 1.5,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unmarshal() mismatch (-want +got):\n%s", diff)
	}
}

func TestInterop_Stream(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	err := e.Encode([]any{
		ByteStream{Source: SplitSource([]byte{0x01}, []byte{0x02})},
		TextStream{Source: SplitSource([]byte("ab"), []byte("c"))},
	})
	if err != nil {
		t.Fatal(err)
	}

	var got []any
	if err := fxcbor.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("fxamacker Unmarshal() error = %v", err)
	}
	want := []any{[]byte{0x01, 0x02}, "abc"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fxamacker Unmarshal() mismatch (-want +got):\n%s", diff)
	}
}

func TestInterop_Diagnose(t *testing.T) {
	inputs := [][]byte{
		{0x83, 0x01, 0x61, 0x61, 0x41, 0x01},
		{0xa2, 0x61, 0x61, 0x01, 0x61, 0x62, 0x82, 0x02, 0x03},
		{0xc1, 0x1a, 0x51, 0x4b, 0x67, 0xb0},
		{0x3b, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff},
		{0x9f, 0x01, 0x82, 0x02, 0x03, 0xff},
	}
	for _, in := range inputs {
		want, err := fxcbor.Diagnose(in)
		if err != nil {
			t.Fatalf("fxamacker Diagnose(%x) error = %v", in, err)
		}
		got, err := DiagnoseBytes(in)
		if err != nil {
			t.Fatalf("DiagnoseBytes(%x) error = %v", in, err)
		}
		if got != want {
			t.Errorf("DiagnoseBytes(%x) = %s, want %s", in, got, want)
		}
	}
}
