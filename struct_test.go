package cbor

import (
	"bytes"
	"errors"
	"testing"
)

type point struct {
	X int `cbor:"x"`
	Y int `cbor:"y,omitempty"`
	Z int `cbor:"-"`

	label string
}

type compact struct {
	_    struct{} `cbor:",toarray"`
	Name string
	Age  int
}

type keyed struct {
	Name string `cbor:"1,keyasint"`
	Tags []string `cbor:"2,keyasint,omitempty"`
}

type badKey struct {
	Name string `cbor:"name,keyasint"`
}

type node struct {
	Value int
	Next  *node
}

type celsius float64

func TestReflectEncoder(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want []byte
	}{
		{
			"struct",
			point{X: 1, Y: 2, Z: 3, label: "p"},
			[]byte{0xa2, 0x61, 0x78, 0x01, 0x61, 0x79, 0x02},
		},
		{
			"omitempty",
			point{X: 1},
			[]byte{0xa1, 0x61, 0x78, 0x01},
		},
		{
			"toarray",
			compact{Name: "a", Age: 3},
			[]byte{0x82, 0x61, 0x61, 0x03},
		},
		{
			"keyasint",
			keyed{Name: "a"},
			[]byte{0xa1, 0x01, 0x61, 0x61},
		},
		{
			"recursive type",
			&node{Value: 1, Next: &node{Value: 2}},
			[]byte{
				0xa2, 0x65, 0x56, 0x61, 0x6c, 0x75, 0x65, 0x01, 0x64, 0x4e, 0x65, 0x78, 0x74,
				0xa2, 0x65, 0x56, 0x61, 0x6c, 0x75, 0x65, 0x02, 0x64, 0x4e, 0x65, 0x78, 0x74, 0xf6,
			},
		},
		{
			"named float",
			celsius(1.5),
			[]byte{0xfb, 0x3f, 0xf8, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
		},
		{
			"array of bytes",
			[2]byte{1, 2},
			[]byte{0x82, 0x01, 0x02},
		},
		{
			"named byte slice",
			rawBytes{1, 2},
			[]byte{0x42, 0x01, 0x02},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.v)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Marshal() got = %x, want %x", got, tt.want)
			}
		})
	}
}

type rawBytes []byte

func TestReflectEncoder_InvalidTag(t *testing.T) {
	_, err := Marshal(badKey{Name: "a"})
	if err == nil {
		t.Fatal("Marshal() error = nil")
	}
	var e *UnsupportedValueError
	if errors.As(err, &e) {
		t.Errorf("Marshal() error = %v, want an invalid tag error", err)
	}
}
