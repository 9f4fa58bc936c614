package cbor

import (
	"bytes"
	"math"
	"testing"

	"github.com/shogo82148/float16"
)

func TestWriteShortestFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want []byte
	}{
		// RFC 8949  Appendix A. Examples of Encoded CBOR Data Items
		{0.0, []byte{0xf9, 0x00, 0x00}},
		{math.Copysign(0, -1), []byte{0xf9, 0x80, 0x00}},
		{1.0, []byte{0xf9, 0x3c, 0x00}},
		{1.1, []byte{0xfb, 0x3f, 0xf1, 0x99, 0x99, 0x99, 0x99, 0x99, 0x9a}},
		{1.5, []byte{0xf9, 0x3e, 0x00}},
		{65504.0, []byte{0xf9, 0x7b, 0xff}},
		{100000.0, []byte{0xfa, 0x47, 0xc3, 0x50, 0x00}},
		{3.4028234663852886e+38, []byte{0xfa, 0x7f, 0x7f, 0xff, 0xff}},
		{1.0e+300, []byte{0xfb, 0x7e, 0x37, 0xe4, 0x3c, 0x88, 0x00, 0x75, 0x9c}},
		{5.960464477539063e-8, []byte{0xf9, 0x00, 0x01}},
		{0.00006103515625, []byte{0xf9, 0x04, 0x00}},
		{-4.0, []byte{0xf9, 0xc4, 0x00}},
		{-4.1, []byte{0xfb, 0xc0, 0x10, 0x66, 0x66, 0x66, 0x66, 0x66, 0x66}},
		{math.Inf(1), []byte{0xf9, 0x7c, 0x00}},
		{math.NaN(), []byte{0xf9, 0x7e, 0x00}},
		{math.Inf(-1), []byte{0xf9, 0xfc, 0x00}},
	}
	for _, tt := range tests {
		e := &Encoder{}
		e.WriteShortestFloat(tt.in)
		if !bytes.Equal(e.buf, tt.want) {
			t.Errorf("WriteShortestFloat(%v) = %x, want %x", tt.in, e.buf, tt.want)
		}
	}
}

func TestShortestFloatEncoder(t *testing.T) {
	handlers := append([]EncodeHandler{ShortestFloatEncoder{}}, DefaultEncodeHandlers()...)
	got, err := Marshal([]any{1.5, float32(100000), 1}, WithEncodeHandlers(handlers...))
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x83, 0xf9, 0x3e, 0x00, 0xfa, 0x47, 0xc3, 0x50, 0x00, 0x01}
	if !bytes.Equal(got, want) {
		t.Errorf("Marshal() = %x, want %x", got, want)
	}
}

func TestDecodeFloat(t *testing.T) {
	tests := []struct {
		info byte
		arg  uint64
		want float64
	}{
		{infoUint16, 0x3c00, 1.0},
		{infoUint16, 0x0001, 5.960464477539063e-8},
		{infoUint16, 0xfc00, math.Inf(-1)},
		{infoUint32, 0x47c35000, 100000.0},
		{infoUint64, 0x3ff199999999999a, 1.1},
	}
	for _, tt := range tests {
		if got := decodeFloat(tt.info, tt.arg); got != tt.want {
			t.Errorf("decodeFloat(%d, %x) = %v, want %v", tt.info, tt.arg, got, tt.want)
		}
	}
	if got := decodeFloat(infoUint16, 0x7e00); !math.IsNaN(got) {
		t.Errorf("decodeFloat(25, 7e00) = %v, want NaN", got)
	}
}

func TestWriteFloat16(t *testing.T) {
	e := &Encoder{}
	e.WriteFloat16(float16.FromFloat64(-4))
	if want := []byte{0xf9, 0xc4, 0x00}; !bytes.Equal(e.buf, want) {
		t.Errorf("WriteFloat16() = %x, want %x", e.buf, want)
	}
}
