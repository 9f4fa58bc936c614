package cbor

import (
	"math"

	"github.com/shogo82148/float16"
)

// decodeFloat converts the argument of a float head
// (additional information 25, 26 or 27) to float64.
func decodeFloat(info byte, arg uint64) float64 {
	switch info {
	case infoUint16:
		return float16.FromBits(uint16(arg)).Float64()
	case infoUint32:
		return float64(math.Float32frombits(uint32(arg)))
	default:
		return math.Float64frombits(arg)
	}
}

// WriteFloat16 writes f as a half-precision float.
func (e *Encoder) WriteFloat16(f float16.Float16) {
	e.writeByte(sigilFloat16)
	e.writeUint16(f.Bits())
}

// WriteFloat32 writes f as a single-precision float.
func (e *Encoder) WriteFloat32(f float32) {
	e.writeByte(sigilFloat32)
	e.writeUint32(math.Float32bits(f))
}

// WriteFloat64 writes f as a double-precision float.
func (e *Encoder) WriteFloat64(f float64) {
	e.writeByte(sigilFloat64)
	e.writeUint64(math.Float64bits(f))
}

// WriteShortestFloat writes f in the narrowest float format that
// represents it exactly. All NaNs are written as the half-precision quiet NaN.
func (e *Encoder) WriteShortestFloat(f float64) {
	if math.IsNaN(f) {
		e.WriteFloat16(float16.FromBits(0x7e00))
		return
	}

	bits := math.Float64bits(f)
	if f16 := float16.FromFloat64(f); math.Float64bits(f16.Float64()) == bits {
		e.WriteFloat16(f16)
		return
	}
	if f32 := float32(f); math.Float64bits(float64(f32)) == bits {
		e.WriteFloat32(f32)
		return
	}
	e.WriteFloat64(f)
}

// ShortestFloatEncoder writes float32 and float64 values in the narrowest
// lossless float format. Put it before FloatEncoder in the encode chain to
// enable it.
type ShortestFloatEncoder struct{}

func (ShortestFloatEncoder) Match(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}
	return false
}

func (ShortestFloatEncoder) Encode(e *Encoder, v any) error {
	switch v := v.(type) {
	case float32:
		e.WriteShortestFloat(float64(v))
	case float64:
		e.WriteShortestFloat(v)
	}
	return nil
}
