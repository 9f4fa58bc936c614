package cbor

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// xorshift64 is a pseudo random number generator.
// https://en.wikipedia.org/wiki/Xorshift
type xorshift64 uint64

func newXorshift64() *xorshift64 {
	x := xorshift64(42)
	return &x
}

func (x *xorshift64) Uint64() uint64 {
	a := *x
	a ^= a << 13
	a ^= a >> 7
	a ^= a << 17
	*x = a
	return uint64(a)
}

func TestInteger_Int64(t *testing.T) {
	tests := []struct {
		name    string
		in      Integer
		want    int64
		wantErr bool
	}{
		{"zero", Integer{}, 0, false},
		{"minus one", Integer{Sign: true}, -1, false},
		{"max int64", Integer{Value: math.MaxInt64}, math.MaxInt64, false},
		{"min int64", Integer{Sign: true, Value: math.MaxInt64}, math.MinInt64, false},
		{"overflow", Integer{Value: math.MaxInt64 + 1}, 0, true},
		{"underflow", Integer{Sign: true, Value: math.MaxInt64 + 1}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Int64()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Int64() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Int64() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestInteger_Uint64(t *testing.T) {
	tests := []struct {
		name    string
		in      Integer
		want    uint64
		wantErr bool
	}{
		{"zero", Integer{}, 0, false},
		{"max uint64", Integer{Value: math.MaxUint64}, math.MaxUint64, false},
		{"minus one", Integer{Sign: true}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.in.Uint64()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Uint64() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Uint64() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMap_Get(t *testing.T) {
	m := Map{
		{Key: "a", Value: int64(1)},
		{Key: []byte("b"), Value: int64(2)},
		{Key: "a", Value: int64(3)},
	}
	tests := []struct {
		key    string
		want   any
		wantOK bool
	}{
		{"a", int64(3), true},
		{"b", nil, false},
		{"c", nil, false},
	}
	for _, tt := range tests {
		got, ok := m.Get(tt.key)
		if ok != tt.wantOK {
			t.Errorf("Get(%q) ok = %v, want %v", tt.key, ok, tt.wantOK)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Get(%q) mismatch (-want +got):\n%s", tt.key, diff)
		}
	}
}
