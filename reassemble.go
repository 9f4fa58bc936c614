package cbor

import (
	"slices"
	"unicode/utf8"
)

// stringReassembler turns fragments of a string payload into Data chunks.
type stringReassembler interface {
	// write accepts the next fragment of the payload. final reports that
	// the fragment ends the payload. It returns the bytes that are safe to
	// deliver now, which may be empty.
	write(p []byte, final bool) ([]byte, bool)
	reset()
}

type bytesReassembler struct{}

func (bytesReassembler) write(p []byte, final bool) ([]byte, bool) {
	return slices.Clone(p), true
}

func (bytesReassembler) reset() {}

// textReassembler holds back an incomplete UTF-8 sequence at the end of
// a fragment until the rest of it arrives.
type textReassembler struct {
	residual []byte
}

func (t *textReassembler) write(p []byte, final bool) ([]byte, bool) {
	buf := make([]byte, 0, len(t.residual)+len(p))
	buf = append(buf, t.residual...)
	buf = append(buf, p...)
	t.residual = t.residual[:0]

	if !final {
		if n := incompleteSuffix(buf); n > 0 {
			t.residual = append(t.residual, buf[len(buf)-n:]...)
			buf = buf[:len(buf)-n]
		}
	}
	if !utf8.Valid(buf) {
		return nil, false
	}
	return buf, true
}

func (t *textReassembler) reset() {
	t.residual = t.residual[:0]
}

// pending reports whether an incomplete sequence is held back.
func (t *textReassembler) pending() bool {
	return len(t.residual) > 0
}

// incompleteSuffix returns the length of the truncated UTF-8 sequence at
// the end of p, or 0 if p does not end inside a sequence.
// Malformed endings return 0 and are left to validation.
func incompleteSuffix(p []byte) int {
	if len(p) == 0 || p[len(p)-1] < 0x80 {
		return 0
	}
	for i := len(p) - 1; i >= 0 && i >= len(p)-utf8.UTFMax; i-- {
		b := p[i]
		if b&0xc0 == 0x80 {
			// continuation byte
			continue
		}
		n := len(p) - i
		if n < sequenceLength(b) {
			return n
		}
		return 0
	}
	return 0
}

// sequenceLength returns the length of the UTF-8 sequence introduced by
// the lead byte b, or 0 if b cannot start a multi-byte sequence.
func sequenceLength(b byte) int {
	switch {
	case b&0xe0 == 0xc0: // 110xxxxx
		return 2
	case b&0xf0 == 0xe0: // 1110xxxx
		return 3
	case b&0xf8 == 0xf0: // 11110xxx
		return 4
	}
	return 0
}
