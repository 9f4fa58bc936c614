package cbor

import (
	"context"
	"errors"
	"io"
)

// A ChunkSource produces the bytes of a CBOR stream in chunks of any size.
//
// Next returns the next chunk. At the end of the input it returns nil, io.EOF.
// Empty chunks are allowed and skipped. The consumer does not retain a chunk
// after requesting the next one, so a source may reuse its buffer.
type ChunkSource interface {
	Next() ([]byte, error)
}

// ChunkSourceFunc adapts a function to a ChunkSource.
type ChunkSourceFunc func() ([]byte, error)

// Next calls f.
func (f ChunkSourceFunc) Next() ([]byte, error) {
	return f()
}

// BytesSource returns a ChunkSource that yields data as a single chunk.
func BytesSource(data []byte) ChunkSource {
	return SplitSource(data)
}

// SplitSource returns a ChunkSource that yields the given chunks in order.
func SplitSource(chunks ...[]byte) ChunkSource {
	return &sliceSource{chunks: chunks}
}

type sliceSource struct {
	chunks [][]byte
}

func (s *sliceSource) Next() ([]byte, error) {
	if len(s.chunks) == 0 {
		return nil, io.EOF
	}
	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]
	return chunk, nil
}

const defaultChunkSize = 4096

// ReaderSource returns a ChunkSource that reads chunks of at most size bytes from r.
// If size is not positive, a default size is used.
func ReaderSource(r io.Reader, size int) ChunkSource {
	if size <= 0 {
		size = defaultChunkSize
	}
	return &readerSource{r: r, buf: make([]byte, size)}
}

type readerSource struct {
	r   io.Reader
	buf []byte
	err error
}

func (s *readerSource) Next() ([]byte, error) {
	for s.err == nil {
		n, err := s.r.Read(s.buf)
		s.err = err
		if n > 0 {
			return s.buf[:n], nil
		}
	}
	if errors.Is(s.err, io.EOF) {
		return nil, io.EOF
	}
	return nil, s.err
}

// ChannelSource returns a ChunkSource that receives chunks from ch until it is
// closed. Next returns ctx.Err() once ctx is done.
func ChannelSource(ctx context.Context, ch <-chan []byte) ChunkSource {
	return ChunkSourceFunc(func() ([]byte, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case chunk, ok := <-ch:
			if !ok {
				return nil, io.EOF
			}
			return chunk, nil
		}
	})
}

// chunkCursor supplies bytes from a ChunkSource on demand.
type chunkCursor struct {
	src   ChunkSource
	chunk []byte
	off   int   // next read offset in chunk
	base  int64 // stream offset of chunk[0]
	eof   bool
}

// fill makes sure at least one unread byte is available.
// It reports false at the end of the input.
func (c *chunkCursor) fill() (bool, error) {
	for c.off >= len(c.chunk) {
		if c.eof {
			return false, nil
		}
		c.base += int64(len(c.chunk))
		c.chunk, c.off = nil, 0
		chunk, err := c.src.Next()
		if err == io.EOF {
			c.eof = true
			return false, nil
		}
		if err != nil {
			return false, err
		}
		c.chunk = chunk
	}
	return true, nil
}

// readByte returns the next byte. fill must have reported true.
func (c *chunkCursor) readByte() byte {
	b := c.chunk[c.off]
	c.off++
	return b
}

// next returns up to n unread bytes of the current chunk. fill must have reported true.
func (c *chunkCursor) next(n uint64) []byte {
	avail := uint64(len(c.chunk) - c.off)
	if n > avail {
		n = avail
	}
	p := c.chunk[c.off : c.off+int(n)]
	c.off += int(n)
	return p
}

// offset returns the stream offset of the next unread byte.
func (c *chunkCursor) offset() int64 {
	return c.base + int64(c.off)
}
