package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	cbor "github.com/shogo82148/go-cborstream"
)

// openInput wraps r with the decompression and hex decoding that cfg asks for.
func openInput(r io.Reader, cfg config) (io.ReadCloser, error) {
	var rc io.ReadCloser
	switch cfg.decompress {
	case "", "none":
		rc = io.NopCloser(r)
	case "zstd":
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		rc = dec.IOReadCloser()
	case "lz4":
		rc = io.NopCloser(lz4.NewReader(r))
	default:
		return nil, fmt.Errorf("unknown compression %q", cfg.decompress)
	}
	if cfg.hex {
		rc = &readCloser{
			Reader: hex.NewDecoder(&spaceSkipper{r: rc}),
			Closer: rc,
		}
	}
	return rc, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

// spaceSkipper drops ASCII white space so that hex dumps may be wrapped.
type spaceSkipper struct {
	r io.Reader
}

func (s *spaceSkipper) Read(p []byte) (int, error) {
	for {
		n, err := s.r.Read(p)
		j := 0
		for _, c := range p[:n] {
			switch c {
			case ' ', '\t', '\n', '\r':
				continue
			}
			p[j] = c
			j++
		}
		if j > 0 || err != nil || n == 0 {
			return j, err
		}
	}
}

// source returns a chunk source over r that stops once ctx is done.
func source(ctx context.Context, r io.Reader, size int) cbor.ChunkSource {
	src := cbor.ReaderSource(r, size)
	return cbor.ChunkSourceFunc(func() ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return src.Next()
	})
}
