package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"strconv"
	"strings"

	fxcbor "github.com/fxamacker/cbor/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	cbor "github.com/shogo82148/go-cborstream"
)

// invalidError reports input that is not valid CBOR.
type invalidError struct {
	err error
}

func (e *invalidError) Error() string {
	return "invalid CBOR: " + e.err.Error()
}

func (e *invalidError) Unwrap() error {
	return e.err
}

func decodeOptions(cfg config, logger *slog.Logger) []cbor.DecodeOption {
	opts := []cbor.DecodeOption{cbor.WithLogger(logger)}
	if cfg.extended {
		opts = append(opts, cbor.WithDecodeHandlers(cbor.ExtendedDecodeHandlers()...))
	}
	return opts
}

func encodeOptions(cfg config) []cbor.EncodeOption {
	if cfg.extended {
		return []cbor.EncodeOption{cbor.WithEncodeHandlers(cbor.ExtendedEncodeHandlers()...)}
	}
	return nil
}

func decode(ctx context.Context, r io.Reader, w io.Writer, cfg config, logger *slog.Logger) error {
	src := source(ctx, r, cfg.chunkSize)
	switch cfg.format {
	case "diag":
		diag, err := cbor.Diagnose(src, cbor.WithLogger(logger))
		if err != nil {
			return &invalidError{err: err}
		}
		_, err = fmt.Fprintln(w, diag)
		return err
	case "events":
		return writeEvents(cbor.NewDecoder(src, decodeOptions(cfg, logger)...), w)
	}

	var emit func(v any) error
	var closeFn func() error
	switch cfg.format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		emit = enc.Encode
		closeFn = func() error { return nil }
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		emit = enc.Encode
		closeFn = enc.Close
	default:
		return fmt.Errorf("unknown format %q", cfg.format)
	}

	d := cbor.NewDecoder(src, decodeOptions(cfg, logger)...)
	for {
		v, err := d.Decode()
		if err == io.EOF {
			return closeFn()
		}
		if err != nil {
			return &invalidError{err: err}
		}
		if err := emit(cbor.JSONValue(v)); err != nil {
			return err
		}
	}
}

func writeEvents(d *cbor.Decoder, w io.Writer) error {
	depth := 0
	for ev, err := range d.Events() {
		if err != nil {
			return &invalidError{err: err}
		}
		if ev.Kind == cbor.EventEnd {
			depth--
		}
		if _, err := fmt.Fprintf(w, "%8d  %s%s\n", ev.Offset, strings.Repeat("  ", depth), ev); err != nil {
			return err
		}
		if ev.Kind == cbor.EventStart {
			depth++
		}
	}
	return nil
}

// encode converts a sequence of JSON or YAML documents into a CBOR sequence.
func encode(r io.Reader, w io.Writer, cfg config) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	out := w
	var hexOut io.Writer
	if cfg.hex {
		hexOut = hex.NewEncoder(w)
		out = hexOut
	}
	e := cbor.NewEncoder(out, encodeOptions(cfg)...)

	switch cfg.input {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.UseNumber()
		for {
			var v any
			if err := dec.Decode(&v); err == io.EOF {
				break
			} else if err != nil {
				return fmt.Errorf("parsing JSON: %w", err)
			}
			if err := e.Encode(fromJSON(v)); err != nil {
				return err
			}
		}
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		for {
			var v any
			if err := dec.Decode(&v); err == io.EOF {
				break
			} else if err != nil {
				return fmt.Errorf("parsing YAML: %w", err)
			}
			if err := e.Encode(v); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown input %q", cfg.input)
	}

	if hexOut != nil {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}

// fromJSON replaces json.Number with the narrowest integer type that holds it,
// or a float64 when it has a fraction or an exponent.
func fromJSON(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(string(v), 10, 64); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(string(v), 10, 64); err == nil {
			return u
		}
		if i, ok := new(big.Int).SetString(string(v), 10); ok {
			return i
		}
		f, _ := v.Float64()
		return f
	case []any:
		for i, elem := range v {
			v[i] = fromJSON(elem)
		}
		return v
	case map[string]any:
		for k, elem := range v {
			v[k] = fromJSON(elem)
		}
		return v
	}
	return v
}

// validate checks every data item of the input and cross-checks the
// well-formedness verdict against github.com/fxamacker/cbor.
func validate(ctx context.Context, r io.Reader, w io.Writer, cfg config, logger *slog.Logger) error {
	var raw bytes.Buffer
	d := cbor.NewDecoder(source(ctx, io.TeeReader(r, &raw), cfg.chunkSize), decodeOptions(cfg, logger)...)
	var items int
	var err error
	for {
		_, err = d.Decode()
		if err != nil {
			break
		}
		items++
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if err == io.EOF {
		err = nil
	}

	var semantic *cbor.SemanticError
	wellFormed := err == nil || errors.As(err, &semantic)
	if fxErr := fxWellFormed(raw.Bytes()); wellFormed != (fxErr == nil) {
		logger.Warn("well-formedness differs from github.com/fxamacker/cbor",
			slog.Bool("wellFormed", wellFormed),
			slog.Any("fxamacker", fxErr))
	}

	if err != nil {
		return &invalidError{err: err}
	}
	_, err = fmt.Fprintf(w, "ok: %d data items\n", items)
	return err
}

func fxWellFormed(data []byte) error {
	for len(data) > 0 {
		var raw fxcbor.RawMessage
		rest, err := fxcbor.UnmarshalFirst(data, &raw)
		if err != nil {
			return err
		}
		data = rest
	}
	return nil
}
