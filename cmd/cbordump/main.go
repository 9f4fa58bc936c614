// cbordump decodes, encodes and validates CBOR data items.
//
// Input is read incrementally, so a large or never-ending CBOR sequence on
// stdin is printed item by item as it arrives.
//
//	cbordump [flags] [file]
//	cbordump --mode encode [flags] [file]
//	cbordump --mode validate [flags] [file]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		var invalid *invalidError
		if errors.As(err, &invalid) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type config struct {
	mode       string
	format     string
	input      string
	decompress string
	hex        bool
	chunkSize  int
	extended   bool
	verbose    bool
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var cfg config
	flagSet := pflag.NewFlagSet("cbordump", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&cfg.mode, "mode", "m", "decode", "one of decode, encode, validate")
	flagSet.StringVarP(&cfg.format, "format", "f", "diag", "decode output: diag, json, yaml or events")
	flagSet.StringVarP(&cfg.input, "input", "i", "json", "encode input: json (comments allowed) or yaml")
	flagSet.StringVar(&cfg.decompress, "decompress", "none", "input compression: none, zstd or lz4")
	flagSet.BoolVar(&cfg.hex, "hex", false, "CBOR is hex text instead of binary")
	flagSet.IntVar(&cfg.chunkSize, "chunk-size", 4096, "read size of the incremental decoder")
	flagSet.BoolVar(&cfg.extended, "extended", true, "decode and encode times, URIs and IP addresses")
	flagSet.BoolVarP(&cfg.verbose, "verbose", "v", false, "log decoder events to stderr")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flagSet.NArg() > 1 {
		return fmt.Errorf("expected at most one input file, got %d", flagSet.NArg())
	}

	level := slog.LevelInfo
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	in := stdin
	if name := flagSet.Arg(0); name != "" && name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	switch cfg.mode {
	case "decode":
		r, err := openInput(in, cfg)
		if err != nil {
			return err
		}
		defer r.Close()
		return decode(ctx, r, stdout, cfg, logger)
	case "encode":
		return encode(in, stdout, cfg)
	case "validate":
		r, err := openInput(in, cfg)
		if err != nil {
			return err
		}
		defer r.Close()
		return validate(ctx, r, stdout, cfg, logger)
	}
	return fmt.Errorf("unknown mode %q", cfg.mode)
}
