// The emp-stat command displays stats for an EMP file.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/emptools/empfile/errors"
	"github.com/emptools/empfile/internal/config"
	"github.com/spf13/pflag"
)

const usage = `usage: emp-stat [flags] [INPUT] [OUTPUT]

Reads a binary EMP file from INPUT, and writes to OUTPUT statistics for the
file as JSON. The stats include a BLAKE2b checksum of the input, and whether
re-encoding the decoded document reproduces the input exactly.

INPUT and OUTPUT are paths to files. If INPUT is "-" or unspecified, then stdin
is used. If OUTPUT is "-" or unspecified, then stdout is used. Warnings and
errors are written to stderr.

Flags:
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(arguments []string) error {
	var flags config.Flags
	var strict bool

	flagSet := pflag.NewFlagSet("emp-stat", pflag.ContinueOnError)
	flags.AddFlags(flagSet)
	flagSet.BoolVar(&strict, "strict", false, "exit with an error if the file does not round-trip")
	flagSet.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(arguments); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := flags.Resolve()
	if err != nil {
		return err
	}
	logger := cfg.Logger(os.Stderr)

	args := flagSet.Args()
	var input io.Reader = os.Stdin
	var output io.Writer = os.Stdout
	if len(args) >= 1 && args[0] != "-" {
		in, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer in.Close()
		input = in
	}
	if len(args) >= 2 && args[1] != "-" {
		out, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer out.Close()
		defer func() {
			if err := out.Sync(); err != nil {
				logger.Error("sync output", "err", err)
			}
		}()
		output = out
	}

	data, err := io.ReadAll(input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var stats Stats
	doc, warn, err := cfg.Decoder(logger).DecodeBytes(data)
	for _, w := range errors.Flatten(warn) {
		logger.Warn("decode warning", "err", w)
		stats.Warnings = append(stats.Warnings, w.Error())
	}
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	stats.Fill(data, doc)
	logger.Debug("stats", "nodes", stats.NodeCount, "samplers", stats.SamplerCount, "roundtrip", stats.RoundTrip)

	je := json.NewEncoder(output)
	je.SetEscapeHTML(false)
	je.SetIndent("", "\t")
	if err := je.Encode(stats); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if strict && !stats.RoundTrip {
		return fmt.Errorf("file does not round-trip (decompile=%s)", cfg.Decompile)
	}
	return nil
}
