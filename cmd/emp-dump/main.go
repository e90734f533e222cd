// The emp-dump command displays the contents of an EMP file.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/emptools/empfile/errors"
	"github.com/emptools/empfile/internal/config"
	"github.com/spf13/pflag"
)

const usage = `usage: emp-dump [flags] [INPUT] [OUTPUT]

Reads a binary EMP file from INPUT, and writes to OUTPUT a readable
representation of the file.

With --format=records, each record is shown as it appears in the file, with
animated parameters in compiled form. With --format=yaml, the file is decoded
into a document, decompiled according to --decompile, and written as YAML.

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
	var format string

	flagSet := pflag.NewFlagSet("emp-dump", pflag.ContinueOnError)
	flags.AddFlags(flagSet)
	flagSet.StringVarP(&format, "format", "f", "", "output format: records or yaml")
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
	if format != "" {
		cfg.Dump.Format = format
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	logger := cfg.Logger(os.Stderr)

	input, output, closeFiles, err := openFiles(flagSet.Args())
	if err != nil {
		return err
	}
	defer closeFiles()

	dec := cfg.Decoder(logger)
	switch cfg.Dump.Format {
	case config.DumpYAML:
		doc, warn, err := dec.Decode(input)
		logWarnings(logger, warn)
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		b, err := doc.YAML()
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		if _, err := output.Write(b); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	default:
		warn, err := dec.Dump(output, input)
		logWarnings(logger, warn)
		if err != nil {
			return fmt.Errorf("dump: %w", err)
		}
	}
	return nil
}

func logWarnings(logger *slog.Logger, warn error) {
	for _, w := range errors.Flatten(warn) {
		logger.Warn("decode warning", "err", w)
	}
}

// openFiles opens the INPUT and OUTPUT arguments. The returned function
// closes whatever was opened, syncing the output file.
func openFiles(args []string) (input io.Reader, output io.Writer, closeFiles func(), err error) {
	input, output = os.Stdin, os.Stdout
	var in, out *os.File
	closeFiles = func() {
		if in != nil {
			in.Close()
		}
		if out != nil {
			if err := out.Sync(); err != nil {
				fmt.Fprintln(os.Stderr, fmt.Errorf("sync output: %w", err))
			}
			out.Close()
		}
	}

	if len(args) >= 1 && args[0] != "-" {
		if in, err = os.Open(args[0]); err != nil {
			return nil, nil, nil, fmt.Errorf("open input: %w", err)
		}
		input = in
	}
	if len(args) >= 2 && args[1] != "-" {
		if out, err = os.Create(args[1]); err != nil {
			closeFiles()
			return nil, nil, nil, fmt.Errorf("create output: %w", err)
		}
		output = out
	}
	return input, output, closeFiles, nil
}
