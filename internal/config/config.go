// Package config provides configuration loading for the emp command-line
// tools.
//
// Configuration is loaded from a single YAML file specified by:
//   - the --config flag passed to the command, or
//   - the EMPTOOLS_CONFIG environment variable.
//
// Without either, the tools run with Default. Flags given on the command line
// override values from the file.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/emptools/empfile/emp"
	"github.com/emptools/empfile/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the path of the config file.
const EnvVar = "EMPTOOLS_CONFIG"

// Config is the configuration shared by the tools.
type Config struct {
	// Decompile selects how decoded documents are decompiled: raw, typed or
	// full.
	Decompile emp.DecompileMode `yaml:"decompile"`

	// Log configures diagnostic output on stderr.
	Log LogConfig `yaml:"log"`

	// Dump configures emp-dump.
	Dump DumpConfig `yaml:"dump"`
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	// Default: warn
	Level string `yaml:"level"`

	// Format is text or json.
	// Default: text
	Format string `yaml:"format"`
}

// DumpConfig configures emp-dump.
type DumpConfig struct {
	// Format is records, for the record-level view of the file, or yaml, for
	// the decompiled document.
	// Default: records
	Format string `yaml:"format"`
}

// Dump formats.
const (
	DumpRecords = "records"
	DumpYAML    = "yaml"
)

// Log formats.
const (
	LogText = "text"
	LogJSON = "json"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Decompile: emp.Typed,
		Log: LogConfig{
			Level:  "warn",
			Format: LogText,
		},
		Dump: DumpConfig{
			Format: DumpRecords,
		},
	}
}

// Load loads configuration from the file named by EMPTOOLS_CONFIG. If the
// variable is not set, the default configuration is returned.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path. Values not present
// in the file keep their defaults. Unknown keys are an error.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg := Default()
	if err := cfg.decode(f); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// decode merges a YAML document into c.
func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// Validate checks the configuration for errors. All problems are reported
// together.
func (c *Config) Validate() error {
	var errs errors.Errors

	if _, err := c.Decompile.MarshalText(); err != nil {
		errs = errs.Append(err)
	}
	if _, err := c.level(); err != nil {
		errs = errs.Append(err)
	}
	switch c.Log.Format {
	case LogText, LogJSON:
	default:
		errs = errs.Append(fmt.Errorf("log.format must be %s or %s, got %q", LogText, LogJSON, c.Log.Format))
	}
	switch c.Dump.Format {
	case DumpRecords, DumpYAML:
	default:
		errs = errs.Append(fmt.Errorf("dump.format must be %s or %s, got %q", DumpRecords, DumpYAML, c.Dump.Format))
	}

	return errs.Return()
}

func (c *Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.Log.Level))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Logger returns a logger writing to w with the configured level and
// format. An invalid level falls back to warn.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.level()
	if err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == LogJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Decoder returns an emp.Decoder configured with the decompile mode and
// logger.
func (c *Config) Decoder(logger *slog.Logger) emp.Decoder {
	return emp.Decoder{Decompile: c.Decompile, Logger: logger}
}

// Flags holds command-line overrides of a Config. Empty fields leave the
// loaded value unchanged.
type Flags struct {
	Path      string
	Decompile string
	LogLevel  string
	LogFormat string
}

// AddFlags registers the shared flags on flagSet.
func (f *Flags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.Path, "config", "", "path to YAML config file (default: $"+EnvVar+")")
	flagSet.StringVarP(&f.Decompile, "decompile", "d", "", "decompile mode: raw, typed, or full")
	flagSet.StringVar(&f.LogLevel, "log-level", "", "log level: debug, info, warn, or error")
	flagSet.StringVar(&f.LogFormat, "log-format", "", "log format: text or json")
}

// Resolve loads the file named by --config, or else by EMPTOOLS_CONFIG, and
// applies the flag overrides. The result is validated.
func (f *Flags) Resolve() (*Config, error) {
	var cfg *Config
	var err error
	if f.Path != "" {
		cfg, err = LoadFile(f.Path)
	} else {
		cfg, err = Load()
	}
	if err != nil {
		return nil, err
	}

	if f.Decompile != "" {
		if err := cfg.Decompile.UnmarshalText([]byte(f.Decompile)); err != nil {
			return nil, fmt.Errorf("--decompile: %w", err)
		}
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFormat != "" {
		cfg.Log.Format = f.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
