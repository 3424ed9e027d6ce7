// Package config is the core-relevant CLI/config surface of the
// analyzer: magic-typer mode, parser-plugin disable list, parser
// directories, the extra-ops field DSL, and the bulk-sink mode.
// Validation errors here are fatal at startup; nothing in this package
// is consulted after workers start.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arkime-go/sesscore/magic"
	"github.com/arkime-go/sesscore/session"
)

// Config is the validated startup configuration.
type Config struct {
	MagicMode      magic.Mode
	DisableParsers []string
	ParsersDir     []string
	ExtraOps       []FieldOp
	BulkMode       session.BulkMode
}

// FieldOp is one entry of the extraOps DSL: `name=value` applied to
// every session at save time. An integer value becomes an int field
// op, anything else a string op; the mapping from name to field id is
// the engine's concern.
type FieldOp struct {
	Name  string
	Value string
}

// Flags is the raw, pre-validation flag surface bound onto a cobra
// command.
type Flags struct {
	MagicMode      string
	DisableParsers []string
	ParsersDir     []string
	ExtraOps       []string
	BulkMode       string
}

// Bind registers the config flags on cmd.
func (f *Flags) Bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.MagicMode, "magicMode", "both", "content-typer mode: basic|libmagic|libmagicnotext|both|none")
	cmd.Flags().StringSliceVar(&f.DisableParsers, "disableParsers", nil, "parser plugin identifiers to skip")
	cmd.Flags().StringSliceVar(&f.ParsersDir, "parsersDir", nil, "directories to load parser plugins from")
	cmd.Flags().StringSliceVar(&f.ExtraOps, "extraOps", nil, "field ops applied to every session, name=value")
	cmd.Flags().StringVar(&f.BulkMode, "bulkMode", "bulk", "output batching: bulk|bulk1|doc")
}

// Validate resolves the raw flags into a Config, or an error that the
// caller treats as fatal.
func (f *Flags) Validate() (*Config, error) {
	cfg := &Config{
		DisableParsers: f.DisableParsers,
		ParsersDir:     f.ParsersDir,
	}

	mode, err := ParseMagicMode(f.MagicMode)
	if err != nil {
		return nil, err
	}
	cfg.MagicMode = mode

	switch f.BulkMode {
	case "bulk", "":
		cfg.BulkMode = session.BulkBatch
	case "bulk1":
		cfg.BulkMode = session.BulkSingle
	case "doc":
		cfg.BulkMode = session.BulkDoc
	default:
		return nil, fmt.Errorf("config: unknown bulkMode %q", f.BulkMode)
	}

	for _, raw := range f.ExtraOps {
		op, err := ParseFieldOp(raw)
		if err != nil {
			return nil, err
		}
		cfg.ExtraOps = append(cfg.ExtraOps, op)
	}

	return cfg, nil
}

// ParseMagicMode maps the CLI spelling onto a magic.Mode, treating an
// empty flag as the default "both".
func ParseMagicMode(s string) (magic.Mode, error) {
	if s == "" {
		return magic.ModeBoth, nil
	}
	mode, ok := magic.ParseMode(s)
	if !ok {
		return 0, fmt.Errorf("config: unknown magicMode %q", s)
	}
	return mode, nil
}

// ParseFieldOp splits one extraOps expression at its first '='.
func ParseFieldOp(raw string) (FieldOp, error) {
	name, value, found := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if !found || name == "" {
		return FieldOp{}, fmt.Errorf("config: bad extraOps expression %q, want name=value", raw)
	}
	return FieldOp{Name: name, Value: strings.TrimSpace(value)}, nil
}

// ParserDisabled reports whether name is on the disable list.
func (c *Config) ParserDisabled(name string) bool {
	for _, d := range c.DisableParsers {
		if d == name {
			return true
		}
	}
	return false
}
