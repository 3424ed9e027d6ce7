package config

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/arkime-go/sesscore/magic"
	"github.com/arkime-go/sesscore/session"
)

func parse(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	f := &Flags{}
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	f.Bind(cmd)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return f.Validate()
}

func TestDefaults(t *testing.T) {
	cfg, err := parse(t)
	require.NoError(t, err)
	require.Equal(t, magic.ModeBoth, cfg.MagicMode)
	require.Equal(t, session.BulkBatch, cfg.BulkMode)
	require.Empty(t, cfg.ExtraOps)
}

func TestMagicModes(t *testing.T) {
	tests := []struct {
		in   string
		want magic.Mode
	}{
		{"basic", magic.ModeBasic},
		{"libmagic", magic.ModeLibrary},
		{"libmagicnotext", magic.ModeLibrary},
		{"both", magic.ModeBoth},
		{"none", magic.ModeNone},
	}
	for _, tc := range tests {
		cfg, err := parse(t, "--magicMode", tc.in)
		require.NoError(t, err)
		require.Equal(t, tc.want, cfg.MagicMode)
	}
}

func TestUnknownMagicModeIsFatal(t *testing.T) {
	_, err := parse(t, "--magicMode", "telepathy")
	require.Error(t, err)
}

func TestBulkModes(t *testing.T) {
	cfg, err := parse(t, "--bulkMode", "bulk1")
	require.NoError(t, err)
	require.Equal(t, session.BulkSingle, cfg.BulkMode)

	cfg, err = parse(t, "--bulkMode", "doc")
	require.NoError(t, err)
	require.Equal(t, session.BulkDoc, cfg.BulkMode)

	_, err = parse(t, "--bulkMode", "firehose")
	require.Error(t, err)
}

func TestExtraOps(t *testing.T) {
	cfg, err := parse(t, "--extraOps", "sensor=edge-1,env=prod")
	require.NoError(t, err)
	require.Equal(t, []FieldOp{{Name: "sensor", Value: "edge-1"}, {Name: "env", Value: "prod"}}, cfg.ExtraOps)

	_, err = parse(t, "--extraOps", "novalue")
	require.Error(t, err)
}

func TestParserDisabled(t *testing.T) {
	cfg, err := parse(t, "--disableParsers", "smb,socks")
	require.NoError(t, err)
	require.True(t, cfg.ParserDisabled("smb"))
	require.True(t, cfg.ParserDisabled("socks"))
	require.False(t, cfg.ParserDisabled("tls"))
}
