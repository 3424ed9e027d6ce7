package magic

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuiltinFixtureCorpus(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}, "image/png"},
		{"gif", []byte("GIF89a...."), "image/gif"},
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0}, "image/jpeg"},
		{"gzip", []byte{0x1f, 0x8b, 0x08}, "application/x-gzip"},
		{"zip", []byte("PK\x03\x04..."), "application/zip"},
		{"pdf", []byte("%PDF-1.4"), "application/pdf"},
		{"html", []byte("<html><body>hi</body></html>"), "text/html"},
		{"json-object", []byte(`{"a":1}`), "application/json"},
		{"json-array", []byte(`[1,2,3]`), "application/json"},
		{"rar", []byte("Rar!\x1a\x07"), "application/x-rar"},
		{"exe", []byte("MZ\x90\x00"), "application/x-dosexec"},
	}

	b := NewBuiltin()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := b.Magic(tc.data)
			require.True(t, ok, "expected a match")
			require.Equal(t, tc.want, got)
		})
	}
}

func TestBuiltinNoMatch(t *testing.T) {
	b := NewBuiltin()
	_, ok := b.Magic([]byte("just some plain text with no markers"))
	require.False(t, ok)
}

func TestBuiltinEmptyInput(t *testing.T) {
	b := NewBuiltin()
	_, ok := b.Magic(nil)
	require.False(t, ok)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"basic":    ModeBasic,
		"libmagic": ModeLibrary,
		"both":     ModeBoth,
		"none":     ModeNone,
	} {
		got, ok := ParseMode(in)
		require.True(t, ok)
		require.Equal(t, want, got)
	}
	_, ok := ParseMode("bogus")
	require.False(t, ok)
}

type stubTyper struct {
	mime string
	ok   bool
}

func (s stubTyper) Magic([]byte) (string, bool) { return s.mime, s.ok }

func TestResolverModeBoth(t *testing.T) {
	r := &Resolver{Mode: ModeBoth, Builtin: stubTyper{"", false}, External: stubTyper{"application/octet-stream", true}}
	got, ok := r.Magic([]byte("anything"))
	require.True(t, ok)
	require.Equal(t, "application/octet-stream", got)
}

func TestResolverModeNone(t *testing.T) {
	r := &Resolver{Mode: ModeNone, Builtin: stubTyper{"x", true}}
	_, ok := r.Magic([]byte{0x89, 'P', 'N', 'G'})
	require.False(t, ok)
}
