// Package magic implements the content-typer collaborator: mapping a
// byte prefix to a MIME type string. Builtin is a hand-rolled magic
// table; Library wraps an external typer (h2non/filetype) for callers
// that want libmagic-grade coverage.
package magic

import (
	"bytes"
)

// Typer maps a byte prefix to a MIME type, or returns ("", false) if
// nothing recognized it.
type Typer interface {
	Magic(data []byte) (mime string, ok bool)
}

// Mode selects which Typer(s) a caller should consult.
type Mode int

const (
	// ModeBasic uses only the built-in table.
	ModeBasic Mode = iota
	// ModeLibrary uses only an external typer.
	ModeLibrary
	// ModeBoth tries the built-in table first, falling back to the
	// external typer.
	ModeBoth
	// ModeNone disables content-typing entirely.
	ModeNone
)

// ParseMode parses the CLI-facing mode strings ("basic", "libmagic",
// "libmagicnotext", "both", "none").
// libmagicnotext behaves like libmagic for this module's purposes: the
// distinction (skip plain-text detection) is a libmagic engine option
// with no equivalent knob in this core, so it's accepted as an alias.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "basic":
		return ModeBasic, true
	case "libmagic", "libmagicnotext", "library":
		return ModeLibrary, true
	case "both":
		return ModeBoth, true
	case "none":
		return ModeNone, true
	default:
		return 0, false
	}
}

// Resolver dispatches to Builtin and/or an external Typer according to Mode.
type Resolver struct {
	Mode     Mode
	Builtin  Typer
	External Typer
}

// NewResolver builds a Resolver with the built-in table always available.
func NewResolver(mode Mode, external Typer) *Resolver {
	return &Resolver{Mode: mode, Builtin: NewBuiltin(), External: external}
}

// Magic resolves data's MIME type according to r.Mode.
func (r *Resolver) Magic(data []byte) (string, bool) {
	switch r.Mode {
	case ModeNone:
		return "", false
	case ModeBasic:
		return r.Builtin.Magic(data)
	case ModeLibrary:
		if r.External == nil {
			return "", false
		}
		return r.External.Magic(data)
	case ModeBoth:
		if m, ok := r.Builtin.Magic(data); ok {
			return m, true
		}
		if r.External != nil {
			return r.External.Magic(data)
		}
		return "", false
	default:
		return "", false
	}
}

// Builtin is the built-in magic-byte table.
type Builtin struct{}

// NewBuiltin returns the built-in content-typer.
func NewBuiltin() *Builtin { return &Builtin{} }

func hasPrefix(data []byte, prefix ...byte) bool {
	return bytes.HasPrefix(data, prefix)
}

func containsFold(data []byte, sub string) bool {
	return bytes.Contains(bytes.ToLower(data), []byte(sub))
}

type magicRule struct {
	mime  string
	match func([]byte) bool
}

// builtinTable lists the recognizers grouped by leading byte; first
// match wins.
var builtinTable = []magicRule{
	{"video/quicktime", func(d []byte) bool {
		return len(d) >= 12 && bytes.Equal(d[4:8], []byte("ftyp")) && !bytes.HasPrefix(d[8:], []byte("3gp"))
	}},
	{"video/3gpp", func(d []byte) bool {
		return len(d) >= 11 && bytes.Equal(d[4:8], []byte("ftyp")) && bytes.HasPrefix(d[8:], []byte("3gp"))
	}},
	{"application/x-font-ttf", func(d []byte) bool { return hasPrefix(d, 0x00, 0x01, 0x00, 0x00, 0x00) }},
	{"image/x-win-bitmap", func(d []byte) bool { return hasPrefix(d, 0x00, 0x00, 0x01, 0x00) }},
	{"video/webm", func(d []byte) bool {
		return hasPrefix(d, 0x1a, 0x45, 0xdf, 0xa3) && bytes.Contains(truncate(d, 4096), []byte("webm"))
	}},
	{"video/x-matroska", func(d []byte) bool { return hasPrefix(d, 0x1a, 0x45, 0xdf, 0xa3) }},
	{"application/x-gzip", func(d []byte) bool { return hasPrefix(d, 0x1f, 0x8b) }},
	{"application/x-compress", func(d []byte) bool { return hasPrefix(d, 0x1f, 0x9d) }},
	{"application/x-debian-package", func(d []byte) bool {
		return hasPrefix(d, '!', '<', 'a', 'r', 'c', 'h') && bytes.Contains(truncate(d, 512), []byte("debian"))
	}},
	{"text/x-shellscript", func(d []byte) bool {
		return hasPrefix(d, '#', '!') && (bytes.Contains(d, []byte("sh")) || bytes.Contains(d, []byte("bash")))
	}},
	{"text/x-perl", func(d []byte) bool { return hasPrefix(d, '#', '!') && bytes.Contains(d, []byte("perl")) }},
	{"text/x-ruby", func(d []byte) bool { return hasPrefix(d, '#', '!') && bytes.Contains(d, []byte("ruby")) }},
	{"text/x-python", func(d []byte) bool { return hasPrefix(d, '#', '!') && bytes.Contains(d, []byte("python")) }},
	{"application/pdf", func(d []byte) bool { return hasPrefix(d, '%', 'P', 'D', 'F') }},
	{"text/html", func(d []byte) bool { return containsFold(truncate(d, 512), "<html") }},
	{"image/svg+xml", func(d []byte) bool { return containsFold(truncate(d, 512), "<svg") }},
	{"text/xml", func(d []byte) bool { return containsFold(truncate(d, 16), "<?xml") }},
	{"text/x-php", func(d []byte) bool { return containsFold(truncate(d, 16), "<?php") }},
	{"application/json", looksLikeJSON},
	{"image/vnd.adobe.photoshop", func(d []byte) bool { return hasPrefix(d, '8', 'B', 'P', 'S') }},
	{"application/x-ms-bmp", func(d []byte) bool { return hasPrefix(d, 'B', 'M') }},
	{"application/x-bzip2", func(d []byte) bool { return hasPrefix(d, 'B', 'Z', 'h') }},
	{"application/x-shockwave-flash", func(d []byte) bool { return hasPrefix(d, 'F', 'W', 'S') || hasPrefix(d, 'C', 'W', 'S') }},
	{"video/x-flv", func(d []byte) bool { return hasPrefix(d, 'F', 'L', 'V') }},
	{"image/gif", func(d []byte) bool { return hasPrefix(d, 'G', 'I', 'F', '8') }},
	{"video/mp2t", func(d []byte) bool { return hasPrefix(d, 0x47) && len(d)%188 == 0 }},
	{"image/x-icns", func(d []byte) bool { return hasPrefix(d, 'i', 'c', 'n', 's') }},
	{"audio/mpeg", func(d []byte) bool {
		return hasPrefix(d, 0xff, 0xfb) || hasPrefix(d, 0xff, 0xf3) || hasPrefix(d, 0xff, 0xf2) || hasPrefix(d, 'I', 'D', '3')
	}},
	{"application/x-dosexec", func(d []byte) bool { return hasPrefix(d, 'M', 'Z') }},
	{"application/vnd.ms-cab-compressed", func(d []byte) bool { return hasPrefix(d, 'M', 'S', 'C', 'F') }},
	{"audio/ogg", func(d []byte) bool { return hasPrefix(d, 'O', 'g', 'g', 'S') && len(d) > 28 && d[28]&0x7f == 0x01 }},
	{"video/ogg", func(d []byte) bool { return hasPrefix(d, 'O', 'g', 'g', 'S') }},
	{"application/vnd.ms-opentype", func(d []byte) bool { return hasPrefix(d, 'O', 'T', 'T', 'O') }},
	{"application/zip", func(d []byte) bool { return hasPrefix(d, 'P', 'K', 0x03, 0x04) }},
	{"audio/x-wav", func(d []byte) bool {
		return hasPrefix(d, 'R', 'I', 'F', 'F') && len(d) >= 12 && bytes.Equal(d[8:12], []byte("WAVE"))
	}},
	{"application/x-rar", func(d []byte) bool { return hasPrefix(d, 'R', 'a', 'r', '!') }},
	{"application/x-bittorrent", func(d []byte) bool { return hasPrefix(d, 'd', '8', ':', 'a') || hasPrefix(d, 'd', '8', ':', 'm') }},
	{"application/font-woff", func(d []byte) bool { return hasPrefix(d, 'w', 'O', 'F', 'F') }},
	{"application/font-woff2", func(d []byte) bool { return hasPrefix(d, 'w', 'O', 'F', '2') }},
	{"image/png", func(d []byte) bool { return hasPrefix(d, 0x89, 'P', 'N', 'G') }},
	{"application/x-xz", func(d []byte) bool { return hasPrefix(d, 0xfd, '7', 'z', 'X', 'Z', 0x00) }},
	{"image/jpeg", func(d []byte) bool { return hasPrefix(d, 0xff, 0xd8, 0xff) }},
	{"application/x-rpm", func(d []byte) bool { return hasPrefix(d, 0xed, 0xab, 0xee, 0xdb) }},
	{"application/x-tar", func(d []byte) bool { return len(d) >= 262 && bytes.Equal(d[257:262], []byte("ustar")) }},
}

func truncate(d []byte, n int) []byte {
	if len(d) < n {
		return d
	}
	return d[:n]
}

func looksLikeJSON(d []byte) bool {
	trimmed := bytes.TrimSpace(d)
	if len(trimmed) < 2 {
		return false
	}
	open, close := byte('{'), byte('}')
	if trimmed[0] == '[' {
		open, close = '[', ']'
	}
	return trimmed[0] == open && bytes.ContainsRune(trimmed, rune(close))
}

// Magic implements Typer by walking builtinTable in order.
func (Builtin) Magic(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	for _, rule := range builtinTable {
		if rule.match(data) {
			return rule.mime, true
		}
	}
	return "", false
}
