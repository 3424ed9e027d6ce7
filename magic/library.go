package magic

import (
	"github.com/h2non/filetype"
)

// Library is an external content-typer backed by h2non/filetype,
// standing in for a libmagic-backed implementation -- it satisfies
// the same Typer interface as Builtin, so callers can swap one for
// the other without touching dissector code.
//
// Grounded on gravwell-gravwell's utils/extract.go, which resolves a
// byte prefix to a filetype.Type and reports its MIME string the same
// way.
type Library struct{}

// NewLibrary returns a filetype-backed Typer.
func NewLibrary() *Library { return &Library{} }

// Magic implements Typer.
func (Library) Magic(data []byte) (string, bool) {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "", false
	}
	return kind.MIME.Value, true
}
