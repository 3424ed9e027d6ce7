// Package smtp implements the passive email/SMTP dissector: a
// byte-driven line state machine per direction that
// extracts envelope and header addresses, tracks MIME part boundaries,
// and MD5s base64-encoded part bodies, handing off to the TLS
// certificate dissector on STARTTLS.
package smtp

import (
	"github.com/arkime-go/sesscore/classify"
	"github.com/arkime-go/sesscore/dissect"
	"github.com/arkime-go/sesscore/session"
	"github.com/rs/zerolog/log"
)

var logger = log.Logger.With().Str("caller", "proto.smtp").Logger()

// TriggerBytes is the classifier pattern for an SMTP command stream:
// the client's "EHLO" greeting. Register adds "HELO" and the
// well-known ports 25/587/465 alongside it.
var TriggerBytes = []byte("EHLO")

// Parser is one session's email dissector state: a state machine per
// direction.
type Parser struct {
	dirs [2]*dirState
}

// NewParser returns a Parser with both directions starting in StateCmd.
func NewParser() *Parser {
	return &Parser{dirs: [2]*dirState{newDirState(), newDirState()}}
}

// Register wires the SMTP command-greeting classifier into reg and the
// well-known ports 25/587/465.
func Register(reg *classify.Registry, tbl func(s session.Session) *dissect.Table, onTLS TLSHandoff) {
	attachAndParse := func(s session.Session, data []byte, which session.Direction, userData interface{}) {
		Attach(tbl(s), s, onTLS)
	}
	reg.RegisterContent("smtp-ehlo", 0, TriggerBytes, attachAndParse, nil)
	reg.RegisterContent("smtp-helo", 0, []byte("HELO"), attachAndParse, nil)
	for _, port := range []uint16{25, 587, 465} {
		reg.RegisterPort("smtp-port", port, classify.PortSrc|classify.PortDst, attachAndParse, nil)
	}
}

// Attach registers this session's email parser slot, idempotently.
func Attach(t *dissect.Table, s session.Session, onTLS TLSHandoff) *Parser {
	if v, ok := s.Get(contextKey{}); ok {
		return v.(*Parser)
	}
	p := NewParser()
	s.Set(contextKey{}, p)
	t.Register(s, func(s session.Session, userData interface{}, data []byte, which session.Direction) {
		s.AddTag(TagProtocolSMTP)
		Feed(s, userData.(*Parser), which, data, onTLS)
	}, p, func(s session.Session, userData interface{}) {
		s.Delete(contextKey{})
	}, nil)
	return p
}

type contextKey struct{}
