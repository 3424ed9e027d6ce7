// Package tls implements the passive TLS/X.509 certificate dissector:
// a record-layer walk that finds Handshake Certificate
// messages and extracts the certificate chain's distinguished names and
// subject alternative names, without doing anything resembling TLS
// termination or key exchange.
package tls

import (
	"github.com/arkime-go/sesscore/bsb"
	"github.com/arkime-go/sesscore/classify"
	"github.com/arkime-go/sesscore/dissect"
	"github.com/arkime-go/sesscore/session"
	"github.com/rs/zerolog/log"
)

var logger = log.Logger.With().Str("caller", "proto.tls").Logger()

const (
	contentTypeHandshake = 0x16
	handshakeCertificate = 0x0b
	recordHeaderLen      = 5
	handshakeHeaderLen   = 4
)

// HandshakePattern is the classifier trigger bytes for a TLS
// ClientHello/ServerHello-bearing record: content type 0x16, any of
// the three common minor versions, then (at offset 5) a Handshake
// header whose type is ServerHello (0x02) or, for the broader trigger
// used here, any handshake type -- narrowed further once parsing
// starts.
var HandshakePattern = []byte{0x16, 0x03}

// state is the per-session userData the dissector table stores.
type state struct {
	certs *CertSet
}

// Register wires the TLS record classifier into reg: any TCP payload
// beginning with a TLS handshake record header attaches this
// dissector to the session.
func Register(reg *classify.Registry, tbl func(s session.Session) *dissect.Table) {
	reg.RegisterContent("tls", 0, HandshakePattern, func(s session.Session, data []byte, which session.Direction, userData interface{}) {
		Attach(tbl(s), s)
	}, nil)
}

// Attach registers this session's TLS parser slot, idempotently.
func Attach(t *dissect.Table, s session.Session) *state {
	if v, ok := s.Get(contextKey{}); ok {
		return v.(*state)
	}
	st := &state{certs: NewCertSet()}
	s.Set(contextKey{}, st)
	t.Register(s, func(s session.Session, userData interface{}, data []byte, which session.Direction) {
		parseRecords(s, userData.(*state), data)
	}, st, func(s session.Session, userData interface{}) {
		s.Delete(contextKey{})
		flush(s, userData.(*state))
	}, nil)
	return st
}

type contextKey struct{}

// Parse is the standalone entry point used by tests and by the SMTP
// STARTTLS handoff that engine.RegisterBuiltin wires up; it runs one chunk through the record walk directly against a fresh
// state, for callers that don't need the full dissector table wiring.
func Parse(s session.Session, data []byte, which session.Direction) {
	st := &state{certs: NewCertSet()}
	parseRecords(s, st, data)
	flush(s, st)
}

// parseRecords is the outer loop: walk TLS records,
// and within any Handshake-content record walk Handshake messages,
// looking for a Certificate message (type 11).
func parseRecords(s session.Session, st *state, data []byte) {
	s.AddTag(TagProtocolTLS)

	b := bsb.New(data)
	for b.Remaining() >= recordHeaderLen+1 {
		contentType := b.ImportU8()
		b.ImportU16() // protocol version
		recLen := int(b.ImportU16())
		if recLen > b.Remaining() {
			recLen = b.Remaining()
		}
		body := b.ImportPtr(recLen)
		if b.IsError() {
			return
		}

		if contentType != contentTypeHandshake {
			continue
		}
		parseHandshakes(s, st, body)
	}
}

func parseHandshakes(s session.Session, st *state, body []byte) {
	b := bsb.New(body)
	for b.Remaining() >= handshakeHeaderLen {
		hsType := b.ImportU8()
		hsLen := int(b.ImportU24())
		if hsLen > b.Remaining() {
			hsLen = b.Remaining()
		}
		msg := b.ImportPtr(hsLen)
		if b.IsError() {
			return
		}

		if hsType != handshakeCertificate {
			continue
		}
		parseCertList(s, st, msg)
	}
}

// parseCertList walks a Certificate handshake message's 3-byte-length
// chain, then each cert's own 3-byte length.
func parseCertList(s session.Session, st *state, msg []byte) {
	b := bsb.New(msg)
	chainLen := int(b.ImportU24())
	if b.IsError() {
		return
	}
	chain := b.WorkPtr()
	if chainLen < len(chain) {
		chain = chain[:chainLen]
	}

	cb := bsb.New(chain)
	for certIdx := 0; cb.Remaining() >= 3; certIdx++ {
		certLen := int(cb.ImportU24())
		if certLen > cb.Remaining() {
			certLen = cb.Remaining()
		}
		der := cb.ImportPtr(certLen)
		if cb.IsError() {
			return
		}

		cert, err := processCertificate(der)
		if err != nil {
			logger.Debug().Err(err).Int("cert", certIdx).Msg("bad cert")
			continue
		}
		if st.certs.Add(cert) {
			recordCertificate(s, cert)
		}
	}
}

func recordCertificate(s session.Session, cert *Certificate) {
	for _, cn := range cert.Issuer.CommonNames {
		s.AddString(FieldCertIssuerCN, cn, true)
	}
	if cert.Issuer.Org != "" {
		s.AddString(FieldCertIssuerON, cert.Issuer.Org, true)
	}
	for _, cn := range cert.Subject.CommonNames {
		s.AddString(FieldCertSubjectCN, cn, true)
	}
	if cert.Subject.Org != "" {
		s.AddString(FieldCertSubjectON, cert.Subject.Org, true)
	}
	for _, an := range cert.AltNames {
		s.AddString(FieldCertAltName, an, true)
	}
	if len(cert.Serial) > 0 {
		s.AddString(FieldCertSerial, hexSerial(cert.Serial), true)
	}
}

func hexSerial(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 0, len(b)*2)
	for _, c := range b {
		out = append(out, hexdigits[c>>4], hexdigits[c&0xf])
	}
	return string(out)
}

// flush is a no-op placeholder for parity with other dissectors' free
// callbacks; CertSet needs no explicit release.
func flush(s session.Session, st *state) {}
