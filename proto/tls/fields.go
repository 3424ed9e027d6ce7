package tls

import "github.com/arkime-go/sesscore/session"

// Field ids this dissector writes into the session field sink.
const (
	FieldCertIssuerCN session.FieldID = iota + 2000
	FieldCertIssuerON
	FieldCertSubjectCN
	FieldCertSubjectON
	FieldCertAltName
	FieldCertSerial
)

// TagProtocolTLS is the tag the record walk attaches to every chunk it
// parses, independent of whether a certificate was found.
const TagProtocolTLS = "protocol:tls"

// TagCertPreEpoch names the tag for an ASN.1 time that decodes to a
// pre-1970 instant and is clamped to 0. The certificate walk skips the
// validity field, so this package never attaches it.
const TagCertPreEpoch = "cert:pre-epoch-time"
