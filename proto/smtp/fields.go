package smtp

import "github.com/arkime-go/sesscore/session"

// Field ids this dissector writes into the session field sink.
const (
	FieldEmailSrc session.FieldID = iota + 3000
	FieldEmailDst
	FieldEmailCC
	FieldEmailTo
	FieldEmailFrom
	FieldEmailMessageID
	FieldEmailContentType
	FieldEmailFilename
	FieldEmailIP
	FieldEmailPartMD5
)

const TagProtocolSMTP = "protocol:smtp"

// TagBadXFF matches the original capture engine's tag name verbatim;
// it fires for any header configured as an ip-hash whose value doesn't
// parse as an address, Received/X-Forwarded-For included.
const TagBadXFF = "http:bad-xff"
