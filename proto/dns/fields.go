package dns

import "github.com/arkime-go/sesscore/session"

// Field ids this dissector writes into the session field sink.
const (
	FieldDNSHost session.FieldID = iota + 4000
	FieldDNSIP
)

const TagProtocolDNS = "protocol:dns"

// tag prefixes for the question's recorded qtype/qclass.
const (
	tagQTypePrefix  = "dns:qtype:"
	tagQClassPrefix = "dns:qclass:"
)
