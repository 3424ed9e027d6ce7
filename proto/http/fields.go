package http

import "github.com/arkime-go/sesscore/session"

// Field ids this dissector writes into the session field sink.
const (
	FieldHTTPHost session.FieldID = iota + 7000
	FieldHTTPPath
	FieldHTTPKey
	FieldHTTPValue
	FieldHTTPMD5
	// FieldHTTPXFF is an IP_HASH-typed field populated from
	// X-Forwarded-For, including the historical rejection of
	// 0xffffffff -- see TagBadIPHash below.
	FieldHTTPXFF
)

const TagProtocolHTTP = "protocol:http"

// TagBadIPHash: the IP_HASH add path rejects 0xffffffff (the IPv4
// broadcast address) as if invalid, which also rejects a legitimate
// broadcast address. Kept bug-compatible with earlier deployments
// pending a product decision.
const TagBadIPHash = "http:bad-iphash"

// broadcastIPv4 is the 0xffffffff value rejected for IP_HASH fields.
const broadcastIPv4 = 0xffffffff
