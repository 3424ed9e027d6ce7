package socks

import "github.com/arkime-go/sesscore/session"

// Field ids this dissector writes into the session field sink.
const (
	FieldSocksHost session.FieldID = iota + 5000
	FieldSocksPort
	FieldSocksUser
)

const TagProtocolSocks = "protocol:socks"
