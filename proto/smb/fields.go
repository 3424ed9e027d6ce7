package smb

import "github.com/arkime-go/sesscore/session"

// Field ids this dissector writes into the session field sink.
const (
	FieldSMBFn session.FieldID = iota + 6000
	FieldSMBShare
	FieldSMBUser
	FieldSMBDomain
	FieldSMBHost
)

const (
	TagProtocolSMB = "protocol:smb"
	TagSMBv1       = "smb:v1"
	TagSMBv2       = "smb:v2"
)
