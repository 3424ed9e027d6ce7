package smb

import (
	"bytes"

	"github.com/arkime-go/sesscore/bsb"
)

// ntlmSignature is the fixed 8-byte marker every NTLMSSP message
// (Negotiate/Challenge/Authenticate) begins with.
var ntlmSignature = []byte("NTLMSSP\x00")

// ntlmAuthenticateType is the MessageType value (offset 8, 4 bytes LE)
// identifying an Authenticate message -- the one carrying domain,
// user, and workstation.
const ntlmAuthenticateType = 3

// ntlmAuthenticate is the subset of a Type-3 NTLMSSP message this
// dissector cares about: the three "security buffer" fields
// (Len uint16, MaxLen uint16, Offset uint32, each relative to the
// start of the NTLM message itself) for domain, user, and workstation.
type ntlmAuthenticate struct {
	Domain, User, Workstation string
}

// findNTLMAuthenticate scans blob for an embedded NTLMSSP Authenticate
// message (the security blob of an SMB1 Session Setup AndX request
// generally also carries a preceding Negotiate/Challenge exchange on
// earlier requests, but only the Authenticate message carries
// credentials) and decodes its domain/user/workstation fields.
func findNTLMAuthenticate(blob []byte) (ntlmAuthenticate, bool) {
	idx := bytes.Index(blob, ntlmSignature)
	if idx < 0 {
		return ntlmAuthenticate{}, false
	}
	msg := blob[idx:]
	tb := bsb.New(msg)
	tb.ImportPtr(8)
	if tb.LImportU32() != ntlmAuthenticateType || tb.IsError() {
		return ntlmAuthenticate{}, false
	}

	readField := func(fieldOffset int) (string, bool) {
		f := bsb.New(msg)
		f.ImportPtr(fieldOffset)
		length := int(f.LImportU16())
		f.LImportU16() // MaxLen, unused
		offset := int(f.LImportU32())
		if f.IsError() {
			return "", false
		}
		if length == 0 {
			return "", true
		}
		sb := bsb.New(msg)
		sb.ImportPtr(offset)
		raw := sb.ImportPtr(length)
		if sb.IsError() {
			return "", false
		}
		return ucs2leToUTF8(raw), true
	}

	domain, ok1 := readField(28)
	user, ok2 := readField(36)
	host, ok3 := readField(44)
	if !ok1 || !ok2 || !ok3 {
		return ntlmAuthenticate{}, false
	}
	return ntlmAuthenticate{Domain: domain, User: user, Workstation: host}, true
}
