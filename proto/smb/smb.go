// Package smb implements the passive NetBIOS/SMB1/SMB2 dissector:
// NetBIOS session-service framing, SMB1/SMB2 protocol-id
// discrimination, and a handful of commands selected for their use of
// filenames, share paths, and NTLMSSP credentials.
package smb

import (
	"github.com/arkime-go/sesscore/bsb"
	"github.com/arkime-go/sesscore/classify"
	"github.com/arkime-go/sesscore/dissect"
	"github.com/arkime-go/sesscore/session"
	"github.com/rs/zerolog/log"
)

var logger = log.Logger.With().Str("caller", "proto.smb").Logger()

// MaxBuffer is the hard cap on the per-direction NetBIOS-frame
// coalescing buffer. A frame announcing more than this detaches the
// parser rather than growing without bound.
const MaxBuffer = 4096

const (
	netbiosHeaderLen = 4
	smb1HeaderLen    = 32
	smb2HeaderLen    = 64
)

// SMB1 command codes this dissector handles.
const (
	cmd1Delete          = 0x06
	cmd1OpenAndx        = 0x2d
	cmd1CreateAndx      = 0xa2
	cmd1TreeConnectAndx = 0x75
	cmd1SetupAndx       = 0x73
)

// SMB2 command codes this dissector handles.
const (
	cmd2TreeConnect = 0x0003
	cmd2Create      = 0x0005
)

// smb1Signature and smb2Signature are the classifier patterns: a NetBIOS session message
// (type 0x00) whose payload begins with either SMB dialect's protocol
// id. Matching on the 4-byte NetBIOS header alone (type + top length
// byte 0x00, since session frames are always < 16MB) would be too
// broad, so the trigger instead anchors on the SMB signature at offset
// 4, which classify.RegisterContent supports via a non-zero offset.
var (
	smb1Signature = []byte{0xff, 'S', 'M', 'B'}
	smb2Signature = []byte{0xfe, 'S', 'M', 'B'}
)

type contextKey struct{}

// dirState is one direction's NetBIOS-frame coalescing buffer.
type dirState struct {
	buf []byte
}

// state is the per-session userData the dissector table stores.
type state struct {
	dirs [2]*dirState
}

// Register wires the NetBIOS+SMB classifier triggers into reg.
func Register(reg *classify.Registry, tbl func(s session.Session) *dissect.Table) {
	attach := func(s session.Session, data []byte, which session.Direction, userData interface{}) {
		Attach(tbl(s), s)
	}
	reg.RegisterContent("smb1", netbiosHeaderLen, smb1Signature, attach, nil)
	reg.RegisterContent("smb2", netbiosHeaderLen, smb2Signature, attach, nil)
	reg.RegisterPort("smb-port", 445, classify.PortSrc|classify.PortDst, attach, nil)
}

// Attach registers this session's SMB parser slot, idempotently.
func Attach(t *dissect.Table, s session.Session) *state {
	if v, ok := s.Get(contextKey{}); ok {
		return v.(*state)
	}
	st := &state{dirs: [2]*dirState{{}, {}}}
	s.Set(contextKey{}, st)
	t.Register(s, func(s session.Session, userData interface{}, data []byte, which session.Direction) {
		feed(t, s, userData.(*state), which, data)
	}, st, func(s session.Session, userData interface{}) {
		s.Delete(contextKey{})
	}, nil)
	return st
}

// feed accumulates chunk into which's coalescing buffer and parses
// every complete NetBIOS-framed message it now contains. If a frame's
// announced length would overflow MaxBuffer, the parser detaches and
// the rest of the session's dissectors carry on.
func feed(t *dissect.Table, s session.Session, st *state, which session.Direction, chunk []byte) {
	d := st.dirs[which]
	d.buf = append(d.buf, chunk...)

	for {
		hb := bsb.New(d.buf)
		hb.ImportU8()
		frameLen := int(hb.ImportU24())
		if hb.IsError() {
			return
		}
		total := netbiosHeaderLen + frameLen
		if total > MaxBuffer {
			logger.Warn().Str("session", s.ID()).Int("len", total).Msg("smb frame exceeds MaxBuffer, detaching")
			t.Unregister(s, st)
			return
		}
		if len(d.buf) < total {
			return
		}
		parseMessage(s, d.buf[netbiosHeaderLen:total])
		d.buf = d.buf[total:]
	}
}

func parseMessage(s session.Session, msg []byte) {
	if len(msg) < 4 {
		return
	}
	switch {
	case msg[0] == 0xff && msg[1] == 'S' && msg[2] == 'M' && msg[3] == 'B':
		s.AddTag(TagProtocolSMB)
		s.AddTag(TagSMBv1)
		parseSMB1(s, msg)
	case msg[0] == 0xfe && msg[1] == 'S' && msg[2] == 'M' && msg[3] == 'B':
		s.AddTag(TagProtocolSMB)
		s.AddTag(TagSMBv2)
		parseSMB2(s, msg)
	}
}

func parseSMB1(s session.Session, msg []byte) {
	h := bsb.New(msg)
	h.ImportPtr(4)
	command := h.ImportU8()
	h.ImportPtr(5)
	flags2 := h.LImportU16()
	h.ImportPtr(smb1HeaderLen - 12)
	if h.IsError() {
		return
	}
	unicode := flags2&0x8000 != 0

	params, data, ok := smb1Body(h.WorkPtr())
	if !ok {
		return
	}

	switch command {
	case cmd1Delete, cmd1OpenAndx, cmd1CreateAndx:
		if fn, ok := smb1BufferString(data, unicode); ok {
			s.AddString(FieldSMBFn, fn, true)
		}
	case cmd1TreeConnectAndx:
		if path, ok := smb1BufferString(data, unicode); ok {
			s.AddString(FieldSMBShare, path, true)
		}
	case cmd1SetupAndx:
		if auth, ok := findNTLMAuthenticate(params); ok {
			recordNTLM(s, auth)
		} else if auth, ok := findNTLMAuthenticate(data); ok {
			recordNTLM(s, auth)
		}
	}
}

func recordNTLM(s session.Session, auth ntlmAuthenticate) {
	if auth.Domain != "" {
		s.AddString(FieldSMBDomain, auth.Domain, true)
	}
	if auth.User != "" {
		s.AddString(FieldSMBUser, auth.User, true)
	}
	if auth.Workstation != "" {
		s.AddString(FieldSMBHost, auth.Workstation, true)
	}
}

// smb1Body splits an SMB1 command body (everything after the 32-byte
// header) into its WordCount-prefixed parameter words and its
// ByteCount-prefixed data section.
func smb1Body(body []byte) (params, data []byte, ok bool) {
	b := bsb.New(body)
	wordCount := int(b.ImportU8())
	params = b.ImportPtr(wordCount * 2)
	byteCount := int(b.LImportU16())
	if b.IsError() {
		return nil, nil, false
	}
	if byteCount > b.Remaining() {
		byteCount = b.Remaining()
	}
	data = b.ImportPtr(byteCount)
	return params, data, true
}

// smb1BufferString decodes the first BUFFER-format-prefixed string in
// data: a 1-byte format marker (conventionally 0x04) followed by a
// NUL-terminated OEM or UCS-2LE string, per the command's unicode flag.
func smb1BufferString(data []byte, unicode bool) (string, bool) {
	if len(data) < 1 {
		return "", false
	}
	str := data[1:]
	if unicode {
		return ucs2leToUTF8UntilNull(str), true
	}
	end := len(str)
	for i, c := range str {
		if c == 0 {
			end = i
			break
		}
	}
	return string(str[:end]), true
}

func parseSMB2(s session.Session, msg []byte) {
	h := bsb.New(msg)
	h.ImportPtr(12)
	command := h.LImportU16()
	h.ImportPtr(smb2HeaderLen - 14)
	if h.IsError() {
		return
	}
	body := bsb.New(h.WorkPtr())

	switch command {
	case cmd2TreeConnect:
		body.ImportPtr(4)
		pathOffset := int(body.LImportU16())
		pathLen := int(body.LImportU16())
		if body.IsError() || pathLen == 0 {
			return
		}
		if path, ok := smb2String(msg, pathOffset, pathLen); ok {
			s.AddString(FieldSMBShare, path, true)
		}

	case cmd2Create:
		body.ImportPtr(44)
		nameOffset := int(body.LImportU16())
		nameLen := int(body.LImportU16())
		if body.IsError() || nameLen == 0 {
			return
		}
		if name, ok := smb2String(msg, nameOffset, nameLen); ok {
			s.AddString(FieldSMBFn, name, true)
		}
	}
}

// smb2String reads a UCS-2LE string addressed by a header-relative
// (offset, length) pair, the encoding SMB2 uses for every variable
// field.
func smb2String(msg []byte, offset, length int) (string, bool) {
	b := bsb.New(msg)
	b.ImportPtr(offset)
	raw := b.ImportPtr(length)
	if b.IsError() {
		return "", false
	}
	return ucs2leToUTF8(raw), true
}
