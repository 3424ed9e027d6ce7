package classify

import (
	"bytes"
	"strings"

	"github.com/arkime-go/sesscore/session"
)

// FieldSSHVersion records the SSH banner line, lowercased, up to (not
// including) the terminating CR/LF.
const FieldSSHVersion session.FieldID = 9000

// Protocol tags set by the banner classifiers below.
const (
	TagProtocolSSH        = "protocol:ssh"
	TagProtocolFTP        = "protocol:ftp"
	TagProtocolSMTP       = "protocol:smtp"
	TagProtocolLMTP       = "protocol:lmtp"
	TagProtocolPOP3       = "protocol:pop3"
	TagProtocolIRC        = "protocol:irc"
	TagProtocolBitTorrent = "protocol:bittorrent"
)

// RegisterWellKnown wires the tag-only banner classifiers into a TCP
// registry: SSH, the 220 FTP/SMTP/LMTP greeting, POP3, IRC, and the
// BitTorrent handshake. None of these attaches a parser slot; they
// only tag the session (and, for SSH, record the banner line).
func RegisterWellKnown(r *Registry) {
	r.RegisterContent("ssh", 0, []byte("SSH"), sshBanner, nil)
	r.RegisterContent("ftp-smtp-220", 0, []byte("220 "), banner220, nil)
	r.RegisterContent("pop3", 0, []byte("+OK POP3 "), tagOnly(TagProtocolPOP3), nil)
	r.RegisterContent("irc-notice", 0, []byte(":"), ircServerNotice, nil)
	r.RegisterContent("irc-notice-auth", 0, []byte("NOTICE AUTH"), tagOnly(TagProtocolIRC), nil)
	r.RegisterContent("irc-nick", 0, []byte("NICK "), tagOnly(TagProtocolIRC), nil)
	r.RegisterContent("irc-pass", 0, []byte("PASS "), tagOnly(TagProtocolIRC), nil)
	r.RegisterContent("bittorrent", 0, []byte("\x13BitTorrent protocol"), tagOnly(TagProtocolBitTorrent), nil)
}

func tagOnly(tag string) Callback {
	return func(s session.Session, data []byte, which session.Direction, userData interface{}) {
		s.AddTag(tag)
	}
}

func sshBanner(s session.Session, data []byte, which session.Direction, userData interface{}) {
	s.AddTag(TagProtocolSSH)
	end := bytes.IndexAny(data, "\r\n")
	if end < 0 {
		end = len(data)
	}
	s.AddString(FieldSSHVersion, strings.ToLower(string(data[:end])), true)
}

// banner220 disambiguates the shared "220 " greeting: the remainder of
// the banner line names the mail protocol when it is one, otherwise
// the session is assumed FTP.
func banner220(s session.Session, data []byte, which session.Direction, userData interface{}) {
	line := data
	if end := bytes.IndexAny(line, "\r\n"); end >= 0 {
		line = line[:end]
	}
	switch {
	case bytes.Contains(line, []byte("LMTP")):
		s.AddTag(TagProtocolLMTP)
	case bytes.Contains(line, []byte("SMTP")):
		s.AddTag(TagProtocolSMTP)
	default:
		s.AddTag(TagProtocolFTP)
	}
}

// ircServerNotice matches the leading-colon server-prefix form only
// when the line also carries a NOTICE, so ordinary colon-leading
// payloads don't get tagged.
func ircServerNotice(s session.Session, data []byte, which session.Direction, userData interface{}) {
	end := bytes.IndexAny(data, "\r\n")
	if end < 0 {
		end = len(data)
	}
	if bytes.Contains(data[:end], []byte(" NOTICE ")) {
		s.AddTag(TagProtocolIRC)
	}
}
