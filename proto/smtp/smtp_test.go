package smtp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkime-go/sesscore/session"
)

func feedAll(s session.Session, p *Parser, which session.Direction, dialog string, onTLS TLSHandoff) {
	Feed(s, p, which, []byte(dialog), onTLS)
}

func TestEnvelopeAndBase64AttachmentMD5(t *testing.T) {
	s := session.NewFake(session.TCP, 54321, 25)
	p := NewParser()

	dialog := "MAIL FROM:<a@x>\r\n" +
		"RCPT TO:<b@y>\r\n" +
		"DATA\r\n" +
		"Subject: hi\r\n" +
		"Content-Type: multipart/mixed; boundary=\"BB\"\r\n" +
		"\r\n" +
		"--BB\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"aGVsbG8=\r\n" +
		"--BB--\r\n" +
		".\r\n"
	feedAll(s, p, session.ToResponder, dialog, nil)

	require.True(t, s.HasString(FieldEmailSrc, "a@x"))
	require.True(t, s.HasString(FieldEmailDst, "b@y"))
	// md5("hello")
	require.True(t, s.HasString(FieldEmailPartMD5, "5d41402abc4b2a76b9719d911017c592"))
}

func TestEnvelopeCaseInsensitiveAndAngleFree(t *testing.T) {
	s := session.NewFake(session.TCP, 1, 25)
	p := NewParser()
	feedAll(s, p, session.ToResponder, "mail from: someone@example.com\r\n", nil)
	require.True(t, s.HasString(FieldEmailSrc, "someone@example.com"))
}

func TestDataHeaderFolding(t *testing.T) {
	s := session.NewFake(session.TCP, 1, 25)
	p := NewParser()

	dialog := "DATA\r\n" +
		"Content-Type: multipart/mixed;\r\n" +
		"\tboundary=\"XYZ\"\r\n" +
		"\r\n" +
		"--XYZ\r\n"
	feedAll(s, p, session.ToResponder, dialog, nil)

	// the folded continuation must have reached the boundary list:
	// after the blank line the state machine is in DATA and the
	// boundary line must match, moving this direction to MIME.
	require.Equal(t, StateMime, p.dirs[session.ToResponder].state)
}

func TestHeaderWithoutColonDropped(t *testing.T) {
	s := session.NewFake(session.TCP, 1, 25)
	p := NewParser()

	feedAll(s, p, session.ToResponder, "DATA\r\nnot a header line\r\n", nil)
	require.Equal(t, StateDataHeader, p.dirs[session.ToResponder].state)
	require.Empty(t, s.Strings)
}

func TestLoneDotReturnsToCommand(t *testing.T) {
	s := session.NewFake(session.TCP, 1, 25)
	p := NewParser()

	feedAll(s, p, session.ToResponder, "DATA\r\n\r\nbody text\r\n.\r\n", nil)
	require.Equal(t, StateCmd, p.dirs[session.ToResponder].state)
}

func TestBareCRWithoutLFReprocesses(t *testing.T) {
	s := session.NewFake(session.TCP, 1, 25)
	p := NewParser()

	// CR not followed by LF: the machine falls back to the base state
	// and keeps accumulating, so the corrupted line dispatches as one.
	feedAll(s, p, session.ToResponder, "MAIL FROM:<a@x\rX>\r\n", nil)
	require.False(t, s.HasString(FieldEmailSrc, "a@x"))

	feedAll(s, p, session.ToResponder, "MAIL FROM:<c@z>\r\n", nil)
	require.True(t, s.HasString(FieldEmailSrc, "c@z"))
}

func TestStartTLSHandsOffOtherDirection(t *testing.T) {
	s := session.NewFake(session.TCP, 1, 25)
	p := NewParser()

	var handedOff []byte
	onTLS := func(s session.Session, data []byte, which session.Direction) {
		handedOff = append([]byte(nil), data...)
	}

	// client asks for STARTTLS; the server's 220 acknowledgement is
	// the other direction's TLS_OK line, after which its stream is
	// handed to the TLS dissector.
	feedAll(s, p, session.ToResponder, "STARTTLS\r\n", onTLS)
	require.Equal(t, StateIgnore, p.dirs[session.ToResponder].state)
	require.Equal(t, StateTLSOK, p.dirs[session.ToInitiator].state)

	feedAll(s, p, session.ToInitiator, "220 ready\r\n\x16\x03\x03", onTLS)
	require.Equal(t, []byte{0x16, 0x03, 0x03}, handedOff)
}

func TestBoundaryAcrossChunks(t *testing.T) {
	s := session.NewFake(session.TCP, 1, 25)
	p := NewParser()

	chunks := []string{
		"DATA\r\nContent-Type: multipart/mixed; bound",
		"ary=BB\r\n\r\n--BB\r\nContent-Transfer-Encoding: ba",
		"se64\r\n\r\naGVs\r\nbG8=\r\n--BB--\r\n.\r\n",
	}
	for _, c := range chunks {
		feedAll(s, p, session.ToResponder, c, nil)
	}
	require.True(t, s.HasString(FieldEmailPartMD5, "5d41402abc4b2a76b9719d911017c592"))
}

func TestCCToFromHeadersParsed(t *testing.T) {
	s := session.NewFake(session.TCP, 1, 25)
	p := NewParser()

	dialog := "DATA\r\n" +
		"From: Alice <ALICE@Example.COM>\r\n" +
		"To: bob@example.net\r\n" +
		"Cc: carol@example.org\r\n" +
		"Message-ID: <abc123@mail>\r\n" +
		"\r\n.\r\n"
	feedAll(s, p, session.ToResponder, dialog, nil)

	require.True(t, s.HasString(FieldEmailFrom, "alice@example.com"))
	require.True(t, s.HasString(FieldEmailTo, "bob@example.net"))
	require.True(t, s.HasString(FieldEmailCC, "carol@example.org"))
	require.True(t, s.HasString(FieldEmailMessageID, "abc123@mail"))
}

func TestReceivedHeaderIPExtraction(t *testing.T) {
	s := session.NewFake(session.TCP, 1, 25)
	p := NewParser()

	dialog := "DATA\r\n" +
		"Received: from relay.example.com [192.0.2.7] by mx\r\n" +
		"\r\n.\r\n"
	feedAll(s, p, session.ToResponder, dialog, nil)
	require.True(t, s.HasString(FieldEmailIP, "192.0.2.7"))
}

func TestBadXFFValueTagged(t *testing.T) {
	s := session.NewFake(session.TCP, 1, 25)
	p := NewParser()

	dialog := "DATA\r\n" +
		"X-Forwarded-For: not-an-ip\r\n" +
		"\r\n.\r\n"
	feedAll(s, p, session.ToResponder, dialog, nil)
	require.True(t, s.HasTag(TagBadXFF))
}
