package classify

import (
	"testing"

	"github.com/arkime-go/sesscore/session"
	"github.com/stretchr/testify/require"
)

func TestOffsetZeroLenOneIndexedByByte(t *testing.T) {
	r := NewRegistry(session.TCP)
	hit := false
	r.RegisterContent("ssh", 0, []byte{'S'}, func(s session.Session, data []byte, w session.Direction, ud interface{}) {
		hit = true
	}, nil)

	s := session.NewFake(session.TCP, 22, 5000)
	r.Classify(s, []byte("SSH-2.0-OpenSSH"), session.ToResponder, -1)
	require.True(t, hit)
}

func TestOffsetZeroLenTwoIndexedByTwoBytes(t *testing.T) {
	r := NewRegistry(session.TCP)
	var seen []byte
	r.RegisterContent("http-get", 0, []byte("GET /"), func(s session.Session, data []byte, w session.Direction, ud interface{}) {
		seen = data
	}, nil)

	s := session.NewFake(session.TCP, 80, 5000)
	r.Classify(s, []byte("GET /index.html HTTP/1.1\r\n"), session.ToResponder, -1)
	require.Equal(t, []byte("GET /index.html HTTP/1.1\r\n"), seen)
}

func TestOffsetZeroLenTwoRejectsNonMatch(t *testing.T) {
	r := NewRegistry(session.TCP)
	hit := false
	r.RegisterContent("http-get", 0, []byte("GET /"), func(s session.Session, data []byte, w session.Direction, ud interface{}) {
		hit = true
	}, nil)
	s := session.NewFake(session.TCP, 80, 5000)
	r.Classify(s, []byte("POST /index.html HTTP/1.1\r\n"), session.ToResponder, -1)
	require.False(t, hit)
}

func TestOffsetNonzeroUsesFallbackBucket(t *testing.T) {
	r := NewRegistry(session.TCP)
	hit := false
	r.RegisterContent("tls-handshake", 5, []byte{0x02}, func(s session.Session, data []byte, w session.Direction, ud interface{}) {
		hit = true
	}, nil)

	s := session.NewFake(session.TCP, 443, 5000)
	data := []byte{0x16, 0x03, 0x01, 0x00, 0x10, 0x02}
	r.Classify(s, data, session.ToResponder, -1)
	require.True(t, hit)
}

func TestMinLenPrecondition(t *testing.T) {
	r := NewRegistry(session.TCP)
	hit := false
	r.RegisterContent("tls-handshake", 5, []byte{0x02}, func(s session.Session, data []byte, w session.Direction, ud interface{}) {
		hit = true
	}, nil)
	s := session.NewFake(session.TCP, 443, 5000)
	// too short to reach offset 5
	r.Classify(s, []byte{0x16, 0x03, 0x01, 0x00}, session.ToResponder, -1)
	require.False(t, hit)
}

func TestPortMatch(t *testing.T) {
	r := NewRegistry(session.TCP)
	hit := false
	r.RegisterPort("dns-over-tcp", 53, PortDst, func(s session.Session, data []byte, w session.Direction, ud interface{}) {
		hit = true
	}, nil)

	s := session.NewFake(session.TCP, 12345, 53)
	r.Classify(s, []byte{0x00, 0x1c}, session.ToResponder, -1)
	require.True(t, hit)
}

func TestDuplicateRegistrationSuppressed(t *testing.T) {
	r := NewRegistry(session.TCP)
	count := 0
	cb := func(s session.Session, data []byte, w session.Direction, ud interface{}) { count++ }
	r.RegisterContent("x", 0, []byte{'A'}, cb, nil)
	r.RegisterContent("x", 0, []byte{'A'}, cb, nil)

	s := session.NewFake(session.TCP, 1, 2)
	r.Classify(s, []byte("AB"), session.ToResponder, -1)
	require.Equal(t, 1, count)
}

func TestDistinctUserDataNotSuppressed(t *testing.T) {
	r := NewRegistry(session.TCP)
	count := 0
	cb := func(s session.Session, data []byte, w session.Direction, ud interface{}) { count++ }
	r.RegisterContent("x", 0, []byte{'A'}, cb, "first")
	r.RegisterContent("x", 0, []byte{'A'}, cb, "second")

	s := session.NewFake(session.TCP, 1, 2)
	r.Classify(s, []byte("AB"), session.ToResponder, -1)
	require.Equal(t, 2, count)
}

func TestShortChunkIgnored(t *testing.T) {
	r := NewRegistry(session.TCP)
	hit := false
	r.RegisterContent("x", 0, []byte{'A'}, func(s session.Session, data []byte, w session.Direction, ud interface{}) {
		hit = true
	}, nil)
	s := session.NewFake(session.TCP, 1, 2)
	r.Classify(s, []byte("A"), session.ToResponder, -1)
	require.False(t, hit, "chunks shorter than 2 bytes must never dispatch")
}

func TestSCTPProtocolBucket(t *testing.T) {
	r := NewRegistry(session.SCTP)
	hit := false
	r.RegisterSCTPProtocol("m3ua", 3, func(s session.Session, data []byte, w session.Direction, ud interface{}) {
		hit = true
	}, nil)
	s := session.NewFake(session.SCTP, 1, 2)
	r.Classify(s, []byte{0x01, 0x02}, session.ToResponder, 3)
	require.True(t, hit)
}

func TestAlwaysMatchFallback(t *testing.T) {
	r := NewRegistry(session.TCP)
	count := 0
	r.RegisterContent("always", 0, nil, func(s session.Session, data []byte, w session.Direction, ud interface{}) {
		count++
	}, nil)
	s := session.NewFake(session.TCP, 1, 2)
	r.Classify(s, []byte("zz"), session.ToResponder, -1)
	require.Equal(t, 1, count)
}
