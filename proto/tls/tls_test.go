package tls

import (
	"testing"

	"github.com/arkime-go/sesscore/dissect"
	"github.com/arkime-go/sesscore/session"
	"github.com/stretchr/testify/require"
)

func u24(n int) []byte { return []byte{byte(n >> 16), byte(n >> 8), byte(n)} }

func buildCertificateRecord(ders ...[]byte) []byte {
	var chain []byte
	for _, der := range ders {
		chain = append(chain, u24(len(der))...)
		chain = append(chain, der...)
	}
	certMsg := append(u24(len(chain)), chain...)

	hsHeader := append([]byte{handshakeCertificate}, u24(len(certMsg))...)
	hsBody := append(hsHeader, certMsg...)

	recHeader := []byte{contentTypeHandshake, 0x03, 0x03, byte(len(hsBody) >> 8), byte(len(hsBody))}
	return append(recHeader, hsBody...)
}

func TestParseEndToEndServerCertificate(t *testing.T) {
	der := buildCertDER("Test CA", "www.example.com", "example.com", "www.example.com")
	record := buildCertificateRecord(der)

	s := session.NewFake(session.TCP, 443, 54321)
	Parse(s, record, session.ToInitiator)

	require.True(t, s.HasTag(TagProtocolTLS))
	require.True(t, s.HasString(FieldCertSubjectCN, "www.example.com"))
	require.True(t, s.HasString(FieldCertAltName, "example.com"))
	require.True(t, s.HasString(FieldCertAltName, "www.example.com"))
	require.True(t, s.HasString(FieldCertIssuerCN, "test ca"))
}

func TestParseMultipleCertsChain(t *testing.T) {
	leaf := buildCertDER("Intermediate CA", "leaf.example.com", "leaf.example.com")
	intermediate := buildCertDER("Root CA", "Intermediate CA")
	record := buildCertificateRecord(leaf, intermediate)

	s := session.NewFake(session.TCP, 443, 1234)
	Parse(s, record, session.ToInitiator)

	require.True(t, s.HasString(FieldCertSubjectCN, "leaf.example.com"))
	require.True(t, s.HasString(FieldCertSubjectCN, "intermediate ca"))
}

func TestParseTruncatedRecordDoesNotPanic(t *testing.T) {
	s := session.NewFake(session.TCP, 443, 1234)
	require.NotPanics(t, func() {
		Parse(s, []byte{contentTypeHandshake, 0x03, 0x03, 0x00, 0x10, 0x0b, 0x00}, session.ToInitiator)
	})
}

func TestParseNonHandshakeRecordIgnored(t *testing.T) {
	s := session.NewFake(session.TCP, 443, 1234)
	appData := []byte{0x17, 0x03, 0x03, 0x00, 0x03, 0xaa, 0xbb, 0xcc}
	Parse(s, appData, session.ToInitiator)
	require.True(t, s.HasTag(TagProtocolTLS))
	require.False(t, s.HasString(FieldCertSubjectCN, "anything"))
}

func TestAttachRegistersParserAndDispatchesViaTable(t *testing.T) {
	var tbl dissect.Table
	s := session.NewFake(session.TCP, 443, 1234)
	st := Attach(&tbl, s)
	require.NotNil(t, st.certs)
	require.Equal(t, 1, tbl.Len())

	der := buildCertDER("Test CA", "www.example.com", "example.com")
	record := buildCertificateRecord(der)
	tbl.Dispatch(s, record, session.ToInitiator)

	require.True(t, s.HasString(FieldCertSubjectCN, "www.example.com"))
}
