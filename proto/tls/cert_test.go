package tls

import (
	"testing"

	"github.com/arkime-go/sesscore/asn1tlv"
	"github.com/stretchr/testify/require"
)

func encodeTLV(tag int, constructed bool, value []byte) []byte {
	first := byte(tag)
	if constructed {
		first |= 0x20
	}
	out := []byte{first}
	if len(value) < 0x80 {
		out = append(out, byte(len(value)))
	} else {
		out = append(out, 0x82, byte(len(value)>>8), byte(len(value)))
	}
	return append(out, value...)
}

var (
	oidCommonNameDER = []byte{0x55, 0x04, 0x03}   // 2.5.4.3
	oidSANDER        = []byte{0x55, 0x1d, 0x11}   // 2.5.29.17
)

func nameSeqTLV(cn string) []byte {
	attr := append(append([]byte{}, encodeTLV(asn1tlv.TagObjectID, false, oidCommonNameDER)...),
		encodeTLV(asn1tlv.TagPrintableString, false, []byte(cn))...)
	rdn := encodeTLV(asn1tlv.TagSet, true, encodeTLV(asn1tlv.TagSequence, true, attr))
	return encodeTLV(asn1tlv.TagSequence, true, rdn)
}

func sanExtensionField(names ...string) []byte {
	var generalNames []byte
	for _, n := range names {
		generalNames = append(generalNames, encodeTLV(2, false, []byte(n))...)
	}
	altNamesSeq := encodeTLV(asn1tlv.TagSequence, true, generalNames)
	extnValue := encodeTLV(asn1tlv.TagOctetString, false, altNamesSeq)
	extension := encodeTLV(asn1tlv.TagSequence, true,
		append(append([]byte{}, encodeTLV(asn1tlv.TagObjectID, false, oidSANDER)...), extnValue...))
	extensionsSeq := encodeTLV(asn1tlv.TagSequence, true, extension)
	return encodeTLV(3, true, extensionsSeq)
}

// buildCertDER assembles a minimal DER certificate exercising every
// step processCertificate walks: serial, issuer/subject Name, and one
// SubjectAltName extension.
func buildCertDER(issuerCN, subjectCN string, sanNames ...string) []byte {
	serial := encodeTLV(asn1tlv.TagInteger, false, []byte{0x01})
	sigAlg := encodeTLV(asn1tlv.TagSequence, true, []byte{0x05, 0x00})
	issuer := nameSeqTLV(issuerCN)
	validity := encodeTLV(asn1tlv.TagSequence, true, []byte{0x17, 0x00})
	subject := nameSeqTLV(subjectCN)
	spki := encodeTLV(asn1tlv.TagSequence, true, []byte{0x30, 0x00})

	var tbs []byte
	tbs = append(tbs, serial...)
	tbs = append(tbs, sigAlg...)
	tbs = append(tbs, issuer...)
	tbs = append(tbs, validity...)
	tbs = append(tbs, subject...)
	tbs = append(tbs, spki...)
	if len(sanNames) > 0 {
		tbs = append(tbs, sanExtensionField(sanNames...)...)
	}

	tbsCert := encodeTLV(asn1tlv.TagSequence, true, tbs)
	return encodeTLV(asn1tlv.TagSequence, true, tbsCert)
}

func TestProcessCertificateExtractsNamesAndSAN(t *testing.T) {
	der := buildCertDER("Test CA", "www.example.com", "example.com", "www.example.com")

	cert, err := processCertificate(der)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, cert.Serial)
	require.Equal(t, []string{"test ca"}, cert.Issuer.CommonNames)
	require.Equal(t, []string{"www.example.com"}, cert.Subject.CommonNames)
	require.Equal(t, []string{"example.com", "www.example.com"}, cert.AltNames)
}

func TestProcessCertificateNoExtensions(t *testing.T) {
	der := buildCertDER("Test CA", "no-san.example.com")
	cert, err := processCertificate(der)
	require.NoError(t, err)
	require.Equal(t, []string{"no-san.example.com"}, cert.Subject.CommonNames)
	require.Empty(t, cert.AltNames)
}

func TestProcessCertificateTruncatedIsError(t *testing.T) {
	_, err := processCertificate([]byte{0x30, 0x05, 0x02, 0x01, 0x01})
	require.Error(t, err)
}

func TestCertSetDedupStructural(t *testing.T) {
	der := buildCertDER("Test CA", "www.example.com", "example.com")
	c1, err := processCertificate(der)
	require.NoError(t, err)
	c2, err := processCertificate(der)
	require.NoError(t, err)

	cs := NewCertSet()
	require.True(t, cs.Add(c1))
	require.False(t, cs.Add(c2))
	require.Equal(t, 1, cs.Len())
}

func TestDNAddCommonNameDedups(t *testing.T) {
	var dn DN
	dn.addCommonName("a")
	dn.addCommonName("a")
	dn.addCommonName("b")
	require.Equal(t, []string{"a", "b"}, dn.CommonNames)
}
