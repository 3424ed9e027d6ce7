package asn1tlv

import (
	"strconv"
	"strings"
	"testing"

	"github.com/arkime-go/sesscore/bsb"
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

func TestGetTLVBasic(t *testing.T) {
	data := encodeTLV(TagInteger, false, []byte{0x01, 0x02, 0x03})
	b := bsb.New(data)
	tlv, ok := GetTLV(b)
	require.True(t, ok)
	require.Equal(t, TagInteger, tlv.Tag)
	require.False(t, tlv.Constructed)
	require.Equal(t, []byte{0x01, 0x02, 0x03}, tlv.Value)
}

func TestGetTLVConsumesHeaderPlusLen(t *testing.T) {
	value := []byte("hello")
	data := encodeTLV(TagIA5String, false, value)
	b := bsb.New(data)
	before := b.Remaining()
	tlv, ok := GetTLV(b)
	require.True(t, ok)
	consumed := before - b.Remaining()
	require.Equal(t, len(data), consumed)
	require.LessOrEqual(t, tlv.Len, len(data))
}

func TestGetTLVClampsTruncatedLength(t *testing.T) {
	// Declare length 100 but only provide 3 bytes of value.
	data := []byte{byte(TagOctetString), 100, 'a', 'b', 'c'}
	b := bsb.New(data)
	tlv, ok := GetTLV(b)
	require.True(t, ok)
	require.Equal(t, 3, tlv.Len)
	require.Equal(t, []byte("abc"), tlv.Value)
}

func TestGetTLVRejectsTooManyLengthBytes(t *testing.T) {
	data := []byte{byte(TagInteger), 0x85, 1, 2, 3, 4, 5}
	b := bsb.New(data)
	_, ok := GetTLV(b)
	require.False(t, ok)
}

func TestGetTLVRejectsIndefiniteLength(t *testing.T) {
	data := []byte{byte(TagSequence) | 0x20, 0x80}
	b := bsb.New(data)
	_, ok := GetTLV(b)
	require.False(t, ok)
}

func TestGetSequenceWrapper(t *testing.T) {
	inner := append(encodeTLV(TagInteger, false, []byte{1}), encodeTLV(TagInteger, false, []byte{2})...)
	outer := encodeTLV(TagSequence, true, inner)
	seq := GetSequence(outer, 10, true)
	require.Len(t, seq, 2)
}

func TestGetSequenceStopsOnFirstFailure(t *testing.T) {
	good := encodeTLV(TagInteger, false, []byte{1})
	bad := []byte{byte(TagInteger), 0x85, 1, 2} // bad length-of-length, will fail
	seq := GetSequence(append(good, bad...), 10, false)
	require.Len(t, seq, 1)
}

func TestDecodeOIDCommonName(t *testing.T) {
	// 2.5.4.3 commonName
	oid := []byte{0x55, 0x04, 0x03}
	got := DecodeOID(oid)
	require.Equal(t, "2.5.4.3", got)
}

func TestDecodeOIDFirstComponentBounded(t *testing.T) {
	cases := [][]byte{
		{0x55, 0x04, 0x03},
		{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d},
		{0x29},
	}
	for _, oid := range cases {
		got := DecodeOID(oid)
		if got == "" {
			continue
		}
		first, err := strconv.Atoi(strings.SplitN(got, ".", 2)[0])
		require.NoError(t, err)
		require.LessOrEqual(t, first, 2)
	}
}

func TestParseASN1TimeUTC(t *testing.T) {
	// UTCTime: YYMMDDHHMMSSZ
	unix, clamped, err := ParseASN1Time(TagUTCTime, []byte("230615120000Z"))
	require.NoError(t, err)
	require.False(t, clamped)
	require.Greater(t, unix, int64(0))
}

func TestParseASN1TimePreEpochClamps(t *testing.T) {
	unix, clamped, err := ParseASN1Time(TagUTCTime, []byte("600101000000Z"))
	require.NoError(t, err)
	require.True(t, clamped)
	require.Equal(t, int64(0), unix)
}

func TestParseASN1TimeGeneralizedWithOffset(t *testing.T) {
	unix, _, err := ParseASN1Time(TagGeneralizedTime, []byte("20230615120000+0100"))
	require.NoError(t, err)
	require.Greater(t, unix, int64(0))
}
