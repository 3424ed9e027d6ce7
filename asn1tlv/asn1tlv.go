// Package asn1tlv implements a tolerant DER tag/length/value reader
// over a bsb.Buffer, sufficient for walking X.509 certificates out of
// a TLS handshake without a full ASN.1 schema decoder.
package asn1tlv

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arkime-go/sesscore/bsb"
)

// Tag values used by the certificate dissector.
const (
	TagInteger         = 2
	TagOctetString     = 4
	TagObjectID        = 6
	TagUTF8String      = 12
	TagSequence        = 16
	TagSet             = 17
	TagPrintableString = 19
	TagTeletexString   = 20
	TagIA5String       = 22
	TagUTCTime         = 23
	TagGeneralizedTime = 24
)

// maxLengthBytes is the longest length-of-length form this reader
// accepts; longer DER length forms are treated as malformed.
const maxLengthBytes = 4

// TLV is a decoded tag/length/value triple.
type TLV struct {
	Constructed bool
	Tag         int
	Value       []byte
	Len         int
}

// GetTLV reads one tag/length/value triple from b. On any malformed
// input it returns ok=false and leaves b in whatever state the
// underlying bsb operations left it.
//
// If the declared length exceeds the buffer's remaining
// bytes, the length is silently clamped to remaining rather than
// rejected -- truncated captures are expected and this tolerance is
// what lets the TLS certificate walk survive them.
func GetTLV(b *bsb.Buffer) (TLV, bool) {
	var t TLV
	if b.Remaining() < 2 {
		return TLV{}, false
	}

	first := b.ImportU8()
	t.Constructed = (first>>5)&0x1 == 1

	if first&0x1f == 0x1f {
		tag := 0
		for b.Remaining() > 0 {
			ch := b.ImportU8()
			tag = (tag << 7) | int(ch&0x7f)
			if ch&0x80 == 0 {
				break
			}
		}
		t.Tag = tag
	} else {
		t.Tag = int(first & 0x1f)
	}

	lenByte := b.ImportU8()
	if b.IsError() || lenByte == 0x80 {
		// 0x80 is the indefinite-length form, unsupported.
		return TLV{}, false
	}

	var length int
	if lenByte&0x80 != 0 {
		n := int(lenByte & 0x7f)
		if n > maxLengthBytes {
			return TLV{}, false
		}
		for n > 0 && b.Remaining() > 0 {
			length = (length << 8) | int(b.ImportU8())
			n--
		}
	} else {
		length = int(lenByte)
	}

	if length < 0 {
		return TLV{}, false
	}
	if length > b.Remaining() {
		length = b.Remaining()
	}
	t.Len = length

	value := b.ImportPtr(length)
	if b.IsError() {
		return TLV{}, false
	}
	t.Value = value
	return t, true
}

// GetSequence reads up to max TLVs from data. If wrapper is true, the
// data is first expected to be a single constructed SEQUENCE whose
// value is then walked instead. Iteration stops at the first failed
// GetTLV (including end of input), returning however many were read.
func GetSequence(data []byte, max int, wrapper bool) []TLV {
	b := bsb.New(data)
	if wrapper {
		outer, ok := GetTLV(b)
		if !ok || outer.Tag != TagSequence || !outer.Constructed {
			return nil
		}
		b = bsb.New(outer.Value)
	}

	out := make([]TLV, 0, max)
	for len(out) < max {
		tlv, ok := GetTLV(b)
		if !ok {
			break
		}
		out = append(out, tlv)
	}
	return out
}

// DecodeOID decodes a DER-encoded OBJECT IDENTIFIER value into its
// dotted string form, e.g. "2.5.4.3".
func DecodeOID(oid []byte) string {
	if len(oid) == 0 {
		return ""
	}

	var parts []string
	value := 0
	first := true

	for _, b := range oid {
		value = (value << 7) | int(b&0x7f)
		if b&0x80 != 0 {
			continue
		}
		if first {
			first = false
			if value > 40 {
				// two values were packed into the first subidentifier
				parts = append(parts, strconv.Itoa(value/40), strconv.Itoa(value%40))
			} else {
				parts = append(parts, strconv.Itoa(value))
			}
		} else {
			parts = append(parts, strconv.Itoa(value))
		}
		value = 0
	}
	return strings.Join(parts, ".")
}

// ParseASN1Time parses a UTCTime (tag 23) or GeneralizedTime (tag 24)
// value into a Unix timestamp. Pre-epoch results are clamped to 0; the
// caller is expected to tag the session "cert:pre-epoch-time" in that
// case (preClamped reports whether that happened).
func ParseASN1Time(tag int, value []byte) (unixSeconds int64, preClamped bool, err error) {
	s := string(value)
	var layout string
	switch tag {
	case TagUTCTime:
		layout = "060102150405"
	case TagGeneralizedTime:
		layout = "20060102150405"
	default:
		return 0, false, fmt.Errorf("asn1tlv: tag %d is not a time type", tag)
	}

	// Strip an optional fractional-seconds component before the
	// offset/Z, since neither layout form above models it directly.
	body, offset := splitTimeOffset(s)
	fracIdx := strings.IndexByte(body, '.')
	if fracIdx >= 0 {
		body = body[:fracIdx]
	}

	t, perr := time.Parse(layout, body)
	if perr != nil {
		return 0, false, perr
	}
	// UTCTime's two-digit year follows the X.509 convention (50-99 are
	// 19xx, 00-49 are 20xx); Go's "06" layout pivots at 69 instead.
	if tag == TagUTCTime && t.Year() >= 2050 {
		t = t.AddDate(-100, 0, 0)
	}

	if offset != "" && offset != "Z" {
		sign := 1
		if offset[0] == '-' {
			sign = -1
		}
		digits := offset[1:]
		if len(digits) != 4 {
			return 0, false, fmt.Errorf("asn1tlv: bad offset %q", offset)
		}
		hh, _ := strconv.Atoi(digits[0:2])
		mm, _ := strconv.Atoi(digits[2:4])
		delta := time.Duration(sign) * (time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
		t = t.Add(-delta)
	}

	unix := t.Unix()
	if unix < 0 {
		return 0, true, nil
	}
	return unix, false, nil
}

// splitTimeOffset splits s into (body, offset) where offset is either
// "Z" or a "+HHMM"/"-HHMM" suffix, possibly empty.
func splitTimeOffset(s string) (string, string) {
	if strings.HasSuffix(s, "Z") {
		return s[:len(s)-1], "Z"
	}
	for _, sign := range []byte{'+', '-'} {
		if idx := strings.LastIndexByte(s, sign); idx > 0 {
			return s[:idx], s[idx:]
		}
	}
	return s, ""
}
