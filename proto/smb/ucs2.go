package smb

import "unicode/utf16"

// ucs2leToUTF8 decodes a UCS-2LE (2-byte-per-unit little endian) byte
// slice into a UTF-8 string. A trailing odd byte, if any, is dropped.
func ucs2leToUTF8(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])|uint16(b[i+1])<<8)
	}
	return string(utf16.Decode(units))
}

// ucs2leToUTF8UntilNull decodes a NUL-terminated UCS-2LE string,
// stopping at the first zero code unit.
func ucs2leToUTF8UntilNull(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u := uint16(b[i]) | uint16(b[i+1])<<8
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

