package dns

import "github.com/arkime-go/sesscore/bsb"

// maxNameBuf is the hard cap on an accumulated (possibly escaped) name.
const maxNameBuf = 8 * 1024

// maxPointerHops bounds message-compression pointer chasing so a
// malicious or corrupt message can never loop forever.
const maxPointerHops = 6

// escapeLabelByte renders one label byte the way tcpdump/BIND-style
// name dumps do: non-printable control characters as "^X" (c XORed
// with 0x40), and high-bit-set bytes as an "M-" prefix around the
// escaped low-7-bit byte.
func escapeLabelByte(c byte) string {
	if c&0x80 != 0 {
		return "M-" + escapeLabelByte(c&0x7f)
	}
	if c < 0x20 || c == 0x7f {
		return "^" + string(rune(c^0x40))
	}
	return string(rune(c))
}

// decodeName decompresses a domain name starting at offset within the
// full message msg: length-prefixed labels, with
// message-relative compression pointers (top two bits set) chased up
// to maxPointerHops times. It returns the decoded (unescaped-case,
// not-yet-lowercased) name and the offset in msg immediately following
// the name as it appeared at the *call site* (i.e. after the first
// pointer if one was followed, matching the caller's need to keep
// reading sibling fields after a name that may itself jump elsewhere).
func decodeName(msg []byte, offset int) (string, int, bool) {
	var nameBuf [maxNameBuf]byte
	nb := bsb.New(nameBuf[:])
	pos := offset
	endPos := -1 // offset to report to the caller once we've followed a pointer
	hops := 0

	for {
		if pos < 0 || pos >= len(msg) {
			return "", 0, false
		}
		b := msg[pos]

		if b&0xc0 == 0xc0 {
			if pos+1 >= len(msg) {
				return "", 0, false
			}
			if endPos < 0 {
				endPos = pos + 2
			}
			hops++
			if hops > maxPointerHops {
				return "", 0, false
			}
			ptr := (int(b&0x3f) << 8) | int(msg[pos+1])
			pos = ptr
			continue
		}

		if b&0xc0 != 0 {
			// Reserved label-length forms (0x40/0x80 prefix bits) are
			// not length-prefixed labels or pointers; malformed.
			return "", 0, false
		}

		labelLen := int(b)
		pos++
		if labelLen == 0 {
			break
		}
		if pos+labelLen > len(msg) {
			return "", 0, false
		}
		if nb.Length() > 0 {
			nb.ExportPtrSome([]byte{'.'})
		}
		for _, c := range msg[pos : pos+labelLen] {
			nb.ExportPtrSome([]byte(escapeLabelByte(c)))
		}
		pos += labelLen
	}

	if endPos < 0 {
		endPos = pos
	}
	return string(nameBuf[:nb.Length()]), endPos, true
}
