// Package bsb implements a byte-safe buffer: a bounds-checked cursor
// over a fixed byte range with a sticky error flag, used by every
// dissector in this module for big/little-endian import and export.
package bsb

// Buffer is a cursor over buf[0:size] with ptr tracking the current
// read/write position. Once isError is set no further operation
// advances ptr; callers are expected to check IsError after a group
// of operations rather than after each one.
type Buffer struct {
	buf      []byte
	pos      int
	end      int
	isError  bool
}

// New wraps src in a Buffer. A nil src puts the buffer directly into
// the error state, mirroring BSB_INIT's NULL-pointer handling.
func New(src []byte) *Buffer {
	b := &Buffer{}
	b.Init(src)
	return b
}

// Init (re)initializes b over src. Matches BSB_INIT: a nil slice sets
// the error state immediately.
func (b *Buffer) Init(src []byte) {
	b.buf = src
	b.pos = 0
	if src == nil {
		b.isError = true
		b.end = 0
		return
	}
	b.isError = false
	b.end = len(src)
}

// IsError reports whether the sticky error flag is set.
func (b *Buffer) IsError() bool { return b.isError }

// SetError sets the sticky error flag.
func (b *Buffer) SetError() { b.isError = true }

// Remaining returns the number of unread/unwritten bytes, 0 if in error.
func (b *Buffer) Remaining() int {
	if b.isError {
		return 0
	}
	return b.end - b.pos
}

// Length returns the number of bytes consumed so far (the cursor position).
func (b *Buffer) Length() int { return b.pos }

// Size returns the total size of the underlying region.
func (b *Buffer) Size() int { return b.end }

// WorkPtr returns the unconsumed tail of the buffer.
func (b *Buffer) WorkPtr() []byte {
	if b.isError || b.pos >= b.end {
		return nil
	}
	return b.buf[b.pos:b.end]
}

func (b *Buffer) fail() {
	b.isError = true
}

// ---- big-endian import ----

// ImportU8 reads one byte, advancing ptr. Returns 0 on failure.
func (b *Buffer) ImportU8() uint8 {
	if b.isError || b.pos+1 > b.end {
		b.fail()
		return 0
	}
	v := b.buf[b.pos]
	b.pos++
	return v
}

// ImportU16 reads a big-endian uint16.
func (b *Buffer) ImportU16() uint16 {
	if b.isError || b.pos+2 > b.end {
		b.fail()
		return 0
	}
	v := uint16(b.buf[b.pos])<<8 | uint16(b.buf[b.pos+1])
	b.pos += 2
	return v
}

// ImportU24 reads a big-endian 24-bit value into a uint32.
func (b *Buffer) ImportU24() uint32 {
	if b.isError || b.pos+3 > b.end {
		b.fail()
		return 0
	}
	v := uint32(b.buf[b.pos])<<16 | uint32(b.buf[b.pos+1])<<8 | uint32(b.buf[b.pos+2])
	b.pos += 3
	return v
}

// ImportU32 reads a big-endian uint32.
func (b *Buffer) ImportU32() uint32 {
	if b.isError || b.pos+4 > b.end {
		b.fail()
		return 0
	}
	v := uint32(b.buf[b.pos])<<24 | uint32(b.buf[b.pos+1])<<16 | uint32(b.buf[b.pos+2])<<8 | uint32(b.buf[b.pos+3])
	b.pos += 4
	return v
}

// ImportPtr reads n bytes and returns a slice view (no copy), advancing ptr.
func (b *Buffer) ImportPtr(n int) []byte {
	if b.isError || n < 0 || b.pos+n > b.end {
		b.fail()
		return nil
	}
	v := b.buf[b.pos : b.pos+n]
	b.pos += n
	return v
}

// ---- little-endian import ----

// LImportU16 reads a little-endian uint16.
func (b *Buffer) LImportU16() uint16 {
	if b.isError || b.pos+2 > b.end {
		b.fail()
		return 0
	}
	v := uint16(b.buf[b.pos]) | uint16(b.buf[b.pos+1])<<8
	b.pos += 2
	return v
}

// LImportU24 reads a little-endian 24-bit value into a uint32.
func (b *Buffer) LImportU24() uint32 {
	if b.isError || b.pos+3 > b.end {
		b.fail()
		return 0
	}
	v := uint32(b.buf[b.pos]) | uint32(b.buf[b.pos+1])<<8 | uint32(b.buf[b.pos+2])<<16
	b.pos += 3
	return v
}

// LImportU32 reads a little-endian uint32.
func (b *Buffer) LImportU32() uint32 {
	if b.isError || b.pos+4 > b.end {
		b.fail()
		return 0
	}
	v := uint32(b.buf[b.pos]) | uint32(b.buf[b.pos+1])<<8 | uint32(b.buf[b.pos+2])<<16 | uint32(b.buf[b.pos+3])<<24
	b.pos += 4
	return v
}

// ---- big-endian export ----

// ExportU8 appends a byte, failing (no-op) if it would cross end.
func (b *Buffer) ExportU8(v uint8) {
	if b.isError || b.pos+1 > b.end {
		b.fail()
		return
	}
	b.buf[b.pos] = v
	b.pos++
}

// ExportU16 appends a big-endian uint16.
func (b *Buffer) ExportU16(v uint16) {
	if b.isError || b.pos+2 > b.end {
		b.fail()
		return
	}
	b.buf[b.pos] = byte(v >> 8)
	b.buf[b.pos+1] = byte(v)
	b.pos += 2
}

// ExportU32 appends a big-endian uint32.
func (b *Buffer) ExportU32(v uint32) {
	if b.isError || b.pos+4 > b.end {
		b.fail()
		return
	}
	b.buf[b.pos] = byte(v >> 24)
	b.buf[b.pos+1] = byte(v >> 16)
	b.buf[b.pos+2] = byte(v >> 8)
	b.buf[b.pos+3] = byte(v)
	b.pos += 4
}

// ExportPtr copies src verbatim, failing if it would cross end or buf.
func (b *Buffer) ExportPtr(src []byte) {
	n := len(src)
	if b.isError || b.pos+n > b.end || b.pos+n < 0 {
		b.fail()
		return
	}
	copy(b.buf[b.pos:b.pos+n], src)
	b.pos += n
}

// ExportPtrSome copies up to min(len(src), remaining) bytes. It only
// sets the error flag if the buffer was already in error on entry;
// otherwise a short write is not itself an error (the sole intentional
// partial-advance exception in this package).
func (b *Buffer) ExportPtrSome(src []byte) {
	if b.isError {
		b.fail()
		return
	}
	if b.pos+len(src) <= b.end {
		copy(b.buf[b.pos:b.pos+len(src)], src)
		b.pos += len(src)
		return
	}
	rem := b.Remaining()
	copy(b.buf[b.pos:b.pos+rem], src[:rem])
	b.pos += rem
}

// ExportSprintf appends the formatted string, failing if it doesn't fit.
func (b *Buffer) ExportSprintf(s string) {
	b.ExportPtr([]byte(s))
}

// ExportSkip advances ptr by n without writing, respecting buf/end bounds.
func (b *Buffer) ExportSkip(n int) {
	if b.isError || b.pos+n > b.end || b.pos+n < 0 {
		b.fail()
		return
	}
	b.pos += n
}

// ExportRewind moves ptr back by n. A rewind crossing buf sets error.
func (b *Buffer) ExportRewind(n int) {
	if b.isError || b.pos-n > b.end || b.pos-n < 0 {
		b.fail()
		return
	}
	b.pos -= n
}

// ---- little-endian export ----

// LExportU16 appends a little-endian uint16.
func (b *Buffer) LExportU16(v uint16) {
	if b.isError || b.pos+2 > b.end {
		b.fail()
		return
	}
	b.buf[b.pos] = byte(v)
	b.buf[b.pos+1] = byte(v >> 8)
	b.pos += 2
}

// LExportU32 appends a little-endian uint32.
func (b *Buffer) LExportU32(v uint32) {
	if b.isError || b.pos+4 > b.end {
		b.fail()
		return
	}
	b.buf[b.pos] = byte(v)
	b.buf[b.pos+1] = byte(v >> 8)
	b.buf[b.pos+2] = byte(v >> 16)
	b.buf[b.pos+3] = byte(v >> 24)
	b.pos += 4
}

// ---- inspection helpers ----

// Peek returns the next n bytes without advancing ptr, or nil if unavailable.
func (b *Buffer) Peek(n int) []byte {
	if b.isError || b.pos+n > b.end || n < 0 {
		return nil
	}
	return b.buf[b.pos : b.pos+n]
}

// Memchr returns the offset (relative to ptr) of the first occurrence
// of c in the remaining bytes, or -1.
func (b *Buffer) Memchr(c byte) int {
	rem := b.WorkPtr()
	for i, v := range rem {
		if v == c {
			return i
		}
	}
	return -1
}

// MemcmpAtPtr compares the remaining bytes (from ptr) to want, true if
// want is a prefix of the remainder.
func (b *Buffer) MemcmpAtPtr(want []byte) bool {
	rem := b.WorkPtr()
	if len(want) > len(rem) {
		return false
	}
	for i := range want {
		if rem[i] != want[i] {
			return false
		}
	}
	return true
}
