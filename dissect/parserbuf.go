package dissect

import "github.com/arkime-go/sesscore/session"

// ParserBuffer is an optional per-parser byte-accumulation helper: a
// fixed two-direction ring, each side bounded to
// BufCap bytes, with a skip-ahead counter a parser uses to discard
// bytes it has already logically consumed (e.g. the remainder of an
// over-length record).
type ParserBuffer struct {
	BufCap int

	data     [2][]byte
	skipping [2]int
}

// NewParserBuffer returns a helper bounded to capacity bytes per
// direction.
func NewParserBuffer(capacity int) *ParserBuffer {
	return &ParserBuffer{BufCap: capacity}
}

// Add consumes up to Skipping[which] bytes from the front of chunk
// first (decrementing the counter), then appends up to remaining
// capacity. It returns false if any bytes had to be dropped because
// they would have overflowed BufCap.
func (p *ParserBuffer) Add(which session.Direction, chunk []byte) bool {
	if p.skipping[which] > 0 {
		n := p.skipping[which]
		if n > len(chunk) {
			n = len(chunk)
		}
		p.skipping[which] -= n
		chunk = chunk[n:]
	}
	if len(chunk) == 0 {
		return true
	}

	room := p.BufCap - len(p.data[which])
	if room <= 0 {
		return false
	}
	if len(chunk) > room {
		p.data[which] = append(p.data[which], chunk[:room]...)
		return false
	}
	p.data[which] = append(p.data[which], chunk...)
	return true
}

// Del removes n bytes from the front of which's buffer.
func (p *ParserBuffer) Del(which session.Direction, n int) {
	buf := p.data[which]
	if n >= len(buf) {
		p.data[which] = buf[:0]
		return
	}
	copy(buf, buf[n:])
	p.data[which] = buf[:len(buf)-n]
}

// Skip discards n bytes of which's logical stream: if that many are
// already buffered, they are deleted immediately; otherwise the whole
// buffer is discarded and the residual is recorded in Skipping so a
// later Add drops it before it is ever appended.
func (p *ParserBuffer) Skip(which session.Direction, n int) {
	avail := len(p.data[which])
	if n <= avail {
		p.Del(which, n)
		return
	}
	residual := n - avail
	p.data[which] = p.data[which][:0]
	p.skipping[which] += residual
}

// Len returns the number of buffered bytes for which.
func (p *ParserBuffer) Len(which session.Direction) int { return len(p.data[which]) }

// Skipping returns the current skip-ahead counter for which.
func (p *ParserBuffer) Skipping(which session.Direction) int { return p.skipping[which] }

// Bytes returns the currently buffered bytes for which (no copy).
func (p *ParserBuffer) Bytes(which session.Direction) []byte { return p.data[which] }

// Free releases the buffer's own storage. Registered as a dissector's
// free callback via NewParserBuffer's owner.
func (p *ParserBuffer) Free() {
	p.data[0] = nil
	p.data[1] = nil
}
