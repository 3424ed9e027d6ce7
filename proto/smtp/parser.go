package smtp

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/arkime-go/sesscore/session"
)

// TLSHandoff is called once a direction transitions TLS_OK_RETURN ->
// TLS, handing the remainder of the triggering chunk to the TLS
// certificate dissector once STARTTLS completes. The smtp
// package takes this as a parameter rather than importing proto/tls
// directly, so the two protocol packages don't depend on each other --
// engine wiring supplies the real proto/tls.Parse.
type TLSHandoff func(s session.Session, data []byte, which session.Direction)

// Feed runs chunk through dir's state machine, dispatching commands,
// header lines, and MIME part bodies.
// which identifies the direction chunk arrived on (needed only to
// choose which side gets STARTTLS's TLS_OK).
func Feed(s session.Session, st *Parser, which session.Direction, chunk []byte, onTLS TLSHandoff) {
	dir := st.dirs[which]
	other := st.dirs[which.Other()]

	i := 0
	for i < len(chunk) {
		b := chunk[i]

		if dir.state == StateIgnore {
			i++
			continue
		}
		if dir.state == StateTLS {
			if onTLS != nil {
				onTLS(s, chunk[i:], which)
			}
			return
		}
		if dir.state == StateTLSOKReturn {
			// the byte completing the acknowledgement line is
			// consumed; everything after it belongs to TLS.
			dir.state = StateTLS
			i++
			if i < len(chunk) && onTLS != nil {
				onTLS(s, chunk[i:], which)
			}
			return
		}

		if isReturnState(dir.state) {
			if b == '\n' {
				base := baseStateFor(dir.state)
				line := append([]byte(nil), dir.line...)
				dir.line = dir.line[:0]
				dispatchLine(s, dir, other, which, base, string(line))
				i++
				continue
			}
			// expected LF absent: fall back to base state and
			// reprocess this same byte without advancing.
			dir.state = baseStateFor(dir.state)
			continue
		}

		if b == '\r' {
			if ret, ok := returnStateFor(dir.state); ok {
				dir.state = ret
			}
			i++
			continue
		}

		dir.line = append(dir.line, b)
		i++
	}
}

func dispatchLine(s session.Session, dir, other *dirState, which session.Direction, base State, line string) {
	switch base {
	case StateCmd:
		dispatchCommand(s, dir, other, which, line)
	case StateDataHeader:
		dispatchDataHeader(s, dir, line)
	case StateData:
		dispatchData(s, dir, line)
	case StateMime:
		dispatchMimeHeader(s, dir, line)
	case StateMimeData:
		dispatchMimeData(s, dir, line)
	default:
		dir.state = StateCmd
	}
}

func dispatchCommand(s session.Session, dir, other *dirState, which session.Direction, line string) {
	upper := strings.ToUpper(line)
	switch {
	case strings.HasPrefix(upper, "MAIL FROM:"):
		s.AddString(FieldEmailSrc, extractAddress(line[len("MAIL FROM:"):]), true)
		dir.state = StateCmd
	case strings.HasPrefix(upper, "RCPT TO:"):
		s.AddString(FieldEmailDst, extractAddress(line[len("RCPT TO:"):]), true)
		dir.state = StateCmd
	case strings.HasPrefix(upper, "DATA"):
		dir.state = StateDataHeader
	case strings.HasPrefix(upper, "STARTTLS"):
		dir.state = StateIgnore
		other.state = StateTLSOK
	default:
		dir.state = StateCmd
	}
}

// dispatchDataHeader implements CRLF+WSP folding: a line beginning
// with a space or tab is appended to the header currently under
// construction instead of being dispatched on its own.
func dispatchDataHeader(s session.Session, dir *dirState, line string) {
	if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
		dir.headerBuf = append(dir.headerBuf, ' ')
		dir.headerBuf = append(dir.headerBuf, strings.TrimSpace(line)...)
		return
	}

	flushHeader(s, dir)

	if line == "." {
		dir.state = StateCmd
		return
	}
	if line == "" {
		dir.state = StateData
		return
	}
	dir.headerBuf = append(dir.headerBuf, line...)
	dir.state = StateDataHeader
}

func flushHeader(s session.Session, dir *dirState) {
	if len(dir.headerBuf) == 0 {
		return
	}
	header := string(dir.headerBuf)
	dir.headerBuf = dir.headerBuf[:0]
	if idx := strings.IndexByte(header, ':'); idx >= 0 {
		processHeaderLine(s, dir, strings.TrimSpace(header[:idx]), strings.TrimSpace(header[idx+1:]))
	}
}

func dispatchData(s session.Session, dir *dirState, line string) {
	if line == "." {
		dir.state = StateCmd
		return
	}
	if dir.matchesBoundary(line) {
		finalizePart(s, dir)
		dir.state = StateMime
		return
	}
	if dir.b64.active {
		dir.b64.feedLine(dir.md5, []byte(line))
	}
}

func dispatchMimeHeader(s session.Session, dir *dirState, line string) {
	if line == "." {
		dir.state = StateCmd
		return
	}
	if line == "" {
		dir.state = StateMimeData
		return
	}
	if idx := strings.IndexByte(line, ':'); idx >= 0 {
		processHeaderLine(s, dir, strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]))
	}
	dir.state = StateMime
}

func dispatchMimeData(s session.Session, dir *dirState, line string) {
	if line == "." {
		dir.state = StateCmd
		return
	}
	if dir.matchesBoundary(line) {
		finalizePart(s, dir)
		dir.state = StateMime
		return
	}
	if dir.b64.active {
		dir.b64.feedLine(dir.md5, []byte(line))
	}
}

// finalizePart closes out the current MIME part: if base64 decoding
// was active, records the accumulated MD5 and resets both the digest
// and the decoder for the next part.
func finalizePart(s session.Session, dir *dirState) {
	if dir.b64.active {
		sum := dir.md5.Sum(nil)
		s.AddString(FieldEmailPartMD5, hex.EncodeToString(sum), true)
	}
	dir.md5 = md5.New()
	dir.b64.reset()
}
