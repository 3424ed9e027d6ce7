// Package http implements a minimal streaming HTTP field extractor:
// two independent per-direction line-buffered state machines sharing
// a session, built on the same line-then-dispatch idiom as proto/smtp
// rather than inventing a new parsing style.
package http

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"

	"github.com/arkime-go/sesscore/classify"
	"github.com/arkime-go/sesscore/dissect"
	"github.com/arkime-go/sesscore/session"
	"github.com/rs/zerolog/log"
)

var logger = log.Logger.With().Str("caller", "proto.http").Logger()

var methods = [][]byte{
	[]byte("GET "), []byte("POST"), []byte("HEAD"), []byte("PUT "),
	[]byte("DELE"), []byte("OPTI"), []byte("PATC"), []byte("CONN"),
}

// Register wires an HTTP request-line classifier trigger into reg for
// each recognized method prefix.
func Register(reg *classify.Registry, tbl func(s session.Session) *dissect.Table) {
	attach := func(s session.Session, data []byte, which session.Direction, userData interface{}) {
		Attach(tbl(s), s)
	}
	for _, m := range methods {
		reg.RegisterContent("http-method", 0, m, attach, nil)
	}
	reg.RegisterContent("http-response", 0, []byte("HTTP/"), attach, nil)
}

type contextKey struct{}

type dirState struct {
	line      []byte
	sawCR     bool
	inHeaders bool
	started   bool
	inBody    bool
	md5       interface{ Write([]byte) (int, error) }
}

type state struct {
	dirs [2]*dirState
}

// Attach registers this session's HTTP parser slot, idempotently.
func Attach(t *dissect.Table, s session.Session) *state {
	if v, ok := s.Get(contextKey{}); ok {
		return v.(*state)
	}
	st := &state{dirs: [2]*dirState{{md5: md5.New()}, {md5: md5.New()}}}
	s.Set(contextKey{}, st)
	s.AddTag(TagProtocolHTTP)
	t.Register(s, func(s session.Session, userData interface{}, data []byte, which session.Direction) {
		feed(s, userData.(*state), which, data)
	}, st, func(s session.Session, userData interface{}) {
		s.Delete(contextKey{})
	}, func(s session.Session, userData interface{}, final bool) {
		if !final {
			return
		}
		save(s, userData.(*state))
	})
	return st
}

// save records each direction's body MD5 once the session is saved
// for the final time.
func save(s session.Session, st *state) {
	for _, dir := range st.dirs {
		if !dir.inBody {
			continue
		}
		if sum := bodyMD5(dir); sum != "" {
			s.AddString(FieldHTTPMD5, sum, true)
		}
	}
}

func feed(s session.Session, st *state, which session.Direction, chunk []byte) {
	dir := st.dirs[which]
	for _, b := range chunk {
		if dir.inBody {
			dir.md5.Write([]byte{b})
			continue
		}
		if b == '\r' {
			dir.sawCR = true
			continue
		}
		if b == '\n' {
			line := string(dir.line)
			dir.line = dir.line[:0]
			dir.sawCR = false
			dispatchLine(s, dir, line)
			continue
		}
		if dir.sawCR {
			// bare LF expected after CR but another byte arrived;
			// treat the CR as a literal line byte and keep going.
			dir.line = append(dir.line, '\r')
			dir.sawCR = false
		}
		dir.line = append(dir.line, b)
	}
}

func dispatchLine(s session.Session, dir *dirState, line string) {
	if !dir.started {
		dir.started = true
		parseStartLine(s, line)
		return
	}
	if line == "" {
		dir.inBody = true
		return
	}
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return
	}
	name := strings.ToLower(strings.TrimSpace(line[:idx]))
	value := strings.TrimSpace(line[idx+1:])
	switch name {
	case "host":
		s.AddString(FieldHTTPHost, strings.ToLower(value), true)
	case "x-forwarded-for":
		// a chain of proxies yields a comma-separated list; only the
		// first hop is recorded.
		if first, _, _ := strings.Cut(value, ","); first != "" {
			addIPHashValue(s, FieldHTTPXFF, strings.TrimSpace(first))
		}
	}
}

// parseStartLine handles a request line ("METHOD PATH HTTP/x.y");
// response status lines ("HTTP/x.y CODE reason") carry no fields this
// dissector records and are otherwise ignored.
func parseStartLine(s session.Session, line string) {
	if strings.HasPrefix(line, "HTTP/") {
		return
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return
	}
	target := parts[1]
	path := target
	var rawQuery string
	if i := strings.IndexByte(target, '?'); i >= 0 {
		path = target[:i]
		rawQuery = target[i+1:]
	}
	s.AddString(FieldHTTPPath, path, true)
	if rawQuery != "" {
		addQueryFields(s, rawQuery)
	}
}

// addQueryFields splits a raw query string on '&' and '=' directly
// (rather than url.ParseQuery's map, which does not preserve
// repeated-key order) so http_key/http_value pairs are added in the
// order they appeared on the wire.
func addQueryFields(s session.Session, rawQuery string) {
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		key, err1 := url.QueryUnescape(key)
		value, err2 := url.QueryUnescape(value)
		if err1 != nil || err2 != nil {
			continue
		}
		s.AddString(FieldHTTPKey, key, true)
		s.AddString(FieldHTTPValue, value, true)
	}
}

// addIPHashValue adds a dotted-quad as a numeric IP_HASH value. A
// value parsing to the broadcast address is rejected, bug-compatibly
// (see TagBadIPHash).
func addIPHashValue(s session.Session, fieldID session.FieldID, dotted string) {
	parts := strings.Split(dotted, ".")
	if len(parts) != 4 {
		return
	}
	var v uint32
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return
		}
		v = v<<8 | uint32(n)
	}
	if v == broadcastIPv4 {
		s.AddTag(TagBadIPHash)
		return
	}
	s.AddInt(fieldID, v)
}

// bodyMD5 finalizes and returns the hex MD5 of which's accumulated
// body bytes so far; exposed for callers (e.g. a save_fn) that want to
// record it once the body is known to be complete.
func bodyMD5(dir *dirState) string {
	h, ok := dir.md5.(interface{ Sum([]byte) []byte })
	if !ok {
		return ""
	}
	return hex.EncodeToString(h.Sum(nil))
}
