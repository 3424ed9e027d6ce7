// Package socks implements the passive SOCKS4/SOCKS5 dissector: a
// SOCKS4 single-reply detector that re-invokes the
// classifier on the tunneled payload, and a SOCKS5 5-state handshake
// machine with strict per-message direction checks.
package socks

import (
	"github.com/arkime-go/sesscore/classify"
	"github.com/arkime-go/sesscore/dissect"
	"github.com/arkime-go/sesscore/session"
	"github.com/rs/zerolog/log"
)

var logger = log.Logger.With().Str("caller", "proto.socks").Logger()

// ReclassifyFunc re-invokes the classifier against bytes that follow
// a completed SOCKS4 handshake so downstream dissection of the
// tunneled protocol can proceed.
type ReclassifyFunc func(s session.Session, data []byte, which session.Direction)

// Register wires both SOCKS4 and SOCKS5 classifier triggers into reg.
// SOCKS4 is recognized by its CONNECT request (version 4, command 1);
// SOCKS5 by its version-negotiation greeting (version 5).
func Register(reg *classify.Registry, tbl func(s session.Session) *dissect.Table, reclassify ReclassifyFunc) {
	// Both handshake machines treat the triggering request as consumed
	// by the classifier, so the skip counter swallows it before the
	// reader's next dispatch of the same bytes.
	reg.RegisterContent("socks4", 0, []byte{0x04, 0x01}, func(s session.Session, data []byte, which session.Direction, userData interface{}) {
		AttachV4(tbl(s), s, which, reclassify)
		*s.Skip(which) += len(data)
	}, nil)
	reg.RegisterContent("socks5", 0, []byte{0x05}, func(s session.Session, data []byte, which session.Direction, userData interface{}) {
		AttachV5(tbl(s), s, which)
		*s.Skip(which) += len(data)
	}, nil)
}

type v4ContextKey struct{}
type v5ContextKey struct{}

// v4State tracks the single server reply SOCKS4 needs.
type v4State struct {
	clientDir session.Direction
	buf       []byte
	done      bool
}

// AttachV4 registers (idempotently) the SOCKS4 reply watcher. which is
// the direction the triggering CONNECT request arrived on.
func AttachV4(t *dissect.Table, s session.Session, which session.Direction, reclassify ReclassifyFunc) *v4State {
	if v, ok := s.Get(v4ContextKey{}); ok {
		return v.(*v4State)
	}
	st := &v4State{clientDir: which}
	s.Set(v4ContextKey{}, st)
	t.Register(s, func(s session.Session, userData interface{}, data []byte, which session.Direction) {
		feedV4(s, userData.(*v4State), which, data, reclassify)
	}, st, func(s session.Session, userData interface{}) {
		s.Delete(v4ContextKey{})
	}, nil)
	return st
}

func feedV4(s session.Session, st *v4State, which session.Direction, chunk []byte, reclassify ReclassifyFunc) {
	if st.done || which != st.clientDir.Other() {
		return
	}
	st.buf = append(st.buf, chunk...)
	if len(st.buf) < 8 {
		return
	}
	st.done = true
	reply := st.buf[:8]
	rest := st.buf[8:]
	status := reply[1]
	if status < 0x5a || status > 0x5d {
		logger.Debug().Uint8("status", status).Msg("socks4 reply status not in range, not a socks4 session")
		return
	}
	s.AddTag(TagProtocolSocks)
	if reclassify != nil && len(rest) > 0 {
		reclassify(s, rest, which)
	}
}

// phase is the SOCKS5 handshake position (the initial
// version-negotiation request is consumed by the
// classifier trigger itself, so the state machine starts at
// phaseVerReply).
type phase int

const (
	phaseVerReply phase = iota
	phaseUserRequest
	phaseUserReply
	phaseConnRequest
	phaseConnReply
	phaseDone
)

// v5State is one session's SOCKS5 handshake state.
type v5State struct {
	clientDir session.Direction
	phase     phase
	buf       [2][]byte // per-direction accumulation, indexed by session.Direction
	user      string
}

// AttachV5 registers (idempotently) the SOCKS5 handshake machine.
// which is the direction the triggering greeting arrived on, i.e. the
// client side of the handshake.
func AttachV5(t *dissect.Table, s session.Session, which session.Direction) *v5State {
	if v, ok := s.Get(v5ContextKey{}); ok {
		return v.(*v5State)
	}
	st := &v5State{clientDir: which}
	s.Set(v5ContextKey{}, st)
	t.Register(s, func(s session.Session, userData interface{}, data []byte, which session.Direction) {
		feedV5(s, userData.(*v5State), which, data)
	}, st, func(s session.Session, userData interface{}) {
		s.Delete(v5ContextKey{})
	}, nil)
	return st
}

func feedV5(s session.Session, st *v5State, which session.Direction, chunk []byte) {
	if st.phase == phaseDone {
		return
	}
	serverDir := st.clientDir.Other()
	st.buf[which] = append(st.buf[which], chunk...)

	for {
		switch st.phase {
		case phaseVerReply:
			if which != serverDir {
				return
			}
			b := st.buf[serverDir]
			if len(b) < 2 {
				return
			}
			method := b[1]
			st.buf[serverDir] = b[2:]
			s.AddTag(TagProtocolSocks)
			if method == 0x02 {
				st.phase = phaseUserRequest
			} else {
				st.phase = phaseConnRequest
			}

		case phaseUserRequest:
			if which != st.clientDir {
				return
			}
			b := st.buf[st.clientDir]
			if len(b) < 2 {
				return
			}
			ulen := int(b[1])
			if len(b) < 2+ulen+1 {
				return
			}
			plen := int(b[2+ulen])
			if len(b) < 2+ulen+1+plen {
				return
			}
			st.user = string(b[2 : 2+ulen])
			s.AddString(FieldSocksUser, st.user, true)
			st.buf[st.clientDir] = b[2+ulen+1+plen:]
			st.phase = phaseUserReply

		case phaseUserReply:
			if which != serverDir {
				return
			}
			b := st.buf[serverDir]
			if len(b) < 2 {
				return
			}
			st.buf[serverDir] = b[2:]
			st.phase = phaseConnRequest

		case phaseConnRequest:
			if which != st.clientDir {
				return
			}
			b := st.buf[st.clientDir]
			if len(b) < 4 {
				return
			}
			a, n, ok := decodeAddr(b[3:])
			if !ok {
				return
			}
			s.AddString(FieldSocksHost, a.host, true)
			s.AddInt(FieldSocksPort, uint32(a.port))
			st.buf[st.clientDir] = b[3+n:]
			st.phase = phaseConnReply

		case phaseConnReply:
			if which != serverDir {
				return
			}
			b := st.buf[serverDir]
			if len(b) < 4 {
				return
			}
			_, n, ok := decodeAddr(b[3:])
			if !ok {
				return
			}
			st.buf[serverDir] = b[3+n:]
			st.phase = phaseDone
			return

		default:
			return
		}
	}
}
