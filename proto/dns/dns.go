// Package dns implements the passive DNS message dissector: question
// and answer (A, CNAME) section parsing with
// compression-pointer name decompression, over UDP (and, per the
// classifier's port registration, TCP for zone transfers / large
// responses -- the dissector itself is transport-agnostic once handed
// a reassembled message).
package dns

import (
	"net"
	"strings"

	"github.com/arkime-go/sesscore/bsb"
	"github.com/arkime-go/sesscore/classify"
	"github.com/arkime-go/sesscore/session"
	"github.com/rs/zerolog/log"
)

var logger = log.Logger.With().Str("caller", "proto.dns").Logger()

// minMessageLen is the shortest input this dissector accepts: the
// 12-byte header plus 6 further bytes. Anything shorter is rejected
// before the header is read.
const minMessageLen = 18

const (
	flagQR     = 1 << 7 // top bit of byte 2
	opcodeMask = 0x78    // bits 3-6 of byte 2
	opcodeQuery = 0
)

// Register wires the DNS dissector into reg on UDP/TCP port 53.
func Register(reg *classify.Registry, onTCP *classify.Registry) {
	cb := func(s session.Session, data []byte, which session.Direction, userData interface{}) {
		Parse(s, data, which)
	}
	reg.RegisterPort("dns-port", 53, classify.PortSrc|classify.PortDst, cb, nil)
	if onTCP != nil {
		// TCP-framed messages carry a 2-byte length prefix; strip it.
		tcpCB := func(s session.Session, data []byte, which session.Direction, userData interface{}) {
			if len(data) > 2 {
				Parse(s, data[2:], which)
			}
		}
		onTCP.RegisterPort("dns-port", 53, classify.PortSrc|classify.PortDst, tcpCB, nil)
	}
}

// Parse is the dissector's single entry point: DNS messages are
// self-contained within one reassembled chunk (a UDP datagram, or a
// TCP-framed message once the 2-byte length prefix has been stripped
// by the caller), so there is no per-session state to carry across
// calls.
func Parse(s session.Session, data []byte, which session.Direction) {
	if len(data) < minMessageLen {
		return
	}
	if (data[2]&opcodeMask)>>3 != opcodeQuery {
		return
	}

	qr := data[2]&flagQR != 0
	h := bsb.New(data)
	h.ImportPtr(4)
	qdcount := int(h.ImportU16())
	ancount := int(h.ImportU16())
	if h.IsError() {
		return
	}

	offset := 12
	tagged := false
	for i := 0; i < qdcount; i++ {
		name, next, ok := decodeName(data, offset)
		if !ok {
			return
		}
		q := bsb.New(data)
		q.ImportPtr(next)
		qtype := q.ImportU16()
		qclass := q.ImportU16()
		if q.IsError() {
			return
		}
		offset = next + 4

		s.AddString(FieldDNSHost, strings.ToLower(name), true)
		if !tagged {
			s.AddTag(TagProtocolDNS)
			tagged = true
		}
		if tname, ok := qtypeName(qtype); ok {
			s.AddTag(tagQTypePrefix + tname)
		}
		if cname, ok := qclassName(qclass); ok {
			s.AddTag(tagQClassPrefix + cname)
		}
	}
	if !tagged {
		s.AddTag(TagProtocolDNS)
	}

	if !qr {
		return
	}
	parseAnswers(s, data, offset, ancount)
}

// parseAnswers walks the answer section, recording A and CNAME
// records. Any other rrtype is skipped using its
// declared rdlength (clamped to what remains, matching the truncation
// tolerance used throughout this module's sibling dissectors).
func parseAnswers(s session.Session, data []byte, offset, ancount int) {
	for i := 0; i < ancount; i++ {
		name, next, ok := decodeName(data, offset)
		if !ok {
			return
		}
		r := bsb.New(data)
		r.ImportPtr(next)
		atype := r.ImportU16()
		aclass := r.ImportU16()
		r.ImportU32() // TTL
		rdlen := int(r.ImportU16())
		if r.IsError() {
			return
		}
		rdataStart := next + 10
		if rdlen > r.Remaining() {
			rdlen = r.Remaining()
		}
		rdata := r.ImportPtr(rdlen)

		switch {
		case atype == 1 && aclass == 1 && rdlen == 4: // A
			s.AddString(FieldDNSIP, net.IP(rdata).String(), true)
		case atype == 5 && aclass == 1: // CNAME
			target, _, ok := decodeName(data, rdataStart)
			if ok {
				s.AddString(FieldDNSHost, strings.ToLower(target), true)
			} else {
				logger.Debug().Str("name", name).Msg("bad cname rdata")
			}
		}

		offset = rdataStart + rdlen
	}
}
