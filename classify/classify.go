// Package classify implements the multi-index classifier dispatch
// tables: per-transport registries keyed by
// port and by leading content bytes, run once against the first
// in-order chunk of each session direction.
package classify

import (
	"bytes"

	"github.com/arkime-go/sesscore/session"
	"github.com/rs/zerolog/log"
)

var logger = log.Logger.With().Str("caller", "classify").Logger()

// Callback is invoked when an entry matches. data is the full chunk
// (classifiers index into it at entry.Offset themselves via the
// bucket machinery, so the callback always sees the whole chunk).
type Callback func(s session.Session, data []byte, which session.Direction, userData interface{})

// PortFlags select which port(s) of the session an entry matches.
type PortFlags int

const (
	PortSrc PortFlags = 1 << iota
	PortDst
)

// entry is a single registered classifier.
type entry struct {
	name     string
	userData interface{}
	offset   int
	match    []byte
	minLen   int
	callback Callback
}

func newEntry(name string, offset int, match []byte, cb Callback, userData interface{}) entry {
	return entry{
		name:     name,
		userData: userData,
		offset:   offset,
		match:    match,
		minLen:   offset + len(match),
		callback: cb,
	}
}

// bucket is a grow-by-1.67 dynamic array of entries, with duplicate
// suppression on append.
type bucket struct {
	entries []entry
}

const initialBucketCap = 2
const bucketGrowFactor = 1.67

func (b *bucket) add(e entry) {
	// Function values are not comparable in Go, so callback identity
	// is approximated by comparing userData, the same convention
	// dissect.Table.Register uses: two registrations sharing
	// (name, offset, match) but carrying distinct userData are kept
	// as distinct entries.
	for _, existing := range b.entries {
		if existing.name == e.name && existing.offset == e.offset &&
			bytes.Equal(existing.match, e.match) && existing.userData == e.userData {
			return // duplicate registration, silently dropped
		}
	}
	if b.entries == nil {
		b.entries = make([]entry, 0, initialBucketCap)
	} else if len(b.entries) == cap(b.entries) {
		newCap := int(float64(cap(b.entries)) * bucketGrowFactor)
		if newCap <= cap(b.entries) {
			newCap = cap(b.entries) + 1
		}
		grown := make([]entry, len(b.entries), newCap)
		copy(grown, b.entries)
		b.entries = grown
	}
	b.entries = append(b.entries, e)
}

// Registry holds all classifier entries for one transport.
type Registry struct {
	transport session.Transport

	portSrc map[uint16]*bucket
	portDst map[uint16]*bucket

	// offset-0 fallback bucket: offset != 0, or len < 1. Includes the
	// always-match (offset==0, len==0) fallback entries.
	fallback bucket

	byte1 [256]*bucket
	byte2 [256][256]*bucket

	// SCTP only.
	proto [256]*bucket
}

// NewRegistry creates an empty registry for one transport.
func NewRegistry(tr session.Transport) *Registry {
	return &Registry{
		transport: tr,
		portSrc:   make(map[uint16]*bucket),
		portDst:   make(map[uint16]*bucket),
	}
}

// RegisterContent registers a content-match classifier. Bucket rules:
//   - offset==0, len==0: always-match fallback
//   - offset!=0, or len<1: offset-0 fallback bucket, linear scan with minLen
//   - offset==0, len==1: indexed by single byte
//   - offset==0, len>=2: indexed by first two bytes; stored match is
//     match[2:] and compared against data[offset+2:]
func (r *Registry) RegisterContent(name string, offset int, match []byte, cb Callback, userData interface{}) {
	e := newEntry(name, offset, match, cb, userData)

	switch {
	case offset == 0 && len(match) == 0:
		r.fallback.add(e)
	case offset != 0 || len(match) < 1:
		r.fallback.add(e)
	case len(match) == 1:
		b0 := match[0]
		if r.byte1[b0] == nil {
			r.byte1[b0] = &bucket{}
		}
		r.byte1[b0].add(e)
	default:
		b0, b1 := match[0], match[1]
		stored := newEntry(name, offset, match[2:], cb, userData)
		if r.byte2[b0][b1] == nil {
			r.byte2[b0][b1] = &bucket{}
		}
		r.byte2[b0][b1].add(stored)
	}
}

// RegisterPort registers a port-match classifier. flags may combine
// PortSrc|PortDst.
func (r *Registry) RegisterPort(name string, port uint16, flags PortFlags, cb Callback, userData interface{}) {
	e := newEntry(name, 0, nil, cb, userData)
	if flags&PortSrc != 0 {
		b, ok := r.portSrc[port]
		if !ok {
			b = &bucket{}
			r.portSrc[port] = b
		}
		b.add(e)
	}
	if flags&PortDst != 0 {
		b, ok := r.portDst[port]
		if !ok {
			b = &bucket{}
			r.portDst[port] = b
		}
		b.add(e)
	}
}

// RegisterSCTPProtocol registers an SCTP payload-protocol-id classifier.
// protocolID must be < 256.
func (r *Registry) RegisterSCTPProtocol(name string, protocolID int, cb Callback, userData interface{}) {
	if protocolID < 0 || protocolID > 255 {
		logger.Warn().Int("protocol", protocolID).Msg("sctp protocol id out of range, ignoring registration")
		return
	}
	e := newEntry(name, 0, nil, cb, userData)
	if r.proto[protocolID] == nil {
		r.proto[protocolID] = &bucket{}
	}
	r.proto[protocolID].add(e)
}

func matches(e *entry, data []byte) bool {
	if len(data) < e.minLen {
		return false
	}
	if len(e.match) == 0 {
		return true
	}
	return bytes.Equal(data[e.offset:e.offset+len(e.match)], e.match)
}

func runBucket(b *bucket, s session.Session, data []byte, which session.Direction) {
	if b == nil {
		return
	}
	for i := range b.entries {
		e := &b.entries[i]
		if matches(e, data) {
			e.callback(s, data, which, e.userData)
		}
	}
}

// runBucketAt runs a bucket whose stored match already had its
// leading offset bytes stripped (the byte2 index), comparing against
// data from e.offset+2 onward.
func runBucketAt(b *bucket, s session.Session, data []byte, which session.Direction, skip int) {
	if b == nil {
		return
	}
	for i := range b.entries {
		e := &b.entries[i]
		// minLen was computed against the stripped match, so adjust
		// for the bytes already consumed by the index.
		if len(data) < e.minLen+skip {
			continue
		}
		if len(e.match) == 0 || bytes.Equal(data[e.offset+skip:e.offset+skip+len(e.match)], e.match) {
			e.callback(s, data, which, e.userData)
		}
	}
}

// Classify runs port, fallback, byte1, and byte2 dispatch (plus, for
// SCTP, protocol-id dispatch) against the first in-order chunk of a
// direction.
// sctpProtocolID is ignored for TCP/UDP registries.
func (r *Registry) Classify(s session.Session, data []byte, which session.Direction, sctpProtocolID int) {
	if len(data) < 2 {
		return
	}

	runBucket(r.portSrc[s.PortInitiator()], s, data, which)
	runBucket(r.portDst[s.PortResponder()], s, data, which)

	runBucket(&r.fallback, s, data, which)

	runBucket(r.byte1[data[0]], s, data, which)

	runBucketAt(r.byte2[data[0]][data[1]], s, data, which, 2)

	if r.transport == session.SCTP && sctpProtocolID >= 0 && sctpProtocolID < 256 {
		runBucket(r.proto[sctpProtocolID], s, data, which)
	}
}
