// Package gopacketreader is an illustrative capture-reader adapter: it
// bridges gopacket's tcpassembly reassembler onto the engine façade,
// showing where a real deployment's reader calls ClassifyTCP,
// ParseDispatch, and SessionClose. Capture and reassembly themselves
// stay outside the core; this package exists so the wiring has one
// concrete, runnable shape.
package gopacketreader

import (
	"strconv"
	"sync"

	"github.com/google/gopacket"
	"github.com/google/gopacket/tcpassembly"

	"github.com/arkime-go/sesscore/engine"
	"github.com/arkime-go/sesscore/session"
)

// Factory implements tcpassembly.StreamFactory, producing one Stream
// per direction and pairing the two directions onto a shared session.
type Factory struct {
	Engine *engine.Engine

	// NewSession supplies the session handle for a freshly seen flow;
	// defaults to session.NewFake for demo use. A production reader
	// supplies its own Session backed by the real field store.
	NewSession func(portInit, portResp uint16) session.Session

	mu    sync.Mutex
	flows map[uint64]*flowState
}

type flowState struct {
	s        session.Session
	initFlow string // src endpoint string of the first-seen direction
	open     int
}

// New implements tcpassembly.StreamFactory.
func (f *Factory) New(netFlow, tcpFlow gopacket.Flow) tcpassembly.Stream {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.flows == nil {
		f.flows = make(map[uint64]*flowState)
	}

	// FastHash is direction-insensitive, so both directions of a flow
	// land on the same entry.
	key := netFlow.FastHash() ^ tcpFlow.FastHash()
	fs, ok := f.flows[key]
	which := session.ToResponder
	if !ok {
		srcPort := atoiPort(tcpFlow.Src().String())
		dstPort := atoiPort(tcpFlow.Dst().String())
		newSession := f.NewSession
		if newSession == nil {
			newSession = func(pi, pr uint16) session.Session {
				return session.NewFake(session.TCP, pi, pr)
			}
		}
		fs = &flowState{
			s:        newSession(srcPort, dstPort),
			initFlow: netFlow.Src().String() + ":" + tcpFlow.Src().String(),
		}
		f.flows[key] = fs
	} else if netFlow.Src().String()+":"+tcpFlow.Src().String() == fs.initFlow {
		which = session.ToResponder
	} else {
		which = session.ToInitiator
	}
	fs.open++

	return &stream{factory: f, key: key, flow: fs, which: which}
}

func atoiPort(s string) uint16 {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 0xffff {
		return 0
	}
	return uint16(n)
}

type stream struct {
	factory    *Factory
	key        uint64
	flow       *flowState
	which      session.Direction
	classified bool
}

// Reassembled implements tcpassembly.Stream: the first non-empty
// in-order chunk classifies, everything after dispatches.
func (st *stream) Reassembled(rs []tcpassembly.Reassembly) {
	for _, r := range rs {
		if len(r.Bytes) == 0 {
			continue
		}
		// Classification runs once per direction, then the same chunk
		// is dispatched so dissectors attached by the classifier see
		// the bytes that triggered them.
		if !st.classified {
			st.classified = true
			st.factory.Engine.ClassifyTCP(st.flow.s, r.Bytes, st.which)
		}
		st.factory.Engine.ParseDispatch(st.flow.s, r.Bytes, st.which)
	}
}

// ReassemblyComplete implements tcpassembly.Stream: the session closes
// once both directions have finished.
func (st *stream) ReassemblyComplete() {
	f := st.factory
	f.mu.Lock()
	st.flow.open--
	done := st.flow.open <= 0
	if done {
		delete(f.flows, st.key)
	}
	f.mu.Unlock()
	if done {
		f.Engine.SessionClose(st.flow.s)
	}
}
