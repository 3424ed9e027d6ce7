package engine

import (
	"sync"

	"github.com/arkime-go/sesscore/session"
)

// Handle wraps a live session with a reference count so a capture
// reader with multiple outstanding deliveries (e.g. an out-of-order
// reassembly queue draining while a timeout fires) can't tear the
// session down under a pending dispatch. The last TryClose runs the
// engine's SessionClose.
type Handle struct {
	S session.Session

	engine *Engine

	mu       sync.Mutex
	refcount int
	closed   bool
}

// Ref adjusts the reference count by i.
func (h *Handle) Ref(i int) {
	h.mu.Lock()
	h.refcount += i
	ref := h.refcount
	h.mu.Unlock()
	logger.Debug().Str("session", h.S.ID()).Int("ref", ref).Msg("reference adjust")
}

// TryClose decrements the reference count and, on reaching zero, runs
// the engine teardown. Returns the remaining count; 0 means closed.
func (h *Handle) TryClose() int {
	h.mu.Lock()
	h.refcount--
	ref := h.refcount
	doClose := ref <= 0 && !h.closed
	if doClose {
		h.closed = true
	}
	h.mu.Unlock()

	if doClose {
		h.engine.SessionClose(h.S)
	}
	return ref
}

// Close tears the session down immediately regardless of outstanding
// references.
func (h *Handle) Close() {
	h.mu.Lock()
	already := h.closed
	h.closed = true
	h.refcount = 0
	h.mu.Unlock()
	if !already {
		logger.Debug().Str("session", h.S.ID()).Msg("hard close")
		h.engine.SessionClose(h.S)
	}
}

// Pool tracks live session handles by session id. One pool per worker
// thread: sessions are pinned to a worker by the capture reader's
// hash, so the pool itself needs no locking beyond each handle's own.
type Pool struct {
	engine  *Engine
	handles map[string]*Handle
}

// NewPool returns an empty pool bound to e.
func NewPool(e *Engine) *Pool {
	return &Pool{engine: e, handles: make(map[string]*Handle)}
}

// Acquire returns s's handle with the reference count incremented,
// creating it on first sight.
func (p *Pool) Acquire(s session.Session) *Handle {
	h, ok := p.handles[s.ID()]
	if !ok {
		h = &Handle{S: s, engine: p.engine}
		p.handles[s.ID()] = h
	}
	h.Ref(1)
	return h
}

// Release decrements s's handle and drops it from the pool once
// closed.
func (p *Pool) Release(s session.Session) {
	h, ok := p.handles[s.ID()]
	if !ok {
		return
	}
	if h.TryClose() <= 0 {
		delete(p.handles, s.ID())
	}
}

// Len reports live handles, for metrics.
func (p *Pool) Len() int { return len(p.handles) }
