package dissect

import (
	"sync"

	"github.com/arkime-go/sesscore/session"
)

// maxNamedIDs bounds named-callback ids so the has-any mask fits a
// single uint64.
const maxNamedIDs = 64

// NamedFunc is a named-callback's invocation shape.
type NamedFunc func(s session.Session, data []byte, userData interface{})

type namedCallback struct {
	fn       NamedFunc
	userData interface{}
}

// NamedRegistry is the cross-parser extension point: outer framing
// parsers hand payloads to registered sub-parsers by
// small integer id, with an O(1) "anything registered?" check via a
// process-wide bitmask.
//
// Registration happens at startup before dispatch begins; after that
// it is read-only, so the mask update is a plain store --
// no atomic/release-store is needed in Go's memory model once there is
// a happens-before edge from "registration finished" to "workers
// started", which the caller is responsible for establishing (e.g. by
// calling all registration code before spawning workers).
type NamedRegistry struct {
	mu        sync.Mutex
	ids       map[string]int
	callbacks [maxNamedIDs][]namedCallback
	mask      uint64
}

// NewNamedRegistry returns an empty registry.
func NewNamedRegistry() *NamedRegistry {
	return &NamedRegistry{ids: make(map[string]int)}
}

// ID allocates (or looks up) the small id for name. IDs persist for
// the registry's lifetime. Returns -1 if the registry is full.
func (r *NamedRegistry) ID(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.ids[name]; ok {
		return id
	}
	if len(r.ids) >= maxNamedIDs {
		return -1
	}
	id := len(r.ids)
	r.ids[name] = id
	return id
}

// Add appends fn to name's callback list, allocating an id if needed.
func (r *NamedRegistry) Add(name string, fn NamedFunc, userData interface{}) {
	id := r.ID(name)
	if id < 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[id] = append(r.callbacks[id], namedCallback{fn: fn, userData: userData})
	r.mask |= 1 << uint(id)
}

// HasAny is the O(1) mask check.
func (r *NamedRegistry) HasAny(id int) bool {
	if id < 0 || id >= maxNamedIDs {
		return false
	}
	return r.mask&(1<<uint(id)) != 0
}

// Call invokes every callback registered under id, if any.
func (r *NamedRegistry) Call(id int, s session.Session, data []byte) {
	if !r.HasAny(id) {
		return
	}
	r.mu.Lock()
	cbs := append([]namedCallback(nil), r.callbacks[id]...)
	r.mu.Unlock()
	for _, cb := range cbs {
		cb.fn(s, data, cb.userData)
	}
}

// SubParserFunc dispatches an inner payload given a small opaque key
// (e.g. an M3UA routing context, or a DCE/RPC interface UUID prefix).
type SubParserFunc func(s session.Session, data []byte, userData interface{})

// SubParserRegistry maps (parserName, hexKey) -> callback, for
// protocols that dispatch internal payloads by a small opaque key
// (M3UA routing contexts, DCE/RPC interface ids).
type SubParserRegistry struct {
	mu      sync.RWMutex
	entries map[string]map[string]subParserEntry
}

type subParserEntry struct {
	fn       SubParserFunc
	userData interface{}
}

// NewSubParserRegistry returns an empty registry.
func NewSubParserRegistry() *SubParserRegistry {
	return &SubParserRegistry{entries: make(map[string]map[string]subParserEntry)}
}

// Register adds a sub-parser under (parserName, hexKey).
func (r *SubParserRegistry) Register(parserName, hexKey string, fn SubParserFunc, userData interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.entries[parserName]
	if !ok {
		m = make(map[string]subParserEntry)
		r.entries[parserName] = m
	}
	m[hexKey] = subParserEntry{fn: fn, userData: userData}
}

// Call invokes the sub-parser registered under (parserName, hexKey),
// if any, returning whether one was found.
func (r *SubParserRegistry) Call(parserName, hexKey string, s session.Session, data []byte) bool {
	r.mu.RLock()
	m, ok := r.entries[parserName]
	var e subParserEntry
	if ok {
		e, ok = m[hexKey]
	}
	r.mu.RUnlock()
	if !ok {
		return false
	}
	e.fn(s, data, e.userData)
	return true
}
