package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Fake is an in-memory Session implementation used by this module's
// own tests and by engine's demo wiring. It is not meant as a
// production field store -- a real deployment's capture reader
// supplies its own Session backed by the actual field/tag storage
// engine.
type Fake struct {
	id            string
	transport     Transport
	portInit      uint16
	portResp      uint16
	skip          [2]int
	mu            sync.Mutex
	Tags          map[string]struct{}
	Strings       map[FieldID][]string
	Ints          map[FieldID][]uint32
	slots         map[interface{}]ParserSlot
}

// NewFake builds a Fake session with a uuid correlation id.
func NewFake(tr Transport, portInit, portResp uint16) *Fake {
	return &Fake{
		id:        uuid.NewString(),
		transport: tr,
		portInit:  portInit,
		portResp:  portResp,
		Tags:      make(map[string]struct{}),
		Strings:   make(map[FieldID][]string),
		Ints:      make(map[FieldID][]uint32),
		slots:     make(map[interface{}]ParserSlot),
	}
}

func (f *Fake) ID() string             { return f.id }
func (f *Fake) Transport() Transport   { return f.transport }
func (f *Fake) PortInitiator() uint16  { return f.portInit }
func (f *Fake) PortResponder() uint16  { return f.portResp }

func (f *Fake) Skip(which Direction) *int {
	return &f.skip[which]
}

func (f *Fake) AddTag(tag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Tags[tag] = struct{}{}
}

func (f *Fake) AddString(fieldID FieldID, s string, intern bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.Strings[fieldID] {
		if existing == s {
			return true
		}
	}
	f.Strings[fieldID] = append(f.Strings[fieldID], s)
	return true
}

func (f *Fake) AddInt(fieldID FieldID, v uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.Ints[fieldID] {
		if existing == v {
			return
		}
	}
	f.Ints[fieldID] = append(f.Ints[fieldID], v)
}

func (f *Fake) Get(key interface{}) (ParserSlot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.slots[key]
	return v, ok
}

func (f *Fake) Set(key interface{}, slot ParserSlot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots[key] = slot
}

func (f *Fake) Delete(key interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.slots, key)
}

// HasString reports whether fieldID has value s recorded, a small test helper.
func (f *Fake) HasString(fieldID FieldID, s string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.Strings[fieldID] {
		if v == s {
			return true
		}
	}
	return false
}

// HasTag reports whether tag was recorded.
func (f *Fake) HasTag(tag string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Tags[tag]
	return ok
}

// Export implements Exporter: tags under "tags", string fields keyed
// "f<N>", int fields keyed "i<N>".
func (f *Fake) Export() map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]interface{}{
		"id":        f.id,
		"transport": f.transport.String(),
	}
	tags := make([]string, 0, len(f.Tags))
	for tag := range f.Tags {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	out["tags"] = tags
	for id, vals := range f.Strings {
		out[fmt.Sprintf("f%d", id)] = append([]string(nil), vals...)
	}
	for id, vals := range f.Ints {
		out[fmt.Sprintf("i%d", id)] = append([]uint32(nil), vals...)
	}
	return out
}
