// Package dissect implements the per-session dissector framework: a
// dynamic parser slot table, a named-callback registry
// for cross-parser extensibility, a sub-parser registry keyed by a
// small opaque key, and a per-parser two-direction buffer helper.
package dissect

import (
	"github.com/arkime-go/sesscore/session"
	"github.com/rs/zerolog/log"
)

var logger = log.Logger.With().Str("caller", "dissect").Logger()

// MaxParsers is the per-session parser slot cap.
const MaxParsers = 32

// growFactor is the slot table's growth multiplier.
const growFactor = 1.67

// ParseFunc is invoked on every subsequent byte chunk in direction which.
type ParseFunc func(s session.Session, userData interface{}, data []byte, which session.Direction)

// FreeFunc releases any resources userData holds; called on unregister
// and on session close.
type FreeFunc func(s session.Session, userData interface{})

// SaveFunc is invoked when the session is saved; final is true on the
// session-close save.
type SaveFunc func(s session.Session, userData interface{}, final bool)

type slot struct {
	parse    ParseFunc
	free     FreeFunc
	save     SaveFunc
	userData interface{}
	used     bool
}

// Table is one session's dynamic parser slot table. The zero value is
// ready to use. A Table must only be accessed from the single worker
// thread that owns its session; there is no internal locking.
type Table struct {
	slots   []slot
	dropped bool
}

// Register attaches a parser. If (parse, userData) already names an
// active entry, this is a no-op (functions are not comparable in Go,
// so identity is approximated by comparing userData only, which is
// how every dissector in this module keys its own per-session state).
func (t *Table) Register(s session.Session, parse ParseFunc, userData interface{}, free FreeFunc, save SaveFunc) {
	for i := range t.slots {
		if t.slots[i].used && t.slots[i].userData == userData {
			return
		}
	}

	idx := -1
	for i := range t.slots {
		if !t.slots[i].used {
			idx = i
			break
		}
	}

	if idx < 0 {
		if len(t.slots) >= MaxParsers {
			if !t.dropped {
				logger.Warn().Str("session", s.ID()).Msg("parser slot table full, dropping registration")
				t.dropped = true
			}
			return
		}
		newCap := cap(t.slots)
		if newCap == 0 {
			newCap = 2
		} else if len(t.slots) == cap(t.slots) {
			grown := int(float64(newCap) * growFactor)
			if grown <= newCap {
				grown = newCap + 1
			}
			if grown > MaxParsers {
				grown = MaxParsers
			}
			newCap = grown
		}
		if newCap > cap(t.slots) {
			grown := make([]slot, len(t.slots), newCap)
			copy(grown, t.slots)
			t.slots = grown
		}
		t.slots = append(t.slots, slot{})
		idx = len(t.slots) - 1
	}

	t.slots[idx] = slot{parse: parse, free: free, save: save, userData: userData, used: true}
}

// Unregister locates the entry by userData, invokes its free callback
// if set, and zeroes the slot. The slot is not compacted.
func (t *Table) Unregister(s session.Session, userData interface{}) {
	for i := range t.slots {
		if t.slots[i].used && t.slots[i].userData == userData {
			if t.slots[i].free != nil {
				t.slots[i].free(s, userData)
			}
			t.slots[i] = slot{}
			return
		}
	}
}

// Dispatch invokes every attached parser, in slot order, with the
// given chunk.
func (t *Table) Dispatch(s session.Session, data []byte, which session.Direction) {
	for i := range t.slots {
		if t.slots[i].used {
			t.slots[i].parse(s, t.slots[i].userData, data, which)
		}
	}
}

// Save invokes every attached parser's save callback, if set.
func (t *Table) Save(s session.Session, final bool) {
	for i := range t.slots {
		if t.slots[i].used && t.slots[i].save != nil {
			t.slots[i].save(s, t.slots[i].userData, final)
		}
	}
}

// Close invokes every attached parser's free callback, in slot order,
// then releases the table.
func (t *Table) Close(s session.Session) {
	for i := range t.slots {
		if t.slots[i].used && t.slots[i].free != nil {
			t.slots[i].free(s, t.slots[i].userData)
		}
	}
	t.slots = nil
}

// Len reports the number of occupied slots (used for tests/metrics).
func (t *Table) Len() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].used {
			n++
		}
	}
	return n
}
