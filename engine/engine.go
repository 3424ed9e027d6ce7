// Package engine wires the classifier, dissector framework, content
// typer, and bulk output into the façade a capture reader drives: one
// Classify* call on the first in-order chunk of each direction, then
// ParseDispatch for every subsequent chunk, SessionSave on periodic
// saves, SessionClose at teardown. The engine owns no sockets and no
// sessions; everything arrives through the session.Session handle.
package engine

import (
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/arkime-go/sesscore/classify"
	"github.com/arkime-go/sesscore/config"
	"github.com/arkime-go/sesscore/dissect"
	"github.com/arkime-go/sesscore/magic"
	"github.com/arkime-go/sesscore/session"
	"github.com/arkime-go/sesscore/sink/bulk"
)

var logger = log.Logger.With().Str("caller", "engine").Logger()

// tableKey is the session-slot key under which the engine stores each
// session's dissector table.
type tableKey struct{}

// classifiedKey tracks, per direction, whether the first-chunk
// classification already ran for a session.
type classifiedKey struct{}

// Engine is the assembled analysis core. Construct with New, register
// protocol dissectors (RegisterBuiltin or direct classify calls)
// before the capture reader starts, then treat it as read-only.
type Engine struct {
	TCP  *classify.Registry
	UDP  *classify.Registry
	SCTP *classify.Registry

	Named *dissect.NamedRegistry
	Sub   *dissect.SubParserRegistry
	Typer *magic.Resolver

	batcher  *bulk.Batcher
	extraOps []config.FieldOp
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithBatcher attaches a bulk output batcher; saved sessions that
// implement session.Exporter are queued to it on their final save.
func WithBatcher(b *bulk.Batcher) Option {
	return func(e *Engine) { e.batcher = b }
}

// WithTyper overrides the content-typer resolver.
func WithTyper(r *magic.Resolver) Option {
	return func(e *Engine) { e.Typer = r }
}

// WithExtraOps applies cfg's extraOps field expressions to every
// session at final save.
func WithExtraOps(ops []config.FieldOp) Option {
	return func(e *Engine) { e.extraOps = ops }
}

// New builds an Engine with empty registries and the built-in typer in
// both mode.
func New(opts ...Option) *Engine {
	e := &Engine{
		TCP:   classify.NewRegistry(session.TCP),
		UDP:   classify.NewRegistry(session.UDP),
		SCTP:  classify.NewRegistry(session.SCTP),
		Named: dissect.NewNamedRegistry(),
		Sub:   dissect.NewSubParserRegistry(),
		Typer: magic.NewResolver(magic.ModeBoth, magic.NewLibrary()),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TableFor returns s's dissector table, creating it on first use. The
// returned pointer is stable for the session's lifetime.
func (e *Engine) TableFor(s session.Session) *dissect.Table {
	if slot, ok := s.Get(tableKey{}); ok {
		return slot.(*dissect.Table)
	}
	t := &dissect.Table{}
	s.Set(tableKey{}, t)
	return t
}

func (e *Engine) markClassified(s session.Session, which session.Direction) bool {
	var seen [2]bool
	if slot, ok := s.Get(classifiedKey{}); ok {
		seen = slot.([2]bool)
	}
	if seen[which] {
		return false
	}
	seen[which] = true
	s.Set(classifiedKey{}, seen)
	return true
}

// ClassifyTCP runs the TCP dispatch tables against the first in-order
// chunk of direction which. Calling it again for the same direction is
// a no-op, so a capture reader may call it unconditionally.
func (e *Engine) ClassifyTCP(s session.Session, data []byte, which session.Direction) {
	if !e.markClassified(s, which) {
		return
	}
	classificationsRun.Inc()
	e.TCP.Classify(s, data, which, -1)
}

// ClassifyUDP is ClassifyTCP for UDP sessions.
func (e *Engine) ClassifyUDP(s session.Session, data []byte, which session.Direction) {
	if !e.markClassified(s, which) {
		return
	}
	classificationsRun.Inc()
	e.UDP.Classify(s, data, which, -1)
}

// ClassifySCTP is ClassifyTCP for SCTP, additionally consulting the
// payload-protocol-id bucket when protocolID is in range.
func (e *Engine) ClassifySCTP(s session.Session, data []byte, which session.Direction, protocolID int) {
	if !e.markClassified(s, which) {
		return
	}
	classificationsRun.Inc()
	e.SCTP.Classify(s, data, which, protocolID)
}

// Reclassify re-runs the content tables against a mid-stream payload,
// the SOCKS4 "invoke the classifier on the remainder" path. It does
// not consume the once-per-direction mark.
func (e *Engine) Reclassify(s session.Session, data []byte, which session.Direction) {
	switch s.Transport() {
	case session.UDP:
		e.UDP.Classify(s, data, which, -1)
	case session.SCTP:
		e.SCTP.Classify(s, data, which, -1)
	default:
		e.TCP.Classify(s, data, which, -1)
	}
}

// ParseDispatch routes a subsequent chunk to every parser attached to
// s, honoring the per-direction skip counter the reader maintains.
func (e *Engine) ParseDispatch(s session.Session, data []byte, which session.Direction) {
	if skip := s.Skip(which); *skip > 0 {
		n := *skip
		if n > len(data) {
			n = len(data)
		}
		*skip -= n
		data = data[n:]
	}
	if len(data) == 0 {
		return
	}
	if slot, ok := s.Get(tableKey{}); ok {
		slot.(*dissect.Table).Dispatch(s, data, which)
	}
}

// SessionSave invokes every parser's save callback; on the final save
// it also applies extraOps and queues the session record to the bulk
// batcher if one is attached and the session can export itself.
func (e *Engine) SessionSave(s session.Session, final bool) {
	if slot, ok := s.Get(tableKey{}); ok {
		slot.(*dissect.Table).Save(s, final)
	}
	if !final {
		return
	}
	for i, op := range e.extraOps {
		if v, err := strconv.ParseUint(op.Value, 10, 32); err == nil {
			s.AddInt(extraOpFieldBase+session.FieldID(i), uint32(v))
		} else {
			s.AddString(extraOpFieldBase+session.FieldID(i), op.Value, true)
		}
	}
	if e.batcher == nil {
		return
	}
	exp, ok := s.(session.Exporter)
	if !ok {
		return
	}
	if err := e.batcher.Queue(exp.Export()); err != nil {
		logger.Warn().Err(err).Str("session", s.ID()).Msg("failed to queue session record")
	}
}

// extraOpFieldBase is where extraOps field ids start; the concrete
// id-to-column mapping belongs to the field sink, these just have to
// be distinct from the dissectors' ids.
const extraOpFieldBase session.FieldID = 9500

// SessionClose runs the final save (which queues the session's record
// with the batcher, if any) and releases every parser slot in order.
// It does not flush the batcher; see Flush.
func (e *Engine) SessionClose(s session.Session) {
	e.SessionSave(s, true)
	sessionsClosed.Inc()
	if slot, ok := s.Get(tableKey{}); ok {
		slot.(*dissect.Table).Close(s)
		s.Delete(tableKey{})
	}
	s.Delete(classifiedKey{})
}

// Flush forces any buffered bulk output downstream, typically at
// shutdown after the last SessionClose.
func (e *Engine) Flush() {
	if e.batcher != nil {
		e.batcher.Flush()
	}
}
