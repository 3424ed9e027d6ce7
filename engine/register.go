package engine

import (
	"github.com/arkime-go/sesscore/classify"
	"github.com/arkime-go/sesscore/config"
	"github.com/arkime-go/sesscore/dissect"
	"github.com/arkime-go/sesscore/session"

	"github.com/arkime-go/sesscore/proto/dns"
	"github.com/arkime-go/sesscore/proto/http"
	"github.com/arkime-go/sesscore/proto/smb"
	"github.com/arkime-go/sesscore/proto/smtp"
	"github.com/arkime-go/sesscore/proto/socks"
	"github.com/arkime-go/sesscore/proto/tls"
)

// RegisterBuiltin wires every in-tree protocol dissector and the
// well-known banner taggers into the engine's registries, honoring
// cfg's disableParsers list. Must run before the capture reader
// starts; the registries are read-only afterward.
func (e *Engine) RegisterBuiltin(cfg *config.Config) {
	enabled := func(name string) bool {
		return cfg == nil || !cfg.ParserDisabled(name)
	}

	tbl := func(s session.Session) *dissect.Table {
		parsersAttached.Inc()
		return e.TableFor(s)
	}

	if enabled("tls") {
		tls.Register(e.TCP, tbl)
	}
	if enabled("smtp") {
		smtp.Register(e.TCP, tbl, func(s session.Session, data []byte, which session.Direction) {
			tls.Parse(s, data, which)
		})
	}
	if enabled("dns") {
		dns.Register(e.UDP, e.TCP)
	}
	if enabled("smb") {
		smb.Register(e.TCP, tbl)
	}
	if enabled("socks") {
		socks.Register(e.TCP, tbl, e.Reclassify)
	}
	if enabled("http") {
		http.Register(e.TCP, tbl)
	}
	if enabled("wellknown") {
		classify.RegisterWellKnown(e.TCP)
	}
}
