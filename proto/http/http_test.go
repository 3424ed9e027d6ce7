package http

import (
	"testing"

	"github.com/arkime-go/sesscore/dissect"
	"github.com/arkime-go/sesscore/session"
	"github.com/stretchr/testify/require"
)

func TestRequestLineHostAndQueryFields(t *testing.T) {
	var tbl dissect.Table
	s := session.NewFake(session.TCP, 51000, 80)
	Attach(&tbl, s)

	req := "GET /index.html?a=1&b=2 HTTP/1.1\r\nHost: Example.COM\r\n\r\n"
	tbl.Dispatch(s, []byte(req), session.ToResponder)

	require.True(t, s.HasTag(TagProtocolHTTP))
	require.True(t, s.HasString(FieldHTTPHost, "example.com"))
	require.True(t, s.HasString(FieldHTTPPath, "/index.html"))
	require.True(t, s.HasString(FieldHTTPKey, "a"))
	require.True(t, s.HasString(FieldHTTPValue, "1"))
	require.True(t, s.HasString(FieldHTTPKey, "b"))
	require.True(t, s.HasString(FieldHTTPValue, "2"))
}

func TestRequestLineSplitAcrossChunks(t *testing.T) {
	var tbl dissect.Table
	s := session.NewFake(session.TCP, 51000, 80)
	Attach(&tbl, s)

	req := "GET /a?x=9 HTTP/1.1\r\nHost: split.example\r\n\r\n"
	tbl.Dispatch(s, []byte(req[:5]), session.ToResponder)
	tbl.Dispatch(s, []byte(req[5:]), session.ToResponder)

	require.True(t, s.HasString(FieldHTTPHost, "split.example"))
	require.True(t, s.HasString(FieldHTTPKey, "x"))
	require.True(t, s.HasString(FieldHTTPValue, "9"))
}

func TestXForwardedForAccepted(t *testing.T) {
	var tbl dissect.Table
	s := session.NewFake(session.TCP, 51000, 80)
	Attach(&tbl, s)

	req := "GET / HTTP/1.1\r\nHost: a\r\nX-Forwarded-For: 10.0.0.5, 10.0.0.1\r\n\r\n"
	tbl.Dispatch(s, []byte(req), session.ToResponder)

	require.False(t, s.HasTag(TagBadIPHash))
}

func TestXForwardedForBroadcastRejectedBugCompat(t *testing.T) {
	var tbl dissect.Table
	s := session.NewFake(session.TCP, 51000, 80)
	Attach(&tbl, s)

	req := "GET / HTTP/1.1\r\nHost: a\r\nX-Forwarded-For: 255.255.255.255\r\n\r\n"
	tbl.Dispatch(s, []byte(req), session.ToResponder)

	require.True(t, s.HasTag(TagBadIPHash))
}

func TestResponseStatusLineIgnoredNoPathField(t *testing.T) {
	var tbl dissect.Table
	s := session.NewFake(session.TCP, 80, 51000)
	Attach(&tbl, s)

	resp := "HTTP/1.1 200 OK\r\nHost: ignored\r\n\r\n"
	tbl.Dispatch(s, []byte(resp), session.ToInitiator)

	require.True(t, s.HasTag(TagProtocolHTTP))
	require.False(t, s.HasString(FieldHTTPPath, ""))
}
