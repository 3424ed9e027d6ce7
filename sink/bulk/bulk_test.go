package bulk

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arkime-go/sesscore/session"
)

type captureSink struct {
	calls    [][]byte
	failures int
}

func (c *captureSink) Send(data []byte, length int) error {
	if c.failures > 0 {
		c.failures--
		return errors.New("back-pressure")
	}
	c.calls = append(c.calls, append([]byte(nil), data[:length]...))
	return nil
}

func TestBatcherSingleModeFlushesPerRecord(t *testing.T) {
	sink := &captureSink{}
	b := NewBatcher(sink, session.BulkSingle, false)

	require.NoError(t, b.Queue(map[string]interface{}{"a": 1}))
	require.NoError(t, b.Queue(map[string]interface{}{"b": 2}))

	require.Len(t, sink.calls, 2)
	require.True(t, bytes.HasSuffix(sink.calls[0], []byte("\n")))
}

func TestBatcherBatchModeBuffersUntilFlush(t *testing.T) {
	sink := &captureSink{}
	b := NewBatcher(sink, session.BulkBatch, false)

	require.NoError(t, b.Queue(map[string]interface{}{"a": 1}))
	require.NoError(t, b.Queue(map[string]interface{}{"b": 2}))
	require.Empty(t, sink.calls)

	b.Flush()
	require.Len(t, sink.calls, 1)
	require.Equal(t, 2, strings.Count(string(sink.calls[0]), "\n"))
}

func TestBatcherRetriesThenDrops(t *testing.T) {
	sink := &captureSink{failures: maxSendRetries}
	b := NewBatcher(sink, session.BulkSingle, false)

	require.NoError(t, b.Queue(map[string]interface{}{"a": 1}))
	require.Equal(t, uint64(1), b.Dropped)
	require.Empty(t, sink.calls)

	// one transient failure: the retry succeeds, nothing dropped
	sink2 := &captureSink{failures: 1}
	b2 := NewBatcher(sink2, session.BulkSingle, false)
	require.NoError(t, b2.Queue(map[string]interface{}{"a": 1}))
	require.Equal(t, uint64(0), b2.Dropped)
	require.Len(t, sink2.calls, 1)
}

func TestBatcherCompression(t *testing.T) {
	sink := &captureSink{}
	b := NewBatcher(sink, session.BulkSingle, true)

	require.NoError(t, b.Queue(map[string]interface{}{"key": "value"}))
	require.Len(t, sink.calls, 1)

	zr, err := gzip.NewReader(bytes.NewReader(sink.calls[0]))
	require.NoError(t, err)
	plain, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Contains(t, string(plain), `"key":"value"`)
}

func TestDocSinkWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	d := NewDocSink(dir)

	require.NoError(t, d.Send([]byte(`{"x":1}`), 7))
	require.NoError(t, d.Send([]byte(`{"y":2}`), 7))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	body, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Equal(t, `{"x":1}`, string(body))
}
