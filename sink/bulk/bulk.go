// Package bulk implements the pluggable bulk-send output side of the
// core: a Batcher that JSON-encodes saved session records and hands
// batches to a session.BulkSink, plus concrete sink implementations
// (kafka, http, local doc spool). The core only ever sees the
// session.BulkSink interface; everything here is a plug-in behind it.
package bulk

import (
	"bytes"
	"sync"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"

	"github.com/arkime-go/sesscore/session"
)

var logger = log.Logger.With().Str("caller", "sink.bulk").Logger()

// maxSendRetries bounds the Batcher's retry loop on sink back-pressure
// before the batch is dropped and Dropped incremented.
const maxSendRetries = 3

// Batcher accumulates serialized session records and flushes them to a
// sink according to the configured mode: batch (up to
// session.MaxBatchRecords per call), single (batches of 1), or doc
// (non-batched documents, one Send per record, no newline framing).
type Batcher struct {
	sink     session.BulkSink
	mode     session.BulkMode
	compress bool

	mu      sync.Mutex
	buf     bytes.Buffer
	pending int

	// Dropped counts batches abandoned after maxSendRetries failures.
	Dropped uint64
	// Sent counts successful Send calls.
	Sent uint64
}

// NewBatcher wraps sink in the given mode. compress gzips each batch
// before handing it to the sink (doc mode never compresses, matching
// document stores that want the raw body).
func NewBatcher(sink session.BulkSink, mode session.BulkMode, compress bool) *Batcher {
	return &Batcher{sink: sink, mode: mode, compress: compress}
}

// Queue serializes record and either buffers it or, depending on mode
// and fill level, flushes immediately.
func (b *Batcher) Queue(record map[string]interface{}) error {
	encoded, err := json.Marshal(record)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.mode {
	case session.BulkDoc:
		b.send(encoded)
		return nil
	case session.BulkSingle:
		b.buf.Write(encoded)
		b.buf.WriteByte('\n')
		b.flushLocked()
		return nil
	default:
		b.buf.Write(encoded)
		b.buf.WriteByte('\n')
		b.pending++
		if b.pending >= session.MaxBatchRecords {
			b.flushLocked()
		}
		return nil
	}
}

// Flush sends any buffered records.
func (b *Batcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

func (b *Batcher) flushLocked() {
	if b.buf.Len() == 0 {
		return
	}
	payload := append([]byte(nil), b.buf.Bytes()...)
	b.buf.Reset()
	b.pending = 0
	b.send(payload)
}

func (b *Batcher) send(payload []byte) {
	if b.compress && b.mode != session.BulkDoc {
		var zbuf bytes.Buffer
		zw := gzip.NewWriter(&zbuf)
		zw.Write(payload)
		if err := zw.Close(); err == nil {
			payload = zbuf.Bytes()
		}
	}

	for attempt := 0; attempt < maxSendRetries; attempt++ {
		if err := b.sink.Send(payload, len(payload)); err == nil {
			b.Sent++
			return
		} else if attempt == maxSendRetries-1 {
			logger.Warn().Err(err).Int("bytes", len(payload)).Msg("bulk send failed, dropping batch")
		}
	}
	b.Dropped++
}
