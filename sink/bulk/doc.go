package bulk

import (
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/google/renameio"

	"github.com/arkime-go/sesscore/session"
)

// DocSink spools each payload to its own file in a local directory,
// written atomically via rename so a consumer watching the directory
// never observes a half-written document.
type DocSink struct {
	dir string
	seq uint64
}

// NewDocSink returns a sink spooling into dir, which must exist.
func NewDocSink(dir string) *DocSink {
	return &DocSink{dir: dir}
}

// Send implements session.BulkSink.
func (d *DocSink) Send(data []byte, length int) error {
	n := atomic.AddUint64(&d.seq, 1)
	path := filepath.Join(d.dir, fmt.Sprintf("session-%08d.json", n))
	return renameio.WriteFile(path, data[:length], 0o644)
}

var _ session.BulkSink = (*DocSink)(nil)
