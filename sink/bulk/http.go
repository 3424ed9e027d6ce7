package bulk

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/arkime-go/sesscore/session"
)

// HTTPSink POSTs each bulk payload to a fixed URL, the shape a
// bulk-ingest HTTP endpoint (e.g. an _bulk API) expects.
type HTTPSink struct {
	client *http.Client
	url    string
}

// NewHTTPSink returns a sink posting to url with a bounded per-request
// timeout.
func NewHTTPSink(url string, timeout time.Duration) *HTTPSink {
	return &HTTPSink{
		client: &http.Client{Timeout: timeout},
		url:    url,
	}
}

// Send implements session.BulkSink.
func (h *HTTPSink) Send(data []byte, length int) error {
	resp, err := h.client.Post(h.url, "application/x-ndjson", bytes.NewReader(data[:length]))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("bulk post: unexpected status %s", resp.Status)
	}
	return nil
}

var _ session.BulkSink = (*HTTPSink)(nil)
