package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/star/satkit/internal/metrics"
)

// writeDeadline bounds each individual SSE write; a stuck client is dropped
// rather than pinning a goroutine forever.
const writeDeadline = 30 * time.Second

// client is the write side of one SSE connection.
type client struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
	ip      string
	logger  *slog.Logger

	messagesSent int64
	bytesSent    int64
}

// write pushes one pre-formatted SSE frame and flushes it.
func (c *client) write(frame string) (int, error) {
	if err := c.rc.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		c.logger.Debug("could not set write deadline", "error", err)
	}

	n, err := fmt.Fprint(c.w, frame)
	if err != nil {
		return n, err
	}
	c.flusher.Flush()

	c.bytesSent += int64(n)
	metrics.AddStreamBytes(int64(n))
	return n, nil
}

// sendRaw wraps already-marshaled JSON in an SSE "data:" frame.
func (c *client) sendRaw(data []byte) error {
	if _, err := c.write(fmt.Sprintf("data: %s\n\n", data)); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	c.messagesSent++
	metrics.IncStreamMessages()
	return nil
}

// sendJSON marshals v and sends it as an SSE "data:" frame.
func (c *client) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	return c.sendRaw(data)
}

// sendKeepalive emits an SSE comment, which clients ignore but proxies and
// idle-timeout middleboxes count as traffic.
func (c *client) sendKeepalive() error {
	if _, err := c.write(":\n\n"); err != nil {
		return fmt.Errorf("keepalive write: %w", err)
	}
	return nil
}
