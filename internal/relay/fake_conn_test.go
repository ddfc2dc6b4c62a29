// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package relay

import (
	"io"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/alertrelay/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

// fakeConn records frames instead of writing to a socket.
type fakeConn struct {
	mu         sync.Mutex
	remote     string
	frames     [][]byte
	pings      int
	open       bool
	closed     bool
	terminated bool
	capacity   int // 0 = unlimited
}

func newFakeConn(remote string) *fakeConn {
	return &fakeConn{remote: remote, open: true}
}

func (c *fakeConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrConnClosed
	}
	if c.capacity > 0 && len(c.frames) >= c.capacity {
		return ErrQueueFull
	}
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrConnClosed
	}
	c.pings++
	return nil
}

func (c *fakeConn) Open() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.closed = true
}

func (c *fakeConn) Terminate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.terminated = true
}

func (c *fakeConn) RemoteAddr() string { return c.remote }

// messages decodes every recorded frame.
func (c *fakeConn) messages(t *testing.T) []map[string]json.RawMessage {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]json.RawMessage, len(c.frames))
	for i, f := range c.frames {
		if err := json.Unmarshal(f, &out[i]); err != nil {
			t.Fatalf("frame %d is not JSON: %v", i, err)
		}
	}
	return out
}

// types lists the "type" of every recorded frame.
func (c *fakeConn) types(t *testing.T) []string {
	t.Helper()
	msgs := c.messages(t)
	out := make([]string, len(msgs))
	for i, m := range msgs {
		_ = json.Unmarshal(m["type"], &out[i])
	}
	return out
}

func (c *fakeConn) state() (pings int, terminated bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pings, c.terminated
}
