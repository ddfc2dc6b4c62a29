// Alertrelay - Real-time Security Alert Relay Hub
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/alertrelay

package relay

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/alertrelay/internal/logging"
	"github.com/tomtom215/alertrelay/internal/metrics"
)

var (
	// ErrConnClosed is returned when sending on a connection that is closing.
	ErrConnClosed = errors.New("connection closed")
	// ErrQueueFull is returned when a connection's outbound queue is full.
	ErrQueueFull = errors.New("outbound queue full")
)

// Conn is the hub's handle on one client connection. Implementations are
// used as map keys and must be comparable (pointer types).
type Conn interface {
	// Send queues a text frame without blocking.
	Send(frame []byte) error
	// Ping queues a liveness probe without blocking.
	Ping() error
	// Open reports whether frames can still be queued.
	Open() bool
	// Close sends a close frame, then tears the connection down.
	Close()
	// Terminate tears the connection down immediately.
	Terminate()
	// RemoteAddr is the peer address for logging.
	RemoteAddr() string
}

// TransportConfig tunes the WebSocket pumps.
type TransportConfig struct {
	// SendQueueSize is the outbound queue length per connection.
	SendQueueSize int
	// WriteTimeout bounds one socket write.
	WriteTimeout time.Duration
	// MaxMessageBytes caps inbound frames; larger frames close the connection.
	MaxMessageBytes int64
}

// DefaultTransportConfig returns the transport defaults.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		SendQueueSize:   256,
		WriteTimeout:    10 * time.Second,
		MaxMessageBytes: 64 << 10,
	}
}

type frameKind int

const (
	frameText frameKind = iota
	framePing
	frameClose
)

type outbound struct {
	kind frameKind
	data []byte
}

// wsConn adapts a gorilla connection to Conn. The read pump feeds the hub;
// the write pump is the only writer on the socket.
type wsConn struct {
	ws     *websocket.Conn
	remote string
	cfg    TransportConfig

	out       chan outbound
	done      chan struct{}
	open      atomic.Bool
	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn, remote string, cfg TransportConfig) *wsConn {
	c := &wsConn{
		ws:     ws,
		remote: remote,
		cfg:    cfg,
		out:    make(chan outbound, cfg.SendQueueSize),
		done:   make(chan struct{}),
	}
	c.open.Store(true)
	return c
}

func (c *wsConn) enqueue(f outbound) error {
	if !c.open.Load() {
		return ErrConnClosed
	}
	select {
	case c.out <- f:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrQueueFull
	}
}

func (c *wsConn) Send(frame []byte) error {
	return c.enqueue(outbound{kind: frameText, data: frame})
}

func (c *wsConn) Ping() error {
	return c.enqueue(outbound{kind: framePing})
}

func (c *wsConn) Open() bool {
	return c.open.Load()
}

func (c *wsConn) RemoteAddr() string {
	return c.remote
}

func (c *wsConn) Close() {
	if !c.open.Swap(false) {
		return
	}
	select {
	case c.out <- outbound{kind: frameClose}:
	default:
		c.Terminate()
	}
}

func (c *wsConn) Terminate() {
	c.closeOnce.Do(func() {
		c.open.Store(false)
		close(c.done)
		_ = c.ws.Close() // Explicitly ignore error - best-effort cleanup
	})
}

// readPump forwards inbound frames to the hub until the socket fails.
func (c *wsConn) readPump(h *Hub) {
	defer func() {
		c.Terminate()
		h.post(closedEvent{conn: c})
	}()

	c.ws.SetReadLimit(c.cfg.MaxMessageBytes)
	c.ws.SetPongHandler(func(string) error {
		h.post(pongEvent{conn: c})
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				metrics.WSErrors.WithLabelValues("read").Inc()
				logging.Debug().Err(err).Str("remote_addr", c.remote).Msg("unexpected websocket close")
			}
			return
		}
		h.post(messageEvent{conn: c, data: data, at: h.now()})
	}
}

// writePump drains the outbound queue onto the socket.
func (c *wsConn) writePump() {
	defer c.Terminate()

	for {
		select {
		case <-c.done:
			return
		case f := <-c.out:
			if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
				return
			}

			var err error
			switch f.kind {
			case frameText:
				err = c.ws.WriteMessage(websocket.TextMessage, f.data)
				if err == nil {
					metrics.WSMessagesSent.Inc()
				}
			case framePing:
				err = c.ws.WriteMessage(websocket.PingMessage, nil)
			case frameClose:
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
				_ = c.ws.WriteMessage(websocket.CloseMessage, msg)
				return
			}
			if err != nil {
				metrics.WSErrors.WithLabelValues("write").Inc()
				logging.Debug().Err(err).Str("remote_addr", c.remote).Msg("websocket write failed")
				return
			}
		}
	}
}
