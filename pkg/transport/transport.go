// Package transport wraps one gorilla/websocket connection as a
// duplex channel of wire.Envelope messages: a buffered outgoing queue
// drained by a write pump, ping/pong keep-alive, and a read loop that
// hands decoded envelopes to a caller-supplied handler. The Connection
// Broker owns the registry of these; a Conn itself knows nothing about
// principals or sessions.
package transport

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"runeforge/pkg/wire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 5 * time.Second
	pingPeriod     = (pongWait * 7) / 10
	defaultMaxSize = 64 * 1024
	sendBufferSize = 64
)

// Conn is one upgraded WebSocket connection, safe for concurrent Send
// calls. Outgoing envelopes are queued and delivered in send order by
// a single write pump goroutine, matching the wire protocol's
// per-connection ordering guarantee.
type Conn struct {
	ws     *websocket.Conn
	send   chan wire.Envelope
	closed chan struct{}
	once   sync.Once
}

// NewConn wraps an already-upgraded websocket.Conn. maxMessageBytes <=
// 0 falls back to a conservative default.
func NewConn(ws *websocket.Conn, maxMessageBytes int64) *Conn {
	if maxMessageBytes <= 0 {
		maxMessageBytes = defaultMaxSize
	}
	ws.SetReadLimit(maxMessageBytes)
	return &Conn{
		ws:     ws,
		send:   make(chan wire.Envelope, sendBufferSize),
		closed: make(chan struct{}),
	}
}

// RemoteAddr reports the underlying network peer address.
func (c *Conn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

// Send enqueues env for delivery, dropping it without blocking if the
// outgoing buffer is full: a slow reader must not stall every other
// connection's goroutine.
func (c *Conn) Send(env wire.Envelope) bool {
	select {
	case c.send <- env:
		return true
	case <-c.closed:
		return false
	default:
		logrus.WithFields(logrus.Fields{
			"function": "Send",
			"package":  "transport",
		}).Warn("outgoing buffer full, dropping message")
		return false
	}
}

// ReadLoop blocks, decoding one wire.Envelope per frame and invoking
// handle, until the connection errors or closes. Malformed frames are
// skipped rather than ending the loop, since one bad frame should not
// drop the whole connection.
func (c *Conn) ReadLoop(handle func(wire.Envelope)) {
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var env wire.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "ReadLoop",
				"package":  "transport",
				"error":    err,
			}).Debug("dropping malformed frame")
			continue
		}
		handle(env)
	}
}

// WritePump drains the outgoing queue and sends periodic pings until
// the connection is closed. It must run in its own goroutine; callers
// should start it alongside ReadLoop.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case env, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// Close sends a close frame carrying code and reason, then tears down
// the underlying connection. Safe to call more than once.
func (c *Conn) Close(code int, reason string) {
	c.once.Do(func() {
		close(c.closed)
		deadline := time.Now().Add(writeWait)
		msg := websocket.FormatCloseMessage(code, reason)
		c.ws.WriteControl(websocket.CloseMessage, msg, deadline)
		c.ws.Close()
	})
}

// Upgrader upgrades incoming HTTP requests to *Conn, checking the
// request Origin against allowOrigin before completing the handshake.
type Upgrader struct {
	upgrader        websocket.Upgrader
	maxMessageBytes int64
}

// NewUpgrader builds an Upgrader that rejects any connection whose
// Origin header does not satisfy allowOrigin.
func NewUpgrader(allowOrigin func(origin string) bool, maxMessageBytes int64) *Upgrader {
	return &Upgrader{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				allowed := allowOrigin(origin)
				if !allowed {
					logrus.WithFields(logrus.Fields{
						"function": "CheckOrigin",
						"package":  "transport",
						"origin":   origin,
					}).Warn("websocket connection rejected: origin not allowed")
				}
				return allowed
			},
		},
		maxMessageBytes: maxMessageBytes,
	}
}

// Upgrade completes the HTTP->WebSocket handshake and returns a *Conn
// ready for ReadLoop/WritePump.
func (u *Upgrader) Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return NewConn(ws, u.maxMessageBytes), nil
}
