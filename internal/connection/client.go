package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSDialer dials gorilla websocket connections.
type WSDialer struct {
	cfg    ClientConfig
	logger *slog.Logger
}

// NewWSDialer creates a websocket Dialer.
func NewWSDialer(cfg ClientConfig, logger *slog.Logger) *WSDialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSDialer{cfg: cfg, logger: logger}
}

// Dial establishes the websocket connection and starts its read and heartbeat loops.
func (d *WSDialer) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.cfg.HandshakeTimeout,
	}

	ws, _, err := dialer.DialContext(ctx, url, d.cfg.Header)
	if err != nil {
		return nil, err
	}

	c := &wsConn{
		cfg:        d.cfg,
		logger:     d.logger,
		conn:       ws,
		events:     make(chan Event, max(d.cfg.BufferSize, 1)),
		done:       make(chan struct{}),
		connected:  true,
		lastPingAt: time.Now(),
	}

	// Server sends ping, we respond with pong
	ws.SetPingHandler(func(data string) error {
		c.touch()
		return ws.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	// Server responds to our ping
	ws.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	go c.readLoop()
	if d.cfg.PingInterval > 0 {
		go c.heartbeatLoop()
	}

	d.logger.Debug("websocket connected", "url", url)

	return c, nil
}

// wsConn implements Conn over a gorilla websocket.
type wsConn struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn *websocket.Conn

	events chan Event
	done   chan struct{}

	// Write serialization
	writeMu sync.Mutex

	mu         sync.RWMutex
	connected  bool
	closed     bool
	lastPingAt time.Time

	terminate sync.Once
}

func (c *wsConn) Events() <-chan Event {
	return c.events
}

// Send writes a text frame.
func (c *wsConn) Send(data []byte) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a normal closure frame and releases the socket.
func (c *wsConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	c.mu.Unlock()

	close(c.done)

	c.writeMu.Lock()
	c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()

	return c.conn.Close()
}

func (c *wsConn) touch() {
	c.mu.Lock()
	c.lastPingAt = time.Now()
	c.mu.Unlock()
}

// finish emits the single terminal event.
func (c *wsConn) finish(ev Event) {
	c.terminate.Do(func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()

		select {
		case c.events <- ev:
		case <-c.done:
		}
	})
}

// readLoop forwards frames as EventMessage and the first read error as a terminal event.
func (c *wsConn) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}
			c.finish(terminalEvent(err, receivedAt))
			return
		}

		select {
		case c.events <- Event{Type: EventMessage, Data: data, At: receivedAt}:
		case <-c.done:
			return
		default:
			c.logger.Warn("event buffer full, dropping message")
		}
	}
}

// terminalEvent classifies a read error. A close frame from the peer is a
// clean close; anything else (including gorilla's synthesized 1006) is a loss.
func terminalEvent(err error, at time.Time) Event {
	var ce *websocket.CloseError
	if errors.As(err, &ce) && ce.Code != websocket.CloseAbnormalClosure {
		return Event{Type: EventClosed, Code: ce.Code, WasClean: true, Err: err, At: at}
	}
	ev := Event{Type: EventLost, Err: err, At: at}
	if ce != nil {
		ev.Code = ce.Code
	}
	return ev
}

// heartbeatLoop pings the server and reports a stale connection.
func (c *wsConn) heartbeatLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), time.Now().Add(c.cfg.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}

			c.mu.RLock()
			lastPing := c.lastPingAt
			c.mu.RUnlock()

			if c.cfg.PingTimeout > 0 && time.Since(lastPing) > c.cfg.PingTimeout {
				c.logger.Warn("no ping received, connection stale",
					"last_ping", lastPing,
					"timeout", c.cfg.PingTimeout,
				)
				c.finish(Event{Type: EventLost, Err: ErrStaleConnection, At: time.Now()})
				c.conn.Close()
				return
			}
		}
	}
}
