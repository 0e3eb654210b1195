package connection

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// State is the lifecycle state of a Session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
	StateLost
	StateClosed // closed by peer
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	case StateLost:
		return "lost"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// EventType identifies what happened on a connection.
type EventType int

const (
	EventDial       EventType = iota // session starts connecting
	EventConnected                   // handshake completed
	EventDialFailed                  // handshake or target resolution failed
	EventMessage                     // data frame received
	EventError                       // handler rejected a message or subscribe failed
	EventLost                        // read failed or heartbeat went stale
	EventClosed                      // peer sent a close frame
	EventReset                       // connection handle discarded
)

func (t EventType) String() string {
	switch t {
	case EventDial:
		return "dial"
	case EventConnected:
		return "connected"
	case EventDialFailed:
		return "dial_failed"
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	case EventLost:
		return "lost"
	case EventClosed:
		return "closed"
	case EventReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Event is a single occurrence on a connection.
type Event struct {
	Type     EventType
	Data     []byte    // Raw frame (EventMessage only)
	Err      error     // Cause (EventDialFailed, EventError, EventLost)
	Code     int       // Close code (EventClosed only)
	WasClean bool      // Peer completed the close handshake
	At       time.Time // Local receive time
}

// Conn is an established connection. Events delivers frames and exactly one
// terminal event (EventLost or EventClosed) unless Close is called first.
type Conn interface {
	Events() <-chan Event
	Send(data []byte) error
	Close() error
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// DialerFunc is a function adapter for Dialer.
type DialerFunc func(ctx context.Context, url string) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, url string) (Conn, error) {
	return f(ctx, url)
}

// ClientConfig configures the websocket transport.
type ClientConfig struct {
	Header           http.Header   // Extra handshake headers
	HandshakeTimeout time.Duration // Max time for the opening handshake
	PingInterval     time.Duration // How often we ping the server
	PingTimeout      time.Duration // Max time without ping/pong before considering connection stale
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Event channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      90 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1000,
	}
}
