package provider

import (
	"time"

	"github.com/rickgao/altrates/internal/connection"
)

// DefaultCloseDelay applies to close codes without an entry in closeDelays.
const DefaultCloseDelay = 600 * time.Second

// closeDelays maps websocket close codes to reconnect waits.
var closeDelays = map[int]time.Duration{
	1000: 10 * time.Second,  // normal closure
	1001: 60 * time.Second,  // going away
	1011: 60 * time.Second,  // internal error
	1012: 60 * time.Second,  // service restart
	1013: 300 * time.Second, // try again later
}

// CloseCodeDelay returns the reconnect wait for a close code.
func CloseCodeDelay(code int) time.Duration {
	if d, ok := closeDelays[code]; ok {
		return d
	}
	return DefaultCloseDelay
}

// CloseDelay is the provider reconnect policy. Clean closes wait half as long.
func CloseDelay(ev connection.Event) time.Duration {
	d := CloseCodeDelay(ev.Code)
	if ev.Type == connection.EventClosed && ev.WasClean {
		d /= 2
	}
	return d
}
