// Package connection implements the feed transport and its reconnect state machine.
//
// A Session owns one logical feed subscription:
//   - Dials through a Dialer (gorilla websocket in production, fakes in tests)
//   - Sends subscribe frames on connect and hands each message to a Handler
//   - Moves Disconnected -> Connecting -> Connected -> Error|Lost|Closed -> Disconnected
//   - Waits a DelayPolicy-chosen interval before every reconnect
//
// Transport failures surface as Events on the Conn, never as panics or callbacks.
package connection
