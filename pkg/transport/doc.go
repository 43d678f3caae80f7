// Package transport adapts established connections to the
// subscription.Transport contract.
//
// Both adapters hand each encoded request to the connection synchronously
// and feed inbound messages to a FrameHandler from ReadLoop:
//
//   - StreamTransport: 4-byte big-endian length-prefixed frames over any
//     byte stream (TCP, net.Pipe)
//   - WebsocketTransport: one binary websocket message per request or
//     response, with ping/pong keep-alive
//
// DialTCP opens a StreamTransport to a publisher. TCPServer accepts
// connections and serves each one as a StreamTransport with its own session
// ID.
//
// # Framing
//
//	┌──────────────┬─────────────────────────┐
//	│ length (4B)  │ CBOR message            │
//	└──────────────┴─────────────────────────┘
//
// # Keep-Alive
//
// WebsocketTransport pings with a 4-byte sequence number and fails the
// connection after MaxMissedPongs consecutive unanswered pings. With the
// defaults (15s interval, 5s timeout, 3 missed) a dead peer is noticed
// within 50 seconds. ReadLoop then returns ErrKeepAliveTimeout and the host
// takes the engine offline.
//
// # Versioning
//
// The websocket client offers version.SupportedSubprotocols() and refuses a
// handshake whose selected subprotocol has another major version.
//
// Reconnect policy belongs to the host (see package connection) and TLS to
// the dialer. DialWebsocketWithRetry is a convenience that retries the
// handshake with a go-retry backoff.
package transport
