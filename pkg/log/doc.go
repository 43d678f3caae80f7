// Package log provides structured protocol capture for the subscription engine.
//
// This package defines the Logger interface and Event types for recording
// what the engine did and why: requests handed to the transport, inbound
// messages applied to subscriptions, subscription state transitions,
// notifications raised to consumers and internal failures. It is separate
// from operational logging (slog); the capture is a machine-readable trace
// for replaying a session after the fact.
//
// # Basic Usage
//
//	// Development: print events through slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// Production: append CBOR events to a file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/pubsync/session.plog")
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(a, b)
//
// # Event Types
//
// Events are captured at three layers:
//   - Transport: raw frame bytes (FrameEvent)
//   - Wire: requests and inbound messages (MessageEvent)
//   - Engine: subscription state changes (StateChangeEvent) and
//     notifications (NotificationEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Log files are a stream of CBOR-encoded events, conventionally with the
// .plog extension. The pubsync-log tool views and summarizes them.
package log
