// Package wire defines the CBOR wire format spoken with the publisher and a
// Codec that plugs it into the subscription engine.
//
// Messages are CBOR (RFC 8949) maps with integer keys. Every frame carries
// exactly one message.
//
// # Message Types
//
//   - Request: client to publisher (Subscribe, Query, Unsubscribe)
//   - Response: publisher to client, answering a request (messageId > 0)
//   - Push: publisher to client, unsolicited update (messageId = 0)
//
// Responses and pushes share one layout and are routed by their correlation
// key, which the client assigns when it sends the request.
package wire
