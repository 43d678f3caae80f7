// Package connection supervises the lifecycle of a publisher connection.
//
// A Supervisor dials, serves the connection until it ends, and dials again
// after a delay taken from a backoff.Tiers table:
//
//  1. CONNECTING: the ConnectFunc establishes the connection
//  2. CONNECTED: the returned ServeFunc runs until the connection drops
//  3. RECONNECTING: the supervisor waits the next delay of the table
//  4. back to CONNECTING
//
// # Jitter
//
// To keep many clients from reconnecting in lockstep every delay is
// stretched by a random fraction:
//
//	actual_delay = base_delay + random(0, base_delay * Jitter)
//
// # Stable Connections
//
// A connection that lasted at least StableAfter resets the attempt counter,
// so the next drop starts over at the first delay of the table. A failed
// ConnectFunc is fatal: dial retries belong to the ConnectFunc itself.
package connection
