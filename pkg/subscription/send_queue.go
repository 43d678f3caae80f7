package subscription

import (
	"slices"
	"time"
)

// SendQueue holds requests awaiting transmission on one lane, in admission
// order, together with the lane's throttle state.
type SendQueue struct {
	lane     Lane
	items    []*Request
	batching bool

	burst            int
	interval         time.Duration
	mode             ThrottleMode
	earliestNextSend time.Time
}

// NewSendQueue creates a queue for lane. Burst and interval only apply to
// the normal lane; a burst of zero or less disables throttling.
func NewSendQueue(lane Lane, burst int, interval time.Duration, mode ThrottleMode) *SendQueue {
	return &SendQueue{
		lane:     lane,
		burst:    burst,
		interval: interval,
		mode:     mode,
	}
}

// Lane returns the lane served by q.
func (q *SendQueue) Lane() Lane { return q.lane }

// Len returns the number of queued requests.
func (q *SendQueue) Len() int { return len(q.items) }

// Push appends r.
func (q *SendQueue) Push(r *Request) {
	q.items = append(q.items, r)
}

// SetBatching holds (true) or releases (false) the queue.
func (q *SendQueue) SetBatching(enabled bool) { q.batching = enabled }

// Batching reports whether the queue is held.
func (q *SendQueue) Batching() bool { return q.batching }

// EarliestNextSend returns the time before which the normal lane releases
// nothing.
func (q *SendQueue) EarliestNextSend() time.Time { return q.earliestNextSend }

// ReadyCount returns how many leading requests may be drained at now.
// On the normal lane it consumes throttle budget, so the caller is expected
// to drain exactly that many.
func (q *SendQueue) ReadyCount(now time.Time) int {
	n := len(q.items)
	if q.batching || n == 0 {
		return 0
	}
	if q.lane == LaneHigh || q.burst <= 0 {
		return n
	}
	if now.Before(q.earliestNextSend) {
		return 0
	}
	if n > q.burst {
		q.earliestNextSend = now.Add(q.interval)
		return q.burst
	}
	if q.mode == ThrottleStrict {
		q.earliestNextSend = now.Add(q.interval)
	}
	return n
}

// Peek returns the first n requests without removing them.
func (q *SendQueue) Peek(n int) []*Request {
	return q.items[:min(n, len(q.items))]
}

// RemovePrefix removes the first n requests.
func (q *SendQueue) RemovePrefix(n int) {
	q.items = slices.Delete(q.items, 0, min(n, len(q.items)))
}

// Remove removes r and reports whether it was queued.
func (q *SendQueue) Remove(r *Request) bool {
	i := slices.Index(q.items, r)
	if i < 0 {
		return false
	}
	q.items = slices.Delete(q.items, i, i+1)
	return true
}

// Clear drops every queued request. Throttle and batching state are kept.
func (q *SendQueue) Clear() {
	clear(q.items)
	q.items = q.items[:0]
}
