package subscription

import (
	"slices"
	"sort"
	"time"
)

// WaitList holds in-flight requests sorted by ResponseDeadline. Requests
// with equal deadlines keep their insertion order.
type WaitList struct {
	items []*Request
}

// NewWaitList creates an empty wait list.
func NewWaitList() *WaitList {
	return &WaitList{}
}

// Len returns the number of waiting requests.
func (w *WaitList) Len() int { return len(w.items) }

// Grow makes room for n more requests.
func (w *WaitList) Grow(n int) {
	if n > 0 {
		w.items = slices.Grow(w.items, n)
	}
}

// Insert adds r at its deadline position, after any request with the same
// deadline.
func (w *WaitList) Insert(r *Request) {
	n := len(w.items)
	if n == 0 || !r.ResponseDeadline.Before(w.items[n-1].ResponseDeadline) {
		w.items = append(w.items, r)
		return
	}
	i := sort.Search(n, func(i int) bool {
		return w.items[i].ResponseDeadline.After(r.ResponseDeadline)
	})
	w.items = slices.Insert(w.items, i, r)
}

// Remove removes r and reports whether it was waiting.
func (w *WaitList) Remove(r *Request) bool {
	n := len(w.items)
	i := sort.Search(n, func(i int) bool {
		return !w.items[i].ResponseDeadline.Before(r.ResponseDeadline)
	})
	for ; i < n && w.items[i].ResponseDeadline.Equal(r.ResponseDeadline); i++ {
		if w.items[i] == r {
			w.items = slices.Delete(w.items, i, i+1)
			return true
		}
	}
	return false
}

// Sweep removes and returns every request whose deadline is at or before now,
// in deadline order.
func (w *WaitList) Sweep(now time.Time) []*Request {
	i := 0
	for i < len(w.items) && !w.items[i].ResponseDeadline.After(now) {
		i++
	}
	if i == 0 {
		return nil
	}
	expired := slices.Clone(w.items[:i])
	w.items = slices.Delete(w.items, 0, i)
	return expired
}

// NextDeadline returns the earliest deadline, if any request is waiting.
func (w *WaitList) NextDeadline() (time.Time, bool) {
	if len(w.items) == 0 {
		return time.Time{}, false
	}
	return w.items[0].ResponseDeadline, true
}

// Entries returns a copy of the waiting requests in deadline order.
func (w *WaitList) Entries() []*Request {
	return slices.Clone(w.items)
}

// Clear drops every waiting request.
func (w *WaitList) Clear() {
	clear(w.items)
	w.items = w.items[:0]
}
