package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func waiting(id int, deadline time.Time) *Request {
	return &Request{
		Subscription:     &Subscription{id: DataItemID(id)},
		ResponseDeadline: deadline,
	}
}

func ids(reqs []*Request) []DataItemID {
	out := make([]DataItemID, len(reqs))
	for i, r := range reqs {
		out[i] = r.DataItemID()
	}
	return out
}

func TestWaitListInsertKeepsOrderAndFIFOTies(t *testing.T) {
	w := NewWaitList()
	w.Insert(waiting(1, t0.Add(3*time.Second)))
	w.Insert(waiting(2, t0.Add(1*time.Second)))
	w.Insert(waiting(3, t0.Add(3*time.Second)))
	w.Insert(waiting(4, t0.Add(1*time.Second)))
	w.Insert(waiting(5, t0.Add(2*time.Second)))

	assert.Equal(t, []DataItemID{2, 4, 5, 1, 3}, ids(w.Entries()))

	next, ok := w.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, t0.Add(time.Second), next)
}

func TestWaitListSweepReturnsExpiredPrefix(t *testing.T) {
	w := NewWaitList()
	for i := 1; i <= 5; i++ {
		w.Insert(waiting(i, t0.Add(time.Duration(i)*time.Second)))
	}

	assert.Nil(t, w.Sweep(t0))
	expired := w.Sweep(t0.Add(3 * time.Second))
	assert.Equal(t, []DataItemID{1, 2, 3}, ids(expired), "deadline equal to now is expired")
	assert.Equal(t, []DataItemID{4, 5}, ids(w.Entries()))
}

func TestWaitListRemove(t *testing.T) {
	w := NewWaitList()
	a := waiting(1, t0)
	b := waiting(2, t0)
	c := waiting(3, t0.Add(time.Second))
	w.Insert(a)
	w.Insert(b)
	w.Insert(c)

	assert.True(t, w.Remove(b))
	assert.False(t, w.Remove(b))
	assert.False(t, w.Remove(waiting(9, t0)), "unknown request with equal deadline")
	assert.Equal(t, []DataItemID{1, 3}, ids(w.Entries()))

	w.Clear()
	assert.Equal(t, 0, w.Len())
	_, ok := w.NextDeadline()
	assert.False(t, ok)
}

func TestWaitListSortInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := NewWaitList()
		var live []*Request
		seq := 0

		steps := rapid.IntRange(1, 100).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0, 1:
				seq++
				r := waiting(seq, t0.Add(time.Duration(rapid.IntRange(0, 20).Draw(t, "deadline"))*time.Second))
				w.Grow(1)
				w.Insert(r)
				live = append(live, r)
			case 2:
				if len(live) == 0 {
					continue
				}
				j := rapid.IntRange(0, len(live)-1).Draw(t, "victim")
				if !w.Remove(live[j]) {
					t.Fatalf("Remove(%d) = false", live[j].DataItemID())
				}
				live = append(live[:j], live[j+1:]...)
			}

			entries := w.Entries()
			if len(entries) != len(live) {
				t.Fatalf("Len = %d, want %d", len(entries), len(live))
			}
			for k := 1; k < len(entries); k++ {
				prev, cur := entries[k-1], entries[k]
				if cur.ResponseDeadline.Before(prev.ResponseDeadline) {
					t.Fatalf("entries out of order at %d", k)
				}
				if cur.ResponseDeadline.Equal(prev.ResponseDeadline) && cur.DataItemID() < prev.DataItemID() {
					t.Fatalf("ties not FIFO at %d", k)
				}
			}
		}

		cutoff := t0.Add(time.Duration(rapid.IntRange(-1, 21).Draw(t, "cutoff")) * time.Second)
		before := w.Entries()
		expired := w.Sweep(cutoff)
		for _, r := range expired {
			if r.ResponseDeadline.After(cutoff) {
				t.Fatalf("swept request with deadline after cutoff")
			}
		}
		if len(expired) > 0 && len(before) > len(expired) && !before[len(expired)].ResponseDeadline.After(cutoff) {
			t.Fatalf("sweep stopped before the maximal prefix")
		}
		for _, r := range w.Entries() {
			if !r.ResponseDeadline.After(cutoff) {
				t.Fatalf("unexpired remainder contains expired request")
			}
		}
	})
}
