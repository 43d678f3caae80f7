package interactive

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubsync/pubsync-go/pkg/backoff"
	"github.com/pubsync/pubsync-go/pkg/subscription"
)

// fakeSimulator records the calls the console makes.
type fakeSimulator struct {
	defs       map[subscription.DataItemID]subscription.Definition
	activated  map[subscription.DataItemID]uint32
	batching   map[subscription.Lane]bool
	online     bool
	offReason  string
	breakCalls []string
	err        error
}

func newFakeSimulator() *fakeSimulator {
	return &fakeSimulator{
		defs:      make(map[subscription.DataItemID]subscription.Definition),
		activated: make(map[subscription.DataItemID]uint32),
		batching:  make(map[subscription.Lane]bool),
	}
}

func (f *fakeSimulator) Subscribe(_ context.Context, id subscription.DataItemID, def subscription.Definition) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.defs[id] = def
	return f.online, nil
}

func (f *fakeSimulator) Unsubscribe(_ context.Context, id subscription.DataItemID) error {
	if _, ok := f.defs[id]; !ok {
		return subscription.ErrSubscriptionNotFound
	}
	delete(f.defs, id)
	return nil
}

func (f *fakeSimulator) Activate(_ context.Context, id subscription.DataItemID, seq uint32) error {
	if _, ok := f.defs[id]; !ok {
		return subscription.ErrSubscriptionNotFound
	}
	f.activated[id] = seq
	return nil
}

func (f *fakeSimulator) SetBatching(_ context.Context, lane subscription.Lane, enabled bool) error {
	f.batching[lane] = enabled
	return nil
}

func (f *fakeSimulator) GoOnline(context.Context) error {
	f.online = true
	return nil
}

func (f *fakeSimulator) GoOffline(_ context.Context, reason string) error {
	f.online = false
	f.offReason = reason
	return nil
}

func (f *fakeSimulator) Subscriptions(context.Context) ([]subscription.Info, error) {
	var infos []subscription.Info
	for id, def := range f.defs {
		infos = append(infos, subscription.Info{ID: id, Channel: def.Channel, Lane: def.Lane})
	}
	return infos, nil
}

func (f *fakeSimulator) Stats(context.Context) (subscription.Stats, error) {
	return subscription.Stats{
		Online:        f.online,
		Subscriptions: len(f.defs),
		ByState:       map[subscription.State]int{subscription.StateInactive: len(f.defs)},
	}, nil
}

func (f *fakeSimulator) Connected() bool { return true }

func (f *fakeSimulator) Disconnect() error { return errors.New("not connected") }

func (f *fakeSimulator) Break(reason string) (int, error) {
	f.breakCalls = append(f.breakCalls, reason)
	return 2, nil
}

func (f *fakeSimulator) Warnings() int64 { return 4 }

func newTestConsole() (*Console, *fakeSimulator, *bytes.Buffer) {
	sim := newFakeSimulator()
	out := &bytes.Buffer{}
	return newConsole(sim, out), sim, out
}

func TestConsoleSubscribe(t *testing.T) {
	c, sim, out := newTestConsole()
	ctx := context.Background()

	require.True(t, c.Execute(ctx, "subscribe 7 quotes/AAPL key=AAPL lane=high retry=referencable timeout=2s forbid-resend"))

	def, ok := sim.defs[7]
	require.True(t, ok)
	assert.Equal(t, "quotes/AAPL", def.Channel)
	assert.Equal(t, "AAPL", def.ReferencableKey)
	assert.Equal(t, subscription.LaneHigh, def.Lane)
	assert.Equal(t, backoff.AlgorithmReferencable, def.RetryAlgorithm)
	assert.Equal(t, 2*time.Second, def.ResponseTimeout)
	assert.True(t, def.ForbidResend)
	assert.Contains(t, out.String(), "Subscription 7 registered")
}

func TestConsoleSubscribeErrors(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"subscribe", "Usage: subscribe"},
		{"subscribe 0 c", "invalid subscription id"},
		{"subscribe x c", "invalid subscription id"},
		{"subscribe 1 c lane=sideways", "unknown lane"},
		{"subscribe 1 c retry=sometimes", "unknown"},
		{"subscribe 1 c timeout=soon", "invalid timeout"},
		{"subscribe 1 c colour=red", "unknown option"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			c, sim, out := newTestConsole()
			c.Execute(context.Background(), tt.line)
			assert.Contains(t, out.String(), tt.want)
			assert.Empty(t, sim.defs)
		})
	}
}

func TestConsoleActivateSequence(t *testing.T) {
	c, sim, out := newTestConsole()
	ctx := context.Background()

	c.Execute(ctx, "subscribe 1 c")
	c.Execute(ctx, "activate 1")
	assert.Equal(t, uint32(1), sim.activated[1])

	c.Execute(ctx, "activate 1")
	assert.Equal(t, uint32(2), sim.activated[1])

	c.Execute(ctx, "activate 1 10")
	assert.Equal(t, uint32(10), sim.activated[1])
	c.Execute(ctx, "a 1")
	assert.Equal(t, uint32(11), sim.activated[1])

	c.Execute(ctx, "activate 9")
	assert.Contains(t, out.String(), subscription.ErrSubscriptionNotFound.Error())
}

func TestConsoleUnsubscribeResetsSequence(t *testing.T) {
	c, sim, _ := newTestConsole()
	ctx := context.Background()

	c.Execute(ctx, "subscribe 1 c")
	c.Execute(ctx, "activate 1 5")
	c.Execute(ctx, "unsubscribe 1")
	assert.Empty(t, sim.defs)

	c.Execute(ctx, "subscribe 1 c")
	c.Execute(ctx, "activate 1")
	assert.Equal(t, uint32(1), sim.activated[1])
}

func TestConsoleEngineCommands(t *testing.T) {
	c, sim, out := newTestConsole()
	ctx := context.Background()

	c.Execute(ctx, "batch high on")
	assert.True(t, sim.batching[subscription.LaneHigh])
	c.Execute(ctx, "batch normal off")
	assert.False(t, sim.batching[subscription.LaneNormal])
	c.Execute(ctx, "batch normal maybe")
	assert.Contains(t, out.String(), "expected on or off")

	c.Execute(ctx, "online")
	assert.True(t, sim.online)
	c.Execute(ctx, "offline link maintenance")
	assert.False(t, sim.online)
	assert.Equal(t, "link maintenance", sim.offReason)

	c.Execute(ctx, "break")
	assert.Equal(t, []string{"stream cancelled"}, sim.breakCalls)
	assert.Contains(t, out.String(), "cancelled 2 stream(s)")

	c.Execute(ctx, "disconnect")
	assert.Contains(t, out.String(), "Error: disconnect: not connected")
}

func TestConsoleListAndStatus(t *testing.T) {
	c, _, out := newTestConsole()
	ctx := context.Background()

	c.Execute(ctx, "list")
	assert.Contains(t, out.String(), "No subscriptions")

	c.Execute(ctx, "subscribe 3 quotes/AAPL")
	out.Reset()
	c.Execute(ctx, "list")
	assert.Contains(t, out.String(), "quotes/AAPL")
	assert.Contains(t, out.String(), "NORMAL")

	out.Reset()
	c.Execute(ctx, "status")
	assert.Contains(t, out.String(), "Subscriptions:   1")
	assert.Contains(t, out.String(), "Server warnings: 4")
}

func TestConsoleNotify(t *testing.T) {
	c, _, out := newTestConsole()

	c.Notify(subscription.Notification{Kind: subscription.NotifyData, DataItemID: 1})
	assert.Empty(t, out.String(), "data is hidden by default")

	c.Notify(subscription.Notification{Kind: subscription.NotifySubscribed, DataItemID: 1})
	assert.Contains(t, out.String(), "SUBSCRIBED id=1")

	c.Execute(context.Background(), "verbose")
	out.Reset()
	c.Notify(subscription.Notification{Kind: subscription.NotifyData, DataItemID: 2})
	assert.Contains(t, out.String(), "DATA id=2")
}

func TestConsoleQuitAndUnknown(t *testing.T) {
	c, _, out := newTestConsole()
	ctx := context.Background()

	assert.True(t, c.Execute(ctx, "   "))
	assert.True(t, c.Execute(ctx, "frobnicate"))
	assert.Contains(t, out.String(), "Unknown command: frobnicate")
	assert.False(t, c.Execute(ctx, "quit"))
}
