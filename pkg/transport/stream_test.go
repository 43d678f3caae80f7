package transport

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubsync/pubsync-go/pkg/subscription"
)

func packets(msgs ...string) []subscription.Packet {
	out := make([]subscription.Packet, len(msgs))
	for i, m := range msgs {
		out[i] = subscription.Packet{Request: &subscription.Request{}, Message: []byte(m)}
	}
	return out
}

func TestStreamTransportSendPackets(t *testing.T) {
	client, server := net.Pipe()
	tr := NewStreamTransport(client, StreamConfig{WriteTimeout: time.Second})
	defer tr.Close()
	peer := NewFramer(server)

	got := make(chan string, 3)
	go func() {
		for range 3 {
			data, err := peer.ReadFrame()
			if err != nil {
				return
			}
			got <- string(data)
		}
	}()

	require.NoError(t, tr.SendPackets(time.Now(), packets("a", "bb", "ccc")))
	for _, want := range []string{"a", "bb", "ccc"} {
		select {
		case m := <-got:
			assert.Equal(t, want, m)
		case <-time.After(time.Second):
			t.Fatalf("frame %q not received", want)
		}
	}
}

func TestStreamTransportReadLoop(t *testing.T) {
	client, server := net.Pipe()
	logger := &capturingLogger{}
	tr := NewStreamTransport(client, StreamConfig{ProtocolLogger: logger, SessionID: "s-1"})
	peer := NewFramer(server)

	received := make(chan []byte, 2)
	done := make(chan error, 1)
	go func() {
		done <- tr.ReadLoop(context.Background(), func(data []byte) error {
			received <- data
			return nil
		})
	}()

	require.NoError(t, peer.WriteFrame([]byte("push-1")))
	require.NoError(t, peer.WriteFrame([]byte("push-2")))
	assert.Equal(t, "push-1", string(<-received))
	assert.Equal(t, "push-2", string(<-received))

	// A clean end of stream stops the loop without error.
	require.NoError(t, server.Close())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ReadLoop did not return")
	}

	events := logger.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "s-1", events[0].SessionID)
}

func TestStreamTransportReadLoopHandlerError(t *testing.T) {
	client, server := net.Pipe()
	tr := NewStreamTransport(client, StreamConfig{})
	defer tr.Close()
	peer := NewFramer(server)

	boom := errors.New("boom")
	done := make(chan error, 1)
	go func() {
		done <- tr.ReadLoop(context.Background(), func([]byte) error { return boom })
	}()

	require.NoError(t, peer.WriteFrame([]byte("x")))
	assert.ErrorIs(t, <-done, boom)
}

func TestStreamTransportContextCancel(t *testing.T) {
	client, _ := net.Pipe()
	tr := NewStreamTransport(client, StreamConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- tr.ReadLoop(ctx, func([]byte) error { return nil })
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("ReadLoop did not return after cancel")
	}
	assert.ErrorIs(t, tr.SendPackets(time.Now(), packets("late")), ErrConnectionClosed)
}

func TestStreamTransportCloseIdempotent(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	tr := NewStreamTransport(client, StreamConfig{})

	assert.NoError(t, tr.Close())
	assert.NoError(t, tr.Close())
	assert.ErrorIs(t, tr.Send([]byte("x")), ErrConnectionClosed)
	assert.NoError(t, CloseAll(tr, nil))
}
