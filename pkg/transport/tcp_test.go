package transport

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubsync/pubsync-go/pkg/log"
)

func startEchoServer(t *testing.T, plog log.Logger) *TCPServer {
	t.Helper()
	s, err := NewTCPServer(TCPServerConfig{
		Stream: StreamConfig{WriteTimeout: time.Second, ProtocolLogger: plog},
		OnConnect: func(ctx context.Context, tr *StreamTransport) {
			_ = tr.ReadLoop(ctx, tr.Send)
		},
	})
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

// readFrames runs the client read loop and returns the received frames and
// the loop's result.
func readFrames(tr *StreamTransport) (<-chan []byte, <-chan error) {
	frames := make(chan []byte, 8)
	done := make(chan error, 1)
	go func() {
		done <- tr.ReadLoop(context.Background(), func(data []byte) error {
			frames <- data
			return nil
		})
	}()
	return frames, done
}

func TestTCPServerEcho(t *testing.T) {
	s := startEchoServer(t, nil)

	client, err := DialTCP(context.Background(), s.Addr().String(), StreamConfig{WriteTimeout: time.Second})
	require.NoError(t, err)
	defer client.Close()
	frames, done := readFrames(client)

	require.NoError(t, client.SendPackets(time.Now(), packets("ping", "pong")))
	for _, want := range []string{"ping", "pong"} {
		select {
		case got := <-frames:
			assert.Equal(t, want, string(got))
		case <-time.After(time.Second):
			t.Fatalf("echo of %q not received", want)
		}
	}
	assert.Eventually(t, func() bool { return s.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, s.Accepted())

	require.NoError(t, s.Stop())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("client read loop did not end after Stop")
	}
	assert.Equal(t, 0, s.ConnectionCount())
}

func TestTCPServerCloseConnectionsKeepsListening(t *testing.T) {
	s := startEchoServer(t, nil)

	first, err := DialTCP(context.Background(), s.Addr().String(), StreamConfig{})
	require.NoError(t, err)
	defer first.Close()
	_, done := readFrames(first)
	require.Eventually(t, func() bool { return s.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.CloseConnections())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("client read loop did not end after CloseConnections")
	}

	second, err := DialTCP(context.Background(), s.Addr().String(), StreamConfig{})
	require.NoError(t, err)
	defer second.Close()
	assert.Eventually(t, func() bool { return s.Accepted() == 2 }, time.Second, 5*time.Millisecond)
}

func TestTCPServerLogsConnectionState(t *testing.T) {
	plog := &capturingLogger{}
	s := startEchoServer(t, plog)

	client, err := DialTCP(context.Background(), s.Addr().String(), StreamConfig{})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, client.Close())
	require.Eventually(t, func() bool { return s.ConnectionCount() == 0 }, time.Second, 5*time.Millisecond)

	var states []string
	var sessions []string
	for _, e := range plog.Events() {
		if e.StateChange == nil {
			continue
		}
		assert.Equal(t, log.StateEntityTransport, e.StateChange.Entity)
		states = append(states, e.StateChange.NewState)
		sessions = append(sessions, e.SessionID)
	}
	require.Equal(t, []string{"CONNECTED", "DISCONNECTED"}, states)
	assert.NotEmpty(t, sessions[0])
	assert.Equal(t, sessions[0], sessions[1])
}

func TestTCPServerConfigErrors(t *testing.T) {
	_, err := NewTCPServer(TCPServerConfig{})
	assert.Error(t, err)

	s := startEchoServer(t, nil)
	assert.ErrorIs(t, s.Start(context.Background()), ErrServerRunning)
}

func TestDialTCPRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = DialTCP(ctx, addr, StreamConfig{})
	assert.Error(t, err)
}
