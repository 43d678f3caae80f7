package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubsync/pubsync-go/pkg/log"
	"github.com/pubsync/pubsync-go/pkg/version"
)

// mockWSServer creates a test websocket server running handler per
// connection.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin:  func(r *http.Request) bool { return true },
		Subprotocols: version.SupportedSubprotocols(),
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// echoHandler answers each binary message with "ack:" + message.
func echoHandler(conn *websocket.Conn) {
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if err := conn.WriteMessage(kind, append([]byte("ack:"), data...)); err != nil {
			return
		}
	}
}

func testWebsocketConfig(url string) WebsocketConfig {
	cfg := DefaultWebsocketConfig()
	cfg.URL = url
	cfg.KeepAlive.PingInterval = -1
	return cfg
}

func TestWebsocketSendAndReceive(t *testing.T) {
	server := mockWSServer(t, echoHandler)
	logger := &capturingLogger{}
	cfg := testWebsocketConfig(wsURL(server))
	cfg.ProtocolLogger = logger
	cfg.SessionID = "ws-1"

	tr, err := DialWebsocket(context.Background(), cfg)
	require.NoError(t, err)
	defer tr.Close()

	received := make(chan string, 2)
	go func() {
		_ = tr.ReadLoop(context.Background(), func(data []byte) error {
			received <- string(data)
			return nil
		})
	}()

	require.NoError(t, tr.SendPackets(time.Now(), packets("sub-1", "sub-2")))
	for _, want := range []string{"ack:sub-1", "ack:sub-2"} {
		select {
		case got := <-received:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("%q not received", want)
		}
	}

	require.Eventually(t, func() bool { return len(logger.Events()) == 4 }, time.Second, 5*time.Millisecond)
	for _, e := range logger.Events() {
		assert.Equal(t, "ws-1", e.SessionID)
		assert.Equal(t, log.LayerTransport, e.Layer)
	}
}

func TestWebsocketIgnoresTextMessages(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("hello"))
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte("data"))
		_, _, _ = conn.ReadMessage()
	})

	tr, err := DialWebsocket(context.Background(), testWebsocketConfig(wsURL(server)))
	require.NoError(t, err)
	defer tr.Close()

	first := make(chan string, 1)
	go func() {
		_ = tr.ReadLoop(context.Background(), func(data []byte) error {
			first <- string(data)
			return errors.New("stop")
		})
	}()

	select {
	case got := <-first:
		assert.Equal(t, "data", got)
	case <-time.After(2 * time.Second):
		t.Fatal("binary message not received")
	}
}

func TestWebsocketPeerCloseEndsReadLoop(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	})

	tr, err := DialWebsocket(context.Background(), testWebsocketConfig(wsURL(server)))
	require.NoError(t, err)
	defer tr.Close()

	err = tr.ReadLoop(context.Background(), func([]byte) error { return nil })
	assert.NoError(t, err)
}

func TestWebsocketKeepAliveTimeout(t *testing.T) {
	// The handler never reads, so pings are never answered.
	block := make(chan struct{})
	server := mockWSServer(t, func(*websocket.Conn) { <-block })
	defer close(block)

	cfg := testWebsocketConfig(wsURL(server))
	cfg.KeepAlive = KeepAliveConfig{
		PingInterval:   10 * time.Millisecond,
		PongTimeout:    5 * time.Millisecond,
		MaxMissedPongs: 2,
	}
	tr, err := DialWebsocket(context.Background(), cfg)
	require.NoError(t, err)
	defer tr.Close()

	done := make(chan error, 1)
	go func() { done <- tr.ReadLoop(context.Background(), func([]byte) error { return nil }) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrKeepAliveTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("keep-alive did not fire")
	}
}

func TestWebsocketKeepAliveAnswered(t *testing.T) {
	server := mockWSServer(t, echoHandler)

	cfg := testWebsocketConfig(wsURL(server))
	cfg.KeepAlive = KeepAliveConfig{
		PingInterval:   10 * time.Millisecond,
		PongTimeout:    50 * time.Millisecond,
		MaxMissedPongs: 2,
	}
	tr, err := DialWebsocket(context.Background(), cfg)
	require.NoError(t, err)
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.ReadLoop(ctx, func([]byte) error { return nil }) }()

	require.Eventually(t, func() bool { return !tr.KeepAliveStats().LastPong.IsZero() }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestDialWebsocketWithRetry(t *testing.T) {
	var attempts atomic.Int32
	upgrader := websocket.Upgrader{Subprotocols: version.SupportedSubprotocols()}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		echoHandler(conn)
	}))
	defer server.Close()

	b := retry.WithMaxRetries(5, retry.NewConstant(5*time.Millisecond))
	tr, err := DialWebsocketWithRetry(context.Background(), testWebsocketConfig(wsURL(server)), b)
	require.NoError(t, err)
	defer tr.Close()

	assert.Equal(t, int32(3), attempts.Load())
}

func TestDialWebsocketWithRetryStopsOnClientError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	b := retry.WithMaxRetries(5, retry.NewConstant(5*time.Millisecond))
	_, err := DialWebsocketWithRetry(context.Background(), testWebsocketConfig(wsURL(server)), b)
	require.Error(t, err)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestWebsocketSubprotocolNegotiated(t *testing.T) {
	server := mockWSServer(t, echoHandler)

	tr, err := DialWebsocket(context.Background(), testWebsocketConfig(wsURL(server)))
	require.NoError(t, err)
	defer tr.Close()

	assert.Equal(t, "pubsync.v1", tr.conn.Subprotocol())
}

func TestWebsocketSubprotocolMismatch(t *testing.T) {
	var attempts atomic.Int32
	upgrader := websocket.Upgrader{Subprotocols: []string{"pubsync.v2"}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		echoHandler(conn)
	}))
	defer server.Close()

	cfg := testWebsocketConfig(wsURL(server))
	_, err := DialWebsocket(context.Background(), cfg)
	assert.ErrorIs(t, err, version.ErrNoCommonVersion)

	b := retry.WithMaxRetries(5, retry.NewConstant(5*time.Millisecond))
	_, err = DialWebsocketWithRetry(context.Background(), cfg, b)
	assert.ErrorIs(t, err, version.ErrNoCommonVersion)
	assert.Equal(t, int32(2), attempts.Load())

	// Without an offer the handshake is accepted as is.
	cfg.Subprotocols = nil
	tr, err := DialWebsocket(context.Background(), cfg)
	require.NoError(t, err)
	assert.NoError(t, tr.Close())
}

func TestWebsocketCloseIdempotent(t *testing.T) {
	server := mockWSServer(t, echoHandler)

	tr, err := DialWebsocket(context.Background(), testWebsocketConfig(wsURL(server)))
	require.NoError(t, err)

	assert.NoError(t, tr.Close())
	assert.NoError(t, tr.Close())
	assert.ErrorIs(t, tr.Send([]byte("x")), ErrConnectionClosed)
}
