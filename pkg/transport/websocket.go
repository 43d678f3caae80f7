package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/pubsync/pubsync-go/pkg/log"
	"github.com/pubsync/pubsync-go/pkg/subscription"
	"github.com/pubsync/pubsync-go/pkg/version"
)

// Websocket errors.
var (
	ErrKeepAliveTimeout = errors.New("keep-alive timeout")
)

// WebsocketConfig configures a WebsocketTransport.
type WebsocketConfig struct {
	// URL is the publisher endpoint, used by DialWebsocket.
	URL string

	// Header is sent with the handshake.
	Header http.Header

	// Subprotocols are offered in the handshake. When set, the publisher
	// must select a compatible one.
	Subprotocols []string

	// HandshakeTimeout bounds the opening handshake.
	HandshakeTimeout time.Duration

	// WriteTimeout bounds each write.
	WriteTimeout time.Duration

	// MaxMessageSize bounds inbound messages.
	MaxMessageSize int64

	// KeepAlive configures ping probing. A negative PingInterval disables it.
	KeepAlive KeepAliveConfig

	// Logger is the structured logger. Nil discards output.
	Logger *slog.Logger

	// ProtocolLogger captures every message. Nil disables capture.
	ProtocolLogger log.Logger

	// SessionID tags captured messages.
	SessionID string
}

// DefaultWebsocketConfig returns the default websocket configuration.
func DefaultWebsocketConfig() WebsocketConfig {
	return WebsocketConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		MaxMessageSize:   DefaultMaxMessageSize,
		KeepAlive:        DefaultKeepAliveConfig(),
		Subprotocols:     version.SupportedSubprotocols(),
	}
}

// WebsocketTransport carries one message per websocket binary frame.
type WebsocketTransport struct {
	conn      *websocket.Conn
	config    WebsocketConfig
	logger    *slog.Logger
	keepAlive *KeepAlive

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}

	errMu   sync.Mutex
	lastErr error
}

// DialWebsocket opens a websocket to config.URL.
func DialWebsocket(ctx context.Context, config WebsocketConfig) (*WebsocketTransport, error) {
	conn, resp, err := newDialer(config).DialContext(ctx, config.URL, config.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", config.URL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", config.URL, err)
	}
	if err := checkSubprotocol(conn, config); err != nil {
		return nil, err
	}
	return NewWebsocketTransport(conn, config), nil
}

func newDialer(config WebsocketConfig) *websocket.Dialer {
	return &websocket.Dialer{
		HandshakeTimeout: config.HandshakeTimeout,
		Subprotocols:     config.Subprotocols,
	}
}

// checkSubprotocol closes conn unless the publisher selected a compatible
// subprotocol.
func checkSubprotocol(conn *websocket.Conn, config WebsocketConfig) error {
	if len(config.Subprotocols) == 0 {
		return nil
	}
	if _, err := version.Negotiate([]string{conn.Subprotocol()}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("dial %s: %w", config.URL, err)
	}
	return nil
}

// DialWebsocketWithRetry dials until it succeeds, ctx is done or b gives
// up. Handshakes rejected with a 4xx status or an incompatible subprotocol
// are not retried.
func DialWebsocketWithRetry(ctx context.Context, config WebsocketConfig, b retry.Backoff) (*WebsocketTransport, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var t *WebsocketTransport
	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		conn, resp, err := newDialer(config).DialContext(ctx, config.URL, config.Header)
		if err != nil {
			if resp != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return fmt.Errorf("dial %s: %w (status %d)", config.URL, err, resp.StatusCode)
			}
			logger.Info("dial failed, retrying", "url", config.URL, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		if err := checkSubprotocol(conn, config); err != nil {
			return err
		}
		t = NewWebsocketTransport(conn, config)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// NewWebsocketTransport wraps an established connection. The transport
// owns conn and closes it on Close.
func NewWebsocketTransport(conn *websocket.Conn, config WebsocketConfig) *WebsocketTransport {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if config.MaxMessageSize > 0 {
		conn.SetReadLimit(config.MaxMessageSize)
	}

	w := &WebsocketTransport{
		conn:   conn,
		config: config,
		logger: logger,
		closed: make(chan struct{}),
	}
	w.keepAlive = NewKeepAlive(config.KeepAlive, w.sendPing, func() {
		w.fail(ErrKeepAliveTimeout)
	})

	conn.SetPongHandler(func(data string) error {
		if len(data) == 4 {
			w.keepAlive.PongReceived(binary.BigEndian.Uint32([]byte(data)))
		}
		return nil
	})
	return w
}

// SendPackets writes each packet as one binary message, in order.
func (w *WebsocketTransport) SendPackets(_ time.Time, packets []subscription.Packet) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	for i, p := range packets {
		if err := w.writeLocked(p.Message); err != nil {
			return fmt.Errorf("packet %d of %d for data item %d: %w", i+1, len(packets), p.Request.DataItemID(), err)
		}
	}
	return nil
}

// Send writes one binary message.
func (w *WebsocketTransport) Send(data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.writeLocked(data)
}

func (w *WebsocketTransport) writeLocked(data []byte) error {
	if w.isClosed() {
		return ErrConnectionClosed
	}
	if err := w.conn.SetWriteDeadline(time.Now().Add(w.config.WriteTimeout)); err != nil {
		return err
	}
	if err := w.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return err
	}
	w.capture(data, log.DirectionOut)
	return nil
}

func (w *WebsocketTransport) sendPing(seq uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], seq)
	return w.conn.WriteControl(websocket.PingMessage, buf[:], time.Now().Add(w.config.WriteTimeout))
}

// ReadLoop reads messages and hands binary ones to handle until the
// connection closes, ctx is cancelled or handle fails. It runs the
// keep-alive for its duration. A normal close by either side returns nil.
func (w *WebsocketTransport) ReadLoop(ctx context.Context, handle FrameHandler) error {
	w.keepAlive.Start(ctx)
	defer w.keepAlive.Stop()

	stop := context.AfterFunc(ctx, func() { _ = w.Close() })
	defer stop()

	for {
		kind, data, err := w.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if cause := w.failure(); cause != nil {
				return cause
			}
			if w.isClosed() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}
		if kind != websocket.BinaryMessage {
			w.logger.Debug("ignoring non-binary message", "type", kind, "size", len(data))
			continue
		}
		w.capture(data, log.DirectionIn)
		if err := handle(data); err != nil {
			return err
		}
	}
}

// KeepAliveStats returns the keep-alive snapshot.
func (w *WebsocketTransport) KeepAliveStats() KeepAliveStats {
	return w.keepAlive.Stats()
}

// Close sends a close frame and closes the connection. It is idempotent.
func (w *WebsocketTransport) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closed)
		w.keepAlive.Stop()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		werr := w.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		if errors.Is(werr, websocket.ErrCloseSent) {
			werr = nil
		}
		err = multierr.Combine(werr, w.conn.Close())
		w.logger.Debug("websocket transport closed", "session_id", w.config.SessionID)
	})
	return err
}

// fail records cause and tears the connection down so ReadLoop returns it.
func (w *WebsocketTransport) fail(cause error) {
	w.errMu.Lock()
	if w.lastErr == nil {
		w.lastErr = cause
	}
	w.errMu.Unlock()
	w.logger.Warn("websocket failed", "error", cause)
	_ = w.conn.Close()
}

func (w *WebsocketTransport) failure() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.lastErr
}

func (w *WebsocketTransport) isClosed() bool {
	select {
	case <-w.closed:
		return true
	default:
		return false
	}
}

func (w *WebsocketTransport) capture(data []byte, dir log.Direction) {
	if w.config.ProtocolLogger == nil {
		return
	}
	w.config.ProtocolLogger.Log(frameEvent(w.config.SessionID, dir, len(data), data))
}

var _ subscription.Transport = (*WebsocketTransport)(nil)
