package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/pubsync/pubsync-go/pkg/log"
	"github.com/pubsync/pubsync-go/pkg/subscription"
)

// Transport errors.
var (
	ErrConnectionClosed = errors.New("connection closed")
)

// FrameHandler receives each inbound message. Returning an error stops the
// read loop.
type FrameHandler func(data []byte) error

// StreamConfig configures a StreamTransport.
type StreamConfig struct {
	// MaxMessageSize bounds frames in both directions.
	MaxMessageSize uint32

	// WriteTimeout bounds each SendPackets call when the stream supports
	// deadlines. Zero disables the deadline.
	WriteTimeout time.Duration

	// Logger is the structured logger. Nil discards output.
	Logger *slog.Logger

	// ProtocolLogger captures every frame. Nil disables capture.
	ProtocolLogger log.Logger

	// SessionID tags captured frames.
	SessionID string
}

// deadliner is implemented by net.Conn.
type deadliner interface {
	SetWriteDeadline(t time.Time) error
}

// StreamTransport sends and receives length-prefixed frames over an
// established byte stream such as a TCP connection.
type StreamTransport struct {
	rwc    io.ReadWriteCloser
	framer *Framer
	config StreamConfig
	logger *slog.Logger

	sendMu    sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

// NewStreamTransport wraps rwc. The transport owns rwc and closes it on
// Close.
func NewStreamTransport(rwc io.ReadWriteCloser, config StreamConfig) *StreamTransport {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	f := NewFramerWithMaxSize(rwc, config.MaxMessageSize)
	if config.ProtocolLogger != nil {
		f.SetLogger(config.ProtocolLogger, config.SessionID)
	}
	return &StreamTransport{
		rwc:    rwc,
		framer: f,
		config: config,
		logger: logger,
		closed: make(chan struct{}),
	}
}

// SendPackets writes each packet as one frame, in order. A batch is written
// under one lock so concurrent senders cannot interleave it.
func (s *StreamTransport) SendPackets(_ time.Time, packets []subscription.Packet) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.isClosed() {
		return ErrConnectionClosed
	}
	if d, ok := s.rwc.(deadliner); ok && s.config.WriteTimeout > 0 {
		if err := d.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	for i, p := range packets {
		if err := s.framer.WriteFrame(p.Message); err != nil {
			return fmt.Errorf("packet %d of %d for data item %d: %w", i+1, len(packets), p.Request.DataItemID(), err)
		}
	}
	return nil
}

// Send writes one raw frame.
func (s *StreamTransport) Send(data []byte) error {
	if s.isClosed() {
		return ErrConnectionClosed
	}
	return s.framer.WriteFrame(data)
}

// ReadLoop reads frames and hands them to handle until the stream ends, ctx
// is cancelled or handle fails. It returns nil after a clean end of stream
// or Close.
func (s *StreamTransport) ReadLoop(ctx context.Context, handle FrameHandler) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	for {
		data, err := s.framer.ReadFrame()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if s.isClosed() || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}
		if err := handle(data); err != nil {
			return err
		}
	}
}

// Close closes the underlying stream. It is idempotent.
func (s *StreamTransport) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.rwc.Close()
		s.logger.Debug("stream transport closed", "session_id", s.config.SessionID)
	})
	return err
}

func (s *StreamTransport) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// CloseAll closes every closer and returns the combined error.
func CloseAll(closers ...io.Closer) error {
	var err error
	for _, c := range closers {
		if c == nil {
			continue
		}
		err = multierr.Append(err, c.Close())
	}
	return err
}

var _ subscription.Transport = (*StreamTransport)(nil)
