package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pubsync/pubsync-go/pkg/log"
)

// DefaultConnectTimeout bounds DialTCP when ctx carries no deadline.
const DefaultConnectTimeout = 30 * time.Second

// ErrServerRunning is returned when Start is called twice.
var ErrServerRunning = errors.New("server already running")

// TCPServerConfig configures a TCPServer.
type TCPServerConfig struct {
	// Address to listen on, e.g. "127.0.0.1:0".
	Address string

	// Stream configures every accepted connection. Each connection gets
	// its own session ID unless Stream.SessionID is set.
	Stream StreamConfig

	// Logger is the structured logger. Nil discards output.
	Logger *slog.Logger

	// OnConnect serves one connection. The connection is closed when it
	// returns.
	OnConnect func(ctx context.Context, tr *StreamTransport)
}

// TCPServer accepts TCP connections and hands each one, framed, to
// OnConnect.
type TCPServer struct {
	config   TCPServerConfig
	logger   *slog.Logger
	listener net.Listener
	accepted atomic.Int64

	conns   map[*StreamTransport]struct{}
	connsMu sync.Mutex

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewTCPServer creates a server. It does not listen until Start.
func NewTCPServer(config TCPServerConfig) (*TCPServer, error) {
	if config.OnConnect == nil {
		return nil, errors.New("OnConnect is required")
	}
	if config.Address == "" {
		config.Address = "127.0.0.1:0"
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &TCPServer{
		config: config,
		logger: logger,
		conns:  make(map[*StreamTransport]struct{}),
	}, nil
}

// Start listens and begins accepting connections.
func (s *TCPServer) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerRunning
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.acceptLoop(ctx)
	s.logger.Info("tcp server listening", "addr", listener.Addr().String())
	return nil
}

// Stop closes the listener and every open connection, then waits for the
// connection handlers to return.
func (s *TCPServer) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.cancel()
	err := s.listener.Close()
	err = errors.Join(err, s.CloseConnections())
	s.wg.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Addr returns the listen address, or nil before Start.
func (s *TCPServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ConnectionCount returns the number of open connections.
func (s *TCPServer) ConnectionCount() int {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	return len(s.conns)
}

// Accepted returns how many connections were accepted since Start.
func (s *TCPServer) Accepted() int {
	return int(s.accepted.Load())
}

// CloseConnections closes every open connection but keeps listening.
func (s *TCPServer) CloseConnections() error {
	s.connsMu.Lock()
	conns := make([]*StreamTransport, 0, len(s.conns))
	for tr := range s.conns {
		conns = append(conns, tr)
	}
	s.connsMu.Unlock()

	var err error
	for _, tr := range conns {
		if cerr := tr.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = errors.Join(err, cerr)
		}
	}
	return err
}

func (s *TCPServer) acceptLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || !s.running.Load() {
				return
			}
			s.logger.Warn("accept error", "error", err)
			continue
		}
		s.accepted.Add(1)
		s.wg.Add(1)
		go s.handleConnection(ctx, conn)
	}
}

func (s *TCPServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()

	cfg := s.config.Stream
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = s.logger
	}
	tr := NewStreamTransport(conn, cfg)
	remote := conn.RemoteAddr().String()

	s.connsMu.Lock()
	s.conns[tr] = struct{}{}
	s.connsMu.Unlock()
	logConnectionState(cfg.ProtocolLogger, cfg.SessionID, "", "CONNECTED", remote)
	s.logger.Debug("connection accepted", "session_id", cfg.SessionID, "remote", remote)

	connCtx, cancel := context.WithCancel(ctx)
	s.config.OnConnect(connCtx, tr)
	cancel()
	_ = tr.Close()

	logConnectionState(cfg.ProtocolLogger, cfg.SessionID, "CONNECTED", "DISCONNECTED", remote)
	s.connsMu.Lock()
	delete(s.conns, tr)
	s.connsMu.Unlock()
}

// DialTCP connects to address and frames the connection with config. The
// dial is bounded by DefaultConnectTimeout when ctx has no deadline.
func DialTCP(ctx context.Context, address string, config StreamConfig) (*StreamTransport, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultConnectTimeout)
		defer cancel()
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	logConnectionState(config.ProtocolLogger, config.SessionID, "", "CONNECTED", address)
	return NewStreamTransport(conn, config), nil
}

func logConnectionState(plog log.Logger, sessionID, from, to, remote string) {
	if plog == nil {
		return
	}
	plog.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: sessionID,
		Layer:     log.LayerTransport,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityTransport,
			OldState: from,
			NewState: to,
			Reason:   remote,
		},
	})
}
