package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"github.com/pubsync/pubsync-go/pkg/backoff"
	"github.com/pubsync/pubsync-go/pkg/connection"
	"github.com/pubsync/pubsync-go/pkg/interaction"
	pubsynclog "github.com/pubsync/pubsync-go/pkg/log"
	"github.com/pubsync/pubsync-go/pkg/metrics"
	"github.com/pubsync/pubsync-go/pkg/subscription"
	"github.com/pubsync/pubsync-go/pkg/transport"
	"github.com/pubsync/pubsync-go/pkg/wire"
)

var errRemotePublisher = errors.New("publisher is remote")

// Simulator runs a subscription engine against a publisher, reconnecting
// whenever the connection drops. The embedded Engine is the API surface.
type Simulator struct {
	*interaction.Engine

	config   *SimConfig
	logger   *slog.Logger
	link     *link
	registry *prometheus.Registry

	protocolLogger pubsynclog.Logger
	fileLogger     *pubsynclog.FileLogger

	warnings atomic.Int64

	supervisor *connection.Supervisor

	mu        sync.Mutex
	session   *publisherSession
	listeners []func(subscription.Notification)
}

// NewSimulator wires a manager, engine and metrics registry from cfg.
func NewSimulator(cfg *SimConfig, logger *slog.Logger) (*Simulator, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Simulator{
		config:   cfg,
		logger:   logger,
		link:     &link{},
		registry: prometheus.NewRegistry(),
	}

	var captures []pubsynclog.Logger
	if cfg.ProtocolLog != "" {
		fl, err := pubsynclog.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return nil, fmt.Errorf("open protocol log: %w", err)
		}
		s.fileLogger = fl
		captures = append(captures, fl)
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		captures = append(captures, pubsynclog.NewSlogAdapter(logger))
	}
	if len(captures) > 0 {
		s.protocolLogger = pubsynclog.NewMultiLogger(captures...)
	}

	s.registry.MustRegister(collectors.NewGoCollector())

	scfg := connection.DefaultConfig()
	scfg.Logger = logger.With("component", "connection")
	s.supervisor = connection.NewSupervisor(func(ctx context.Context) (connection.ServeFunc, error) {
		p, err := s.dial(ctx)
		if err != nil {
			return nil, err
		}
		return func(connCtx context.Context) error { return s.serve(ctx, connCtx, p) }, nil
	}, scfg)

	mcfg := cfg.managerConfig()
	mcfg.Logger = logger.With("component", "manager")
	mcfg.ProtocolLogger = s.protocolLogger
	mcfg.Metrics = metrics.NewEngineCollector(s.registry)
	mcfg.Hooks = subscription.Hooks{
		OnServerWarning: func() { s.warnings.Add(1) },
	}

	codec := wire.NewCodec()
	manager := subscription.NewManager(s.link, codec, mcfg)
	s.Engine = interaction.NewEngine(manager, codec, interaction.EngineConfig{
		TickInterval:   cfg.Engine.TickInterval,
		OnNotification: s.notify,
		OnError: func(err error) {
			s.logger.Error("engine failure", "error", err)
		},
		Logger: logger.With("component", "engine"),
	})
	return s, nil
}

// OnNotification registers fn to receive every notification. It must be
// called before Run.
func (s *Simulator) OnNotification(fn func(subscription.Notification)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Run drives the engine and the connection loop until ctx is cancelled or
// the publisher cannot be reached.
func (s *Simulator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	engineDone := make(chan error, 1)
	go func() { engineDone <- s.Engine.Run(ctx) }()

	if err := s.preregister(ctx); err != nil {
		return err
	}

	if s.config.Metrics.Addr != "" {
		srv := s.startMetrics()
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	err := s.supervisor.Run(ctx)
	cancel()
	if engineErr := <-engineDone; engineErr != nil && !errors.Is(engineErr, context.Canceled) {
		err = multierr.Append(err, engineErr)
	}
	return err
}

// Close stops the engine and flushes the protocol log.
func (s *Simulator) Close() error {
	err := s.Engine.Close()
	if s.fileLogger != nil {
		err = multierr.Append(err, s.fileLogger.Close())
	}
	return err
}

// Connected reports whether a publisher connection is attached.
func (s *Simulator) Connected() bool {
	return s.link.current() != nil
}

// Disconnect drops the current connection. The connection loop reconnects
// after the usual delay.
func (s *Simulator) Disconnect() error {
	if err := s.supervisor.Disconnect(); err != nil {
		return errNotConnected
	}
	return nil
}

// Break makes the in-process publisher cancel every open stream. It
// returns the number of streams cancelled.
func (s *Simulator) Break(reason string) (int, error) {
	if s.config.Connection.URL != "" {
		return 0, errRemotePublisher
	}
	s.mu.Lock()
	session := s.session
	s.mu.Unlock()
	if session == nil {
		return 0, errNotConnected
	}
	return session.Break(reason)
}

// Warnings returns the number of server warnings seen.
func (s *Simulator) Warnings() int64 {
	return s.warnings.Load()
}

// Registry returns the Prometheus registry holding the engine metrics.
func (s *Simulator) Registry() *prometheus.Registry {
	return s.registry
}

func (s *Simulator) notify(n subscription.Notification) {
	level := slog.LevelInfo
	switch n.Kind {
	case subscription.NotifyData:
		level = slog.LevelDebug
	case subscription.NotifyInternalError:
		level = slog.LevelError
	case subscription.NotifyRequestTimeout, subscription.NotifySubscriptionError, subscription.NotifyInvalidRequest:
		level = slog.LevelWarn
	}
	s.logger.Log(context.Background(), level, "notification",
		"kind", n.Kind,
		"data_item_id", n.DataItemID,
		"seq", n.RequestSequenceNr,
		"text", n.Text,
	)

	s.mu.Lock()
	listeners := s.listeners
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(n)
	}
}

func (s *Simulator) preregister(ctx context.Context) error {
	for _, entry := range s.config.Subscriptions {
		id := subscription.DataItemID(entry.ID)
		if _, err := s.Subscribe(ctx, id, entry.Definition()); err != nil {
			return fmt.Errorf("subscribe %d: %w", entry.ID, err)
		}
		if !entry.Activate {
			continue
		}
		if err := s.Activate(ctx, id, 1); err != nil {
			return fmt.Errorf("activate %d: %w", entry.ID, err)
		}
	}
	if n := len(s.config.Subscriptions); n > 0 {
		s.logger.Info("subscriptions registered", "count", n)
	}
	return nil
}

func (s *Simulator) startMetrics() *http.Server {
	mux := http.NewServeMux()
	mux.Handle(s.config.Metrics.Path, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              s.config.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()
	s.logger.Info("metrics endpoint started", "addr", s.config.Metrics.Addr, "path", s.config.Metrics.Path)
	return srv
}

// serve attaches p, takes the engine online and feeds it inbound frames
// until the connection ends. The engine is offline again on return.
func (s *Simulator) serve(ctx, connCtx context.Context, p peer) error {
	s.link.attach(p)
	if err := s.GoOnline(ctx); err != nil {
		s.link.detach()
		return multierr.Append(err, p.Close())
	}
	s.logger.Info("connected")

	readErr := p.ReadLoop(connCtx, func(data []byte) error {
		return s.HandleFrame(connCtx, data)
	})

	reason := "connection closed"
	switch {
	case ctx.Err() != nil:
		reason = "shutting down"
	case errors.Is(readErr, context.Canceled):
		reason = "disconnected"
		readErr = nil
	case readErr != nil:
		reason = readErr.Error()
	}
	if err := s.GoOffline(ctx, reason); err != nil && ctx.Err() == nil {
		s.logger.Warn("go offline", "error", err)
	}
	s.link.detach()

	s.mu.Lock()
	s.session = nil
	s.mu.Unlock()

	return multierr.Append(readErr, p.Close())
}

// dial opens a publisher connection: a websocket when a URL is configured,
// otherwise a pipe to a fresh in-process publisher.
func (s *Simulator) dial(ctx context.Context) (peer, error) {
	sessionID := uuid.NewString()
	if s.config.Connection.URL != "" {
		cfg := s.config.websocketConfig()
		cfg.Logger = s.logger
		cfg.ProtocolLogger = s.protocolLogger
		cfg.SessionID = sessionID

		b, err := backoff.NewRetryBackoff(backoff.AlgorithmReferencable)
		if err != nil {
			return nil, err
		}
		b = retry.WithMaxRetries(uint64(s.config.Connection.ReconnectTries), b)
		s.logger.Info("dialing publisher", "url", cfg.URL, "session_id", sessionID)
		return transport.DialWebsocketWithRetry(ctx, cfg, b)
	}

	clientConn, serverConn := net.Pipe()
	client := transport.NewStreamTransport(clientConn, transport.StreamConfig{
		WriteTimeout:   s.config.Connection.WriteTimeout,
		Logger:         s.logger,
		ProtocolLogger: s.protocolLogger,
		SessionID:      sessionID,
	})
	server := transport.NewStreamTransport(serverConn, transport.StreamConfig{Logger: s.logger})

	session := newPublisherSession(s.config.Publisher, server, s.logger.With("component", "publisher"))
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()

	go func() {
		if err := session.Serve(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("publisher session ended", "error", err)
		}
		_ = server.Close()
	}()
	return client, nil
}
