package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pubsync/pubsync-go/pkg/interaction"
	"github.com/pubsync/pubsync-go/pkg/transport"
	"github.com/pubsync/pubsync-go/pkg/version"
	"github.com/pubsync/pubsync-go/pkg/wire"
)

// publisherSession serves the simulated publisher over one connection.
type publisherSession struct {
	server       *interaction.Server
	conn         frameConn
	logger       *slog.Logger
	pushInterval time.Duration
}

func newPublisherSession(cfg PublisherConfig, conn frameConn, logger *slog.Logger) *publisherSession {
	return &publisherSession{
		server:       interaction.NewServer(cfg.serverConfig(logger)),
		conn:         conn,
		logger:       logger,
		pushInterval: cfg.PushInterval,
	}
}

// Serve answers requests and pushes updates until the connection ends or
// ctx is cancelled.
func (p *publisherSession) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go p.pushLoop(ctx)

	return p.conn.ReadLoop(ctx, func(data []byte) error {
		frames, err := p.server.HandleFrame(time.Now(), data)
		if err != nil {
			p.logger.Warn("malformed request", "error", err)
			return nil
		}
		return p.sendAll(frames)
	})
}

// Break cancels every open stream with a subscription issue.
func (p *publisherSession) Break(reason string) (int, error) {
	resps := p.server.CancelAll(reason)
	for _, resp := range resps {
		data, err := wire.EncodeResponse(resp)
		if err != nil {
			return 0, fmt.Errorf("encode cancel: %w", err)
		}
		if err := p.conn.Send(data); err != nil {
			return 0, err
		}
	}
	return len(resps), nil
}

// Streams returns the number of open streams.
func (p *publisherSession) Streams() int {
	return p.server.StreamCount()
}

func (p *publisherSession) pushLoop(ctx context.Context) {
	ticker := time.NewTicker(p.pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			frames, err := p.server.EncodedPushes(now)
			if err != nil {
				p.logger.Warn("encode pushes", "error", err)
				continue
			}
			if err := p.sendAll(frames); err != nil {
				p.logger.Debug("push failed", "error", err)
				return
			}
		}
	}
}

func (p *publisherSession) sendAll(frames [][]byte) error {
	for _, f := range frames {
		if err := p.conn.Send(f); err != nil {
			return err
		}
	}
	return nil
}

// newPublisherHandler serves the simulated publisher to websocket clients.
// Every connection gets its own publisher state.
func newPublisherHandler(cfg *SimConfig, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	upgrader := websocket.Upgrader{
		CheckOrigin:  func(*http.Request) bool { return true },
		Subprotocols: version.SupportedSubprotocols(),
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := version.Negotiate(websocket.Subprotocols(r)); err != nil {
			logger.Warn("websocket handshake rejected", "remote", r.RemoteAddr, "error", err)
			http.Error(w, err.Error(), http.StatusUpgradeRequired)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}

		wsCfg := cfg.websocketConfig()
		wsCfg.SessionID = uuid.NewString()
		wsCfg.Logger = logger
		tr := transport.NewWebsocketTransport(conn, wsCfg)
		defer tr.Close()

		sessionLogger := logger.With("session_id", wsCfg.SessionID, "remote", r.RemoteAddr)
		sessionLogger.Info("publisher session started")
		err = newPublisherSession(cfg.Publisher, tr, sessionLogger).Serve(r.Context())
		sessionLogger.Info("publisher session ended", "error", err)
	})
}
