package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pubsync/pubsync-go/pkg/subscription"
	"github.com/pubsync/pubsync-go/pkg/transport"
)

var errNotConnected = errors.New("not connected")

// frameConn is a connection carrying one message per frame.
type frameConn interface {
	Send(data []byte) error
	ReadLoop(ctx context.Context, handle transport.FrameHandler) error
	Close() error
}

// peer is a client connection to a publisher.
type peer interface {
	subscription.Transport
	frameConn
}

// link is the manager's transport. It forwards to whichever connection is
// currently attached, so the manager outlives reconnects.
type link struct {
	mu   sync.Mutex
	peer peer
}

// SendPackets forwards to the attached connection.
func (l *link) SendPackets(now time.Time, packets []subscription.Packet) error {
	p := l.current()
	if p == nil {
		return errNotConnected
	}
	return p.SendPackets(now, packets)
}

func (l *link) attach(p peer) {
	l.mu.Lock()
	l.peer = p
	l.mu.Unlock()
}

func (l *link) detach() peer {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.peer
	l.peer = nil
	return p
}

func (l *link) current() peer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peer
}

var _ subscription.Transport = (*link)(nil)
