package interaction

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pubsync/pubsync-go/pkg/subscription"
)

// Router errors.
var (
	// ErrUnexpectedReply is returned for a message whose correlation key is
	// not bound to any subscription. Late responses to timed-out requests
	// land here.
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// Router routes inbound publisher messages to the subscription they
// correlate with.
type Router struct {
	manager *subscription.Manager
	codec   subscription.Codec
	logger  *slog.Logger
}

// NewRouter creates a router that delivers into manager. A nil logger
// discards output.
func NewRouter(manager *subscription.Manager, codec subscription.Codec, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{
		manager: manager,
		codec:   codec,
		logger:  logger,
	}
}

// HandleMessage classifies msg, looks up its subscription and delivers the
// parsed result. The manager must not be used concurrently.
func (r *Router) HandleMessage(now time.Time, msg []byte) ([]subscription.Notification, error) {
	key, kind, err := r.codec.Classify(msg)
	if err != nil {
		return nil, fmt.Errorf("classify message: %w", err)
	}

	sub, ok := r.manager.Lookup(key)
	if !ok {
		r.logger.Debug("dropping uncorrelated message", "key", key, "kind", kind)
		return nil, fmt.Errorf("%w: key %q", ErrUnexpectedReply, key)
	}

	dn, err := r.codec.ParseMessage(sub, msg, kind)
	if err != nil {
		return nil, fmt.Errorf("parse message for data item %d: %w", sub.ID(), err)
	}

	return r.manager.Deliver(now, sub.ID(), dn)
}

// Ignorable reports whether err describes a message that is normal to
// drop, such as a late response or an update racing a deactivation.
func Ignorable(err error) bool {
	return errors.Is(err, ErrUnexpectedReply) || errors.Is(err, subscription.ErrStaleMessage)
}
