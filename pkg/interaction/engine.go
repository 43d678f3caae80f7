package interaction

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/pubsync/pubsync-go/pkg/subscription"
)

// Engine errors.
var (
	ErrEngineClosed  = errors.New("engine is closed")
	ErrEngineRunning = errors.New("engine is already running")
)

// DefaultTickInterval is how often the engine exercises the manager.
const DefaultTickInterval = 100 * time.Millisecond

// NotificationHandler receives every notification the engine produces, in
// order, on the engine goroutine. It must not call back into the engine.
type NotificationHandler func(n subscription.Notification)

// EngineConfig configures an Engine.
type EngineConfig struct {
	// TickInterval is the exercise period.
	TickInterval time.Duration

	// InboundBuffer sizes the queue of received frames.
	InboundBuffer int

	// OnNotification receives notifications. Nil drops them.
	OnNotification NotificationHandler

	// OnError receives internal failures and undeliverable messages. Late
	// and stale messages are only logged.
	OnError func(err error)

	// Logger is the structured logger. Nil discards output.
	Logger *slog.Logger

	// Clock returns the current time. Nil uses time.Now.
	Clock func() time.Time
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TickInterval:  DefaultTickInterval,
		InboundBuffer: 256,
	}
}

// Engine owns a Manager and serializes every access to it on a single
// goroutine: API calls, inbound frames and periodic exercise.
type Engine struct {
	manager *subscription.Manager
	router  *Router
	config  EngineConfig
	logger  *slog.Logger

	calls   chan func()
	inbound chan []byte
	done    chan struct{}
	stopped chan struct{}

	closeOnce sync.Once
	runOnce   sync.Once
}

// NewEngine wraps manager. The engine does nothing until Run is called.
func NewEngine(manager *subscription.Manager, codec subscription.Codec, config EngineConfig) *Engine {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.InboundBuffer <= 0 {
		config.InboundBuffer = 256
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{
		manager: manager,
		router:  NewRouter(manager, codec, logger),
		config:  config,
		logger:  logger,
		calls:   make(chan func()),
		inbound: make(chan []byte, config.InboundBuffer),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Run drives the engine until ctx is cancelled or Close is called. It
// returns nil after Close and ctx.Err() after cancellation.
func (e *Engine) Run(ctx context.Context) error {
	started := false
	e.runOnce.Do(func() { started = true })
	if !started {
		select {
		case <-e.done:
			return ErrEngineClosed
		default:
			return ErrEngineRunning
		}
	}
	defer close(e.stopped)

	ticker := time.NewTicker(e.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.done:
			return nil
		case fn := <-e.calls:
			fn()
		case msg := <-e.inbound:
			e.handleFrame(msg)
		case <-ticker.C:
			e.exercise()
		}
	}
}

// Close stops the engine and waits for Run to return. If the manager is
// online it is taken offline first so consumers see the final Offlined
// notifications. Run cannot be started after Close.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		running := true
		e.runOnce.Do(func() { running = false })

		if running {
			err = e.call(context.Background(), func() error {
				if !e.manager.Online() {
					return nil
				}
				return e.settle(e.manager.GoOffline("engine closed"))
			})
			if errors.Is(err, ErrEngineClosed) {
				err = nil
			}
		}
		close(e.done)
		if running {
			<-e.stopped
		}
	})
	return err
}

// HandleFrame queues an inbound publisher message. It blocks while the
// inbound buffer is full.
func (e *Engine) HandleFrame(ctx context.Context, msg []byte) error {
	select {
	case e.inbound <- msg:
		return nil
	case <-e.done:
		return ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers a subscription.
func (e *Engine) Subscribe(ctx context.Context, id subscription.DataItemID, def subscription.Definition) (online bool, err error) {
	err = e.call(ctx, func() error {
		var err error
		online, err = e.manager.Subscribe(id, def)
		return e.settleCall(err)
	})
	return online, err
}

// Unsubscribe removes a subscription.
func (e *Engine) Unsubscribe(ctx context.Context, id subscription.DataItemID) error {
	return e.call(ctx, func() error {
		return e.settleCall(e.manager.Unsubscribe(id))
	})
}

// Activate queues a subscribe or query request for id.
func (e *Engine) Activate(ctx context.Context, id subscription.DataItemID, requestSequenceNr uint32) error {
	return e.call(ctx, func() error {
		return e.settleCall(e.manager.Activate(id, requestSequenceNr))
	})
}

// SetBatching holds or releases a lane.
func (e *Engine) SetBatching(ctx context.Context, lane subscription.Lane, enabled bool) error {
	return e.call(ctx, func() error {
		return e.settleCall(e.manager.SetBatching(lane, enabled))
	})
}

// GoOnline marks the transport usable.
func (e *Engine) GoOnline(ctx context.Context) error {
	return e.call(ctx, func() error {
		e.dispatch(e.manager.GoOnline())
		return nil
	})
}

// GoOffline marks the transport unusable and deactivates everything.
func (e *Engine) GoOffline(ctx context.Context, reason string) error {
	return e.call(ctx, func() error {
		return e.settle(e.manager.GoOffline(reason))
	})
}

// Exercise runs one exercise cycle immediately instead of waiting for
// the next tick.
func (e *Engine) Exercise(ctx context.Context) error {
	return e.call(ctx, func() error {
		return e.settle(e.manager.Exercise(e.config.Clock()))
	})
}

// Get returns a snapshot of one subscription.
func (e *Engine) Get(ctx context.Context, id subscription.DataItemID) (info subscription.Info, ok bool, err error) {
	err = e.call(ctx, func() error {
		info, ok = e.manager.Get(id)
		return nil
	})
	return info, ok, err
}

// Subscriptions returns snapshots of all subscriptions sorted by ID.
func (e *Engine) Subscriptions(ctx context.Context) ([]subscription.Info, error) {
	var infos []subscription.Info
	err := e.call(ctx, func() error {
		infos = e.manager.Subscriptions()
		return nil
	})
	return infos, err
}

// Stats returns engine counters.
func (e *Engine) Stats(ctx context.Context) (subscription.Stats, error) {
	var stats subscription.Stats
	err := e.call(ctx, func() error {
		stats = e.manager.Stats()
		return nil
	})
	return stats, err
}

// call runs fn on the engine goroutine and waits for it.
func (e *Engine) call(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	wrapped := func() { result <- fn() }

	select {
	case e.calls <- wrapped:
	case <-e.done:
		return ErrEngineClosed
	case <-e.stopped:
		return ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	return <-result
}

func (e *Engine) exercise() {
	notes, err := e.manager.Exercise(e.config.Clock())
	if err := e.settle(notes, err); err != nil {
		e.logger.Warn("exercise failed", "error", err)
	}
}

func (e *Engine) handleFrame(msg []byte) {
	notes, err := e.router.HandleMessage(e.config.Clock(), msg)
	if err != nil && Ignorable(err) {
		e.logger.Debug("message dropped", "error", err)
		return
	}
	if err := e.settle(notes, err); err != nil {
		e.logger.Warn("message handling failed", "error", err)
	}
}

// settle dispatches notes and reports err to OnError.
func (e *Engine) settle(notes []subscription.Notification, err error) error {
	e.dispatch(notes)
	if err != nil && e.config.OnError != nil && !isCallerError(err) {
		e.config.OnError(err)
	}
	return err
}

// settleCall is settle for API calls that only surface notifications
// through an InternalError.
func (e *Engine) settleCall(err error) error {
	var internal *subscription.InternalError
	if errors.As(err, &internal) {
		return e.settle(internal.Notifications, err)
	}
	return e.settle(nil, err)
}

func (e *Engine) dispatch(notes []subscription.Notification) {
	if e.config.OnNotification == nil {
		return
	}
	for _, n := range notes {
		e.config.OnNotification(n)
	}
}

// isCallerError reports errors that describe a bad API call rather than an
// engine failure.
func isCallerError(err error) bool {
	var internal *subscription.InternalError
	if errors.As(err, &internal) {
		return false
	}
	return errors.Is(err, subscription.ErrSubscriptionNotFound) ||
		errors.Is(err, subscription.ErrResendForbidden) ||
		errors.Is(err, subscription.ErrNotInactive) ||
		errors.Is(err, subscription.ErrInvalidLane)
}

// CloseAll closes every engine and returns the combined error.
func CloseAll(engines ...*Engine) error {
	var err error
	for _, e := range engines {
		err = multierr.Append(err, e.Close())
	}
	return err
}
