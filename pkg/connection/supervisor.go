package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/pubsync/pubsync-go/pkg/backoff"
)

// Supervisor errors.
var (
	ErrClosed         = errors.New("supervisor closed")
	ErrNotConnected   = errors.New("not connected")
	ErrAlreadyRunning = errors.New("supervisor already running")
)

// State represents the connection state.
type State uint8

const (
	// StateDisconnected indicates the supervisor has not started yet.
	StateDisconnected State = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateConnected indicates an active connection.
	StateConnected

	// StateReconnecting indicates the supervisor is waiting out a delay.
	StateReconnecting

	// StateClosed indicates the supervisor has stopped.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ServeFunc runs one established connection until it ends. ctx is
// cancelled when the supervisor stops or Disconnect is called.
type ServeFunc func(ctx context.Context) error

// ConnectFunc establishes a connection and returns the function serving it.
type ConnectFunc func(ctx context.Context) (ServeFunc, error)

// Defaults.
const (
	DefaultStableAfter = 30 * time.Second
	DefaultJitter      = 0.25
)

// Config configures a Supervisor.
type Config struct {
	// Tiers is the reconnect delay table.
	Tiers backoff.Tiers

	// Jitter is the maximum random stretch as a fraction of the base delay.
	// Zero disables jitter.
	Jitter float64

	// StableAfter is how long a connection must last to reset the attempt
	// counter.
	StableAfter time.Duration

	// Logger receives lifecycle events. Nil discards them.
	Logger *slog.Logger

	OnStateChange  func(oldState, newState State)
	OnReconnecting func(attempt int, delay time.Duration, cause error)
}

// DefaultConfig returns a configuration using the REFERENCABLE delay table.
func DefaultConfig() Config {
	tiers, _ := backoff.AlgorithmReferencable.Tiers()
	return Config{
		Tiers:       tiers,
		Jitter:      DefaultJitter,
		StableAfter: DefaultStableAfter,
	}
}

// Supervisor keeps one connection alive at a time.
type Supervisor struct {
	config  Config
	connect ConnectFunc
	logger  *slog.Logger

	mu       sync.Mutex
	state    State
	running  bool
	attempts int
	drop     context.CancelFunc
	rng      *rand.Rand
}

// NewSupervisor creates a supervisor that dials with connect.
func NewSupervisor(connect ConnectFunc, cfg Config) *Supervisor {
	if cfg.StableAfter <= 0 {
		cfg.StableAfter = DefaultStableAfter
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	if cfg.Tiers.Validate() != nil {
		cfg.Tiers = DefaultConfig().Tiers
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Supervisor{
		config:  cfg,
		connect: connect,
		logger:  logger,
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
}

// State returns the current connection state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsConnected returns true if a connection is being served.
func (s *Supervisor) IsConnected() bool {
	return s.State() == StateConnected
}

// Attempts returns the number of reconnects since the last stable
// connection.
func (s *Supervisor) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Disconnect ends the current connection. The supervisor reconnects after
// the next delay.
func (s *Supervisor) Disconnect() error {
	s.mu.Lock()
	drop := s.drop
	s.mu.Unlock()
	if drop == nil {
		return ErrNotConnected
	}
	drop()
	return nil
}

// Run connects and reconnects until ctx is cancelled, which returns nil,
// or the ConnectFunc fails.
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.state == StateClosed:
		s.mu.Unlock()
		return ErrClosed
	case s.running:
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()
	defer s.setState(StateClosed)

	for {
		s.setState(StateConnecting)
		serve, err := s.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("connect: %w", err)
		}

		started := time.Now()
		err = s.serveOnce(ctx, serve)
		if ctx.Err() != nil {
			return nil
		}

		delay := s.nextDelay(time.Since(started))
		attempt := s.Attempts()
		s.setState(StateReconnecting)
		s.logger.Warn("connection lost", "error", err, "attempt", attempt, "reconnect_in", delay)
		if s.config.OnReconnecting != nil {
			s.config.OnReconnecting(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (s *Supervisor) serveOnce(ctx context.Context, serve ServeFunc) error {
	connCtx, drop := context.WithCancel(ctx)
	defer drop()

	s.mu.Lock()
	s.drop = drop
	s.mu.Unlock()
	s.setState(StateConnected)

	err := serve(connCtx)

	s.mu.Lock()
	s.drop = nil
	s.mu.Unlock()
	return err
}

// nextDelay advances the attempt counter and returns the jittered delay.
func (s *Supervisor) nextDelay(lasted time.Duration) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lasted >= s.config.StableAfter {
		s.attempts = 0
	}
	s.attempts++
	return s.addJitter(s.config.Tiers.Delay(s.attempts))
}

// addJitter must be called with mu held.
func (s *Supervisor) addJitter(d time.Duration) time.Duration {
	if s.config.Jitter <= 0 {
		return d
	}
	return d + time.Duration(float64(d)*s.config.Jitter*s.rng.Float64())
}

func (s *Supervisor) setState(next State) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()
	if prev != next && s.config.OnStateChange != nil {
		s.config.OnStateChange(prev, next)
	}
}
