package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubsync/pubsync-go/pkg/backoff"
)

func fastConfig() Config {
	return Config{
		Tiers: backoff.Tiers{
			First:        time.Millisecond,
			Second:       2 * time.Millisecond,
			Plateau:      3 * time.Millisecond,
			PlateauUntil: 3,
			Final:        4 * time.Millisecond,
		},
		StableAfter: time.Hour,
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "DISCONNECTED"},
		{StateConnecting, "CONNECTING"},
		{StateConnected, "CONNECTED"},
		{StateReconnecting, "RECONNECTING"},
		{StateClosed, "CLOSED"},
		{State(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	want, _ := backoff.AlgorithmReferencable.Tiers()
	assert.Equal(t, want, cfg.Tiers)
	assert.Equal(t, DefaultJitter, cfg.Jitter)
	assert.Equal(t, DefaultStableAfter, cfg.StableAfter)
}

func TestSupervisorInvalidTiersFallBack(t *testing.T) {
	s := NewSupervisor(nil, Config{})
	assert.Equal(t, DefaultConfig().Tiers, s.config.Tiers)
	assert.Equal(t, DefaultStableAfter, s.config.StableAfter)
}

func TestSupervisorReconnectsAfterDrop(t *testing.T) {
	var (
		dials   atomic.Int32
		delays  []time.Duration
		delayMu sync.Mutex
	)
	cfg := fastConfig()
	cfg.OnReconnecting = func(attempt int, delay time.Duration, cause error) {
		delayMu.Lock()
		delays = append(delays, delay)
		delayMu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSupervisor(func(context.Context) (ServeFunc, error) {
		n := dials.Add(1)
		return func(ctx context.Context) error {
			if n >= 4 {
				<-ctx.Done()
				return ctx.Err()
			}
			return errors.New("dropped")
		}, nil
	}, cfg)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return dials.Load() == 4 && s.IsConnected() }, time.Second, time.Millisecond)
	assert.Equal(t, 3, s.Attempts())

	delayMu.Lock()
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}, delays)
	delayMu.Unlock()

	cancel()
	assert.NoError(t, <-done)
	assert.Equal(t, StateClosed, s.State())
}

func TestSupervisorDisconnect(t *testing.T) {
	var dials atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSupervisor(func(context.Context) (ServeFunc, error) {
		dials.Add(1)
		return func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}, nil
	}, fastConfig())

	assert.ErrorIs(t, s.Disconnect(), ErrNotConnected)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, s.IsConnected, time.Second, time.Millisecond)
	require.NoError(t, s.Disconnect())
	require.Eventually(t, func() bool { return dials.Load() == 2 && s.IsConnected() }, time.Second, time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestSupervisorConnectFailureIsFatal(t *testing.T) {
	refused := errors.New("refused")
	s := NewSupervisor(func(context.Context) (ServeFunc, error) {
		return nil, refused
	}, fastConfig())

	err := s.Run(context.Background())
	assert.ErrorIs(t, err, refused)
	assert.Equal(t, StateClosed, s.State())
	assert.ErrorIs(t, s.Run(context.Background()), ErrClosed)
}

func TestSupervisorRejectsSecondRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSupervisor(func(context.Context) (ServeFunc, error) {
		return func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}, nil
	}, fastConfig())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	require.Eventually(t, s.IsConnected, time.Second, time.Millisecond)

	assert.ErrorIs(t, s.Run(ctx), ErrAlreadyRunning)
	cancel()
	assert.NoError(t, <-done)
}

func TestSupervisorStableConnectionResetsAttempts(t *testing.T) {
	var dials atomic.Int32
	cfg := fastConfig()
	cfg.StableAfter = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSupervisor(func(context.Context) (ServeFunc, error) {
		n := dials.Add(1)
		return func(ctx context.Context) error {
			switch {
			case n <= 2:
				return errors.New("flap")
			case n == 3:
				time.Sleep(30 * time.Millisecond)
				return errors.New("dropped after a while")
			default:
				<-ctx.Done()
				return nil
			}
		}, nil
	}, cfg)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return dials.Load() == 4 && s.IsConnected() }, time.Second, time.Millisecond)
	assert.Equal(t, 1, s.Attempts())

	cancel()
	assert.NoError(t, <-done)
}

func TestSupervisorStateChanges(t *testing.T) {
	var (
		mu          sync.Mutex
		transitions []State
	)
	cfg := fastConfig()
	cfg.OnStateChange = func(_, next State) {
		mu.Lock()
		transitions = append(transitions, next)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := true
	s := NewSupervisor(func(context.Context) (ServeFunc, error) {
		return func(ctx context.Context) error {
			if first {
				first = false
				return errors.New("dropped")
			}
			cancel()
			return nil
		}, nil
	}, cfg)

	assert.NoError(t, s.Run(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{
		StateConnecting, StateConnected, StateReconnecting,
		StateConnecting, StateConnected, StateClosed,
	}, transitions)
}

func TestSupervisorJitter(t *testing.T) {
	cfg := fastConfig()
	cfg.Jitter = 0.25
	s := NewSupervisor(nil, cfg)

	base := 100 * time.Millisecond
	samples := make(map[time.Duration]bool)
	for range 20 {
		s.mu.Lock()
		d := s.addJitter(base)
		s.mu.Unlock()
		if d < base || d > base+base/4 {
			t.Errorf("jittered delay %v out of range [%v, %v]", d, base, base+base/4)
		}
		samples[d] = true
	}
	if len(samples) < 2 {
		t.Error("all jittered samples are identical")
	}
}
