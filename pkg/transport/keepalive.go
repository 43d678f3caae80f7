package transport

import (
	"context"
	"sync"
	"time"
)

// Keep-alive defaults.
const (
	DefaultPingInterval   = 15 * time.Second
	DefaultPongTimeout    = 5 * time.Second
	DefaultMaxMissedPongs = 3
)

// KeepAliveConfig configures liveness probing.
type KeepAliveConfig struct {
	// PingInterval is the interval between pings. Negative disables
	// keep-alive.
	PingInterval time.Duration

	// PongTimeout is how long a ping may stay unanswered before it counts
	// as missed.
	PongTimeout time.Duration

	// MaxMissedPongs is the number of consecutive missed pongs that declare
	// the connection dead.
	MaxMissedPongs int
}

// DefaultKeepAliveConfig returns the default keep-alive configuration.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		PingInterval:   DefaultPingInterval,
		PongTimeout:    DefaultPongTimeout,
		MaxMissedPongs: DefaultMaxMissedPongs,
	}
}

// Enabled reports whether keep-alive probing is on.
func (c KeepAliveConfig) Enabled() bool {
	return c.PingInterval >= 0
}

// DetectionDelay is the longest a dead connection can go unnoticed.
func (c KeepAliveConfig) DetectionDelay() time.Duration {
	return c.PingInterval*time.Duration(c.MaxMissedPongs) + c.PongTimeout
}

// KeepAliveStats is a snapshot of keep-alive state.
type KeepAliveStats struct {
	LastPing    time.Time
	LastPong    time.Time
	LastLatency time.Duration
	MissedPongs int
	Sequence    uint32
}

// KeepAlive sends numbered pings and declares the connection dead after
// too many consecutive unanswered ones.
type KeepAlive struct {
	config    KeepAliveConfig
	sendPing  func(seq uint32) error
	onTimeout func()

	mu      sync.Mutex
	stats   KeepAliveStats
	pending bool
	running bool
	stopCh  chan struct{}
	pongCh  chan uint32
}

// NewKeepAlive creates a keep-alive that pings through sendPing and calls
// onTimeout once when the connection is declared dead.
func NewKeepAlive(config KeepAliveConfig, sendPing func(seq uint32) error, onTimeout func()) *KeepAlive {
	if config.PingInterval == 0 {
		config.PingInterval = DefaultPingInterval
	}
	if config.PongTimeout == 0 {
		config.PongTimeout = DefaultPongTimeout
	}
	if config.MaxMissedPongs == 0 {
		config.MaxMissedPongs = DefaultMaxMissedPongs
	}
	return &KeepAlive{
		config:    config,
		sendPing:  sendPing,
		onTimeout: onTimeout,
		pongCh:    make(chan uint32, 1),
	}
}

// Start runs the probe loop until ctx is done or Stop is called.
func (ka *KeepAlive) Start(ctx context.Context) {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	if ka.running || !ka.config.Enabled() {
		return
	}
	ka.running = true
	ka.stopCh = make(chan struct{})
	go ka.loop(ctx, ka.stopCh)
}

// Stop ends the probe loop.
func (ka *KeepAlive) Stop() {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	if !ka.running {
		return
	}
	ka.running = false
	close(ka.stopCh)
}

// PongReceived reports a pong carrying seq.
func (ka *KeepAlive) PongReceived(seq uint32) {
	select {
	case ka.pongCh <- seq:
	default:
	}
}

// Stats returns a snapshot of keep-alive state.
func (ka *KeepAlive) Stats() KeepAliveStats {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.stats
}

func (ka *KeepAlive) loop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(ka.config.PingInterval)
	defer ticker.Stop()

	ka.ping()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case seq := <-ka.pongCh:
			ka.pong(seq)
		case <-ticker.C:
			if ka.expired() {
				if ka.onTimeout != nil {
					ka.onTimeout()
				}
				return
			}
			ka.ping()
		}
	}
}

func (ka *KeepAlive) ping() {
	ka.mu.Lock()
	ka.stats.Sequence++
	seq := ka.stats.Sequence
	ka.stats.LastPing = time.Now()
	ka.pending = true
	ka.mu.Unlock()

	// A failed send is left to the pong timeout.
	_ = ka.sendPing(seq)
}

// expired counts an overdue ping as missed and reports whether the
// connection is dead.
func (ka *KeepAlive) expired() bool {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	if ka.pending && time.Since(ka.stats.LastPing) >= ka.config.PongTimeout {
		ka.pending = false
		ka.stats.MissedPongs++
	}
	return ka.stats.MissedPongs >= ka.config.MaxMissedPongs
}

func (ka *KeepAlive) pong(seq uint32) {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	now := time.Now()
	ka.stats.LastPong = now
	// Pongs for older pings are late, not proof of life.
	if ka.pending && seq == ka.stats.Sequence {
		ka.pending = false
		ka.stats.MissedPongs = 0
		ka.stats.LastLatency = now.Sub(ka.stats.LastPing)
	}
}
