package subscription

import (
	"log/slog"
	"time"

	"github.com/pubsync/pubsync-go/pkg/log"
)

// Default engine settings.
const (
	DefaultResponseTimeout        = 5 * time.Second
	DefaultNormalBurst            = 10
	DefaultNormalThrottleInterval = 1 * time.Second
)

// Config holds Manager configuration.
type Config struct {
	// ResponseTimeout is the default span between sending a request and
	// declaring it timed out.
	ResponseTimeout time.Duration

	// NormalBurst is the most normal-lane requests released per evaluation.
	// Zero or less disables normal-lane throttling.
	NormalBurst int

	// NormalThrottleInterval is how long the normal lane holds after a
	// throttled release.
	NormalThrottleInterval time.Duration

	// ThrottleMode selects burst or strict throttling.
	ThrottleMode ThrottleMode

	// Logger is used for operational logging. Nil discards.
	Logger *slog.Logger

	// ProtocolLogger receives protocol capture events. Nil disables capture.
	ProtocolLogger log.Logger

	// Metrics receives measurements. Nil uses NoopMetrics.
	Metrics Metrics

	// Sequence yields transaction IDs. Nil uses a fresh Counter.
	Sequence SequenceGenerator

	// Hooks are alerting callbacks.
	Hooks Hooks
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		ResponseTimeout:        DefaultResponseTimeout,
		NormalBurst:            DefaultNormalBurst,
		NormalThrottleInterval: DefaultNormalThrottleInterval,
		ThrottleMode:           ThrottleBurst,
	}
}
