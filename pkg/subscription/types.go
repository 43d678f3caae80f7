package subscription

import (
	"fmt"
	"strings"
	"time"

	"github.com/pubsync/pubsync-go/pkg/backoff"
)

// DataItemID identifies a subscription. It is chosen by the caller and must
// be unique while the subscription is registered.
type DataItemID uint64

// State is the lifecycle state of a subscription.
type State uint8

const (
	// StateInactive means no request is queued or in flight.
	StateInactive State = iota

	// StateHighPrioritySendQueued means a request waits in the high lane.
	StateHighPrioritySendQueued

	// StateNormalSendQueued means a request waits in the normal lane.
	StateNormalSendQueued

	// StateResponseWaiting means a request was sent and awaits its response.
	StateResponseWaiting

	// StateSubscribed means the publisher acknowledged the request.
	StateSubscribed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateInactive:
		return "INACTIVE"
	case StateHighPrioritySendQueued:
		return "HIGH_PRIORITY_SEND_QUEUED"
	case StateNormalSendQueued:
		return "NORMAL_SEND_QUEUED"
	case StateResponseWaiting:
		return "RESPONSE_WAITING"
	case StateSubscribed:
		return "SUBSCRIBED"
	default:
		return "UNKNOWN"
	}
}

// Queued reports whether the state is one of the send-queued states.
func (s State) Queued() bool {
	return s == StateHighPrioritySendQueued || s == StateNormalSendQueued
}

// Correlated reports whether a subscription in this state holds a
// correlation key.
func (s State) Correlated() bool {
	return s == StateResponseWaiting || s == StateSubscribed
}

// Lane is a send priority class.
type Lane uint8

const (
	// LaneNormal is throttled.
	LaneNormal Lane = iota

	// LaneHigh is never throttled.
	LaneHigh
)

// Lanes lists the lanes in drain order.
var Lanes = [...]Lane{LaneHigh, LaneNormal}

// String returns the lane name.
func (l Lane) String() string {
	switch l {
	case LaneNormal:
		return "NORMAL"
	case LaneHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether l names a lane.
func (l Lane) Valid() bool {
	return l == LaneNormal || l == LaneHigh
}

// ParseLane parses a lane name (case-insensitive).
func ParseLane(s string) (Lane, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal":
		return LaneNormal, nil
	case "high":
		return LaneHigh, nil
	default:
		return 0, fmt.Errorf("unknown lane %q", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Lane) UnmarshalText(text []byte) error {
	v, err := ParseLane(string(text))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

func (l Lane) queuedState() State {
	if l == LaneHigh {
		return StateHighPrioritySendQueued
	}
	return StateNormalSendQueued
}

// RequestKind distinguishes outbound operations.
type RequestKind uint8

const (
	// KindSubscribeOrQuery starts a subscription or runs a one-off query.
	KindSubscribeOrQuery RequestKind = iota

	// KindUnsubscribe cancels whatever a previous request started.
	KindUnsubscribe
)

// String returns the request kind name.
func (k RequestKind) String() string {
	switch k {
	case KindSubscribeOrQuery:
		return "SUBSCRIBE_OR_QUERY"
	case KindUnsubscribe:
		return "UNSUBSCRIBE"
	default:
		return "UNKNOWN"
	}
}

// ThrottleMode selects how the normal lane limits its send rate.
type ThrottleMode uint8

const (
	// ThrottleBurst releases up to the burst size per evaluation and only
	// holds the lane after an evaluation was capped.
	ThrottleBurst ThrottleMode = iota

	// ThrottleStrict holds the lane for one interval after every non-empty
	// release, so no interval ever sees more than the burst size.
	ThrottleStrict
)

// String returns the throttle mode name.
func (m ThrottleMode) String() string {
	switch m {
	case ThrottleBurst:
		return "BURST"
	case ThrottleStrict:
		return "STRICT"
	default:
		return "UNKNOWN"
	}
}

// ParseThrottleMode parses a throttle mode name (case-insensitive).
func ParseThrottleMode(s string) (ThrottleMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "burst":
		return ThrottleBurst, nil
	case "strict":
		return ThrottleStrict, nil
	default:
		return 0, fmt.Errorf("unknown throttle mode %q", s)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ThrottleMode) UnmarshalText(text []byte) error {
	v, err := ParseThrottleMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Definition describes what a subscription asks for. The engine reads only
// the common fields; Payload is passed through to the codec untouched.
type Definition struct {
	// Channel names the publisher data channel.
	Channel string

	// Lane selects the send priority for every request of the subscription.
	Lane Lane

	// RetryAlgorithm selects the delay table for automatic retries.
	RetryAlgorithm backoff.Algorithm

	// ReferencableKey is the stable identity under which the stream may be
	// shared. Empty means a one-off query.
	ReferencableKey string

	// ForbidResend marks non-idempotent requests that must reach the wire
	// at most once.
	ForbidResend bool

	// ResponseTimeout overrides Config.ResponseTimeout when positive.
	ResponseTimeout time.Duration

	// Payload is channel-specific data for the codec.
	Payload any
}

// Referencable reports whether the definition describes a shareable stream.
func (d Definition) Referencable() bool {
	return d.ReferencableKey != ""
}
