package subscription

import "time"

// RequestEncoder turns a request into a wire message. Returning an
// *InvalidRequestError rejects only that request; any other error is fatal.
type RequestEncoder interface {
	CreateRequestMessage(r *Request) ([]byte, error)
}

// ActionKind tells the codec how an inbound message relates to the request
// that produced its correlation key.
type ActionKind uint8

const (
	// ActionResponse is a reply to an outstanding request.
	ActionResponse ActionKind = iota

	// ActionPush is an unsolicited update on an established subscription.
	ActionPush
)

// String returns the action kind name.
func (k ActionKind) String() string {
	switch k {
	case ActionResponse:
		return "RESPONSE"
	case ActionPush:
		return "PUSH"
	default:
		return "UNKNOWN"
	}
}

// DataNotification is what a codec extracts from an inbound message.
type DataNotification struct {
	// Final marks a response that satisfies the outstanding request.
	Final bool

	// Errors lists problems the publisher reported.
	Errors []ServerError

	// Payload is channel-specific data for the consumer.
	Payload any
}

// Codec is the full wire collaborator: request encoding plus inbound
// message classification and parsing.
type Codec interface {
	RequestEncoder

	// Classify extracts the correlation key and action kind of msg.
	Classify(msg []byte) (key string, kind ActionKind, err error)

	// ParseMessage decodes msg for sub.
	ParseMessage(sub *Subscription, msg []byte, kind ActionKind) (DataNotification, error)
}

// Packet is an encoded request ready for transmission.
type Packet struct {
	Request *Request
	Message []byte
}

// Transport hands packets to the wire. SendPackets must either accept all
// packets or return an error.
type Transport interface {
	SendPackets(now time.Time, packets []Packet) error
}

// SequenceGenerator yields transaction IDs.
type SequenceGenerator interface {
	Next() uint32
}

// Counter is a SequenceGenerator counting up from 1. Zero is skipped on
// wrap-around. It is not safe for concurrent use.
type Counter struct {
	last uint32
}

// NewCounter returns a counter whose first value is 1.
func NewCounter() *Counter {
	return &Counter{}
}

// Next returns the next transaction ID.
func (c *Counter) Next() uint32 {
	c.last++
	if c.last == 0 {
		c.last = 1
	}
	return c.last
}

// Hooks are process-wide callbacks for alerting. They run synchronously on
// the caller's goroutine and must not call back into the Manager.
type Hooks struct {
	// OnSubscriptionError is called for every notification carrying a
	// subscription-level error or warning.
	OnSubscriptionError func(Notification)

	// OnServerWarning is called for every warning-class server problem.
	OnServerWarning func()
}

// Metrics receives engine measurements.
type Metrics interface {
	RequestSent(lane Lane, kind RequestKind)
	RequestTimedOut(lane Lane)
	Notified(kind NotificationKind)
	QueueLength(lane Lane, n int)
	WaitListLength(n int)
	SubscriptionCount(n int)
	InternalFailure()
}

// NoopMetrics discards all measurements.
type NoopMetrics struct{}

func (NoopMetrics) RequestSent(Lane, RequestKind) {}
func (NoopMetrics) RequestTimedOut(Lane)          {}
func (NoopMetrics) Notified(NotificationKind)     {}
func (NoopMetrics) QueueLength(Lane, int)         {}
func (NoopMetrics) WaitListLength(int)            {}
func (NoopMetrics) SubscriptionCount(int)         {}
func (NoopMetrics) InternalFailure()              {}

var _ Metrics = NoopMetrics{}
var _ SequenceGenerator = (*Counter)(nil)
