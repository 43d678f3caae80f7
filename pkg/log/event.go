package log

import "time"

// Event is one captured protocol event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the manager instance that produced the event (UUID).
	SessionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"5,keyasint"`

	// DataItemID is the subscription the event belongs to (0 if none).
	DataItemID uint64 `cbor:"6,keyasint,omitempty"`

	// Lane is the priority lane involved, if any ("HIGH" or "NORMAL").
	Lane string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (at most one is set).
	Frame        *FrameEvent        `cbor:"10,keyasint,omitempty"`
	Message      *MessageEvent      `cbor:"11,keyasint,omitempty"`
	StateChange  *StateChangeEvent  `cbor:"12,keyasint,omitempty"`
	Notification *NotificationEvent `cbor:"13,keyasint,omitempty"`
	Error        *ErrorEventData    `cbor:"14,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an inbound message or an engine-internal event.
	DirectionIn Direction = 0
	// DirectionOut indicates an outbound message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the codec layer (requests and decoded messages).
	LayerWire Layer = 1
	// LayerEngine is the subscription manager.
	LayerEngine Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerEngine:
		return "ENGINE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a request or an inbound message.
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryNotification indicates a notification raised to consumers.
	CategoryNotification Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryNotification:
		return "NOTIFICATION"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including any length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a request handed to the transport or an inbound
// message applied by the engine.
type MessageEvent struct {
	// Type distinguishes requests, responses and pushes.
	Type MessageType `cbor:"1,keyasint"`

	// TransactionID is the request's transaction number (0 for pushes).
	TransactionID uint32 `cbor:"2,keyasint,omitempty"`

	// CorrelationKey routes the message to its subscription.
	CorrelationKey string `cbor:"3,keyasint,omitempty"`

	// Kind is the request kind ("SUBSCRIBE_OR_QUERY", "UNSUBSCRIBE").
	Kind string `cbor:"4,keyasint,omitempty"`

	// Channel is the data channel of the subscription.
	Channel string `cbor:"5,keyasint,omitempty"`

	// Final is set on inbound messages that satisfied the outstanding request.
	Final bool `cbor:"6,keyasint,omitempty"`

	// Deadline is the response deadline assigned to a sent request.
	Deadline *time.Time `cbor:"7,keyasint,omitempty"`

	// Size is the encoded message size in bytes.
	Size int `cbor:"8,keyasint,omitempty"`
}

// MessageType distinguishes requests, responses and pushes.
type MessageType uint8

const (
	// MessageTypeRequest indicates an outbound request.
	MessageTypeRequest MessageType = 0
	// MessageTypeResponse indicates a reply to an outstanding request.
	MessageTypeResponse MessageType = 1
	// MessageTypePush indicates an unsolicited data update.
	MessageTypePush MessageType = 2
)

// String returns the message type name.
func (m MessageType) String() string {
	switch m {
	case MessageTypeRequest:
		return "REQUEST"
	case MessageTypeResponse:
		return "RESPONSE"
	case MessageTypePush:
		return "PUSH"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures subscription and transport lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntitySubscription indicates a subscription state change.
	StateEntitySubscription StateEntity = 0
	// StateEntityTransport indicates the transport went online or offline.
	StateEntityTransport StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntitySubscription:
		return "SUBSCRIPTION"
	case StateEntityTransport:
		return "TRANSPORT"
	default:
		return "UNKNOWN"
	}
}

// NotificationEvent captures a notification raised to consumers.
type NotificationEvent struct {
	// Kind is the notification kind (e.g. "REQUEST_TIMEOUT").
	Kind string `cbor:"1,keyasint"`

	// Severity is the notification severity (e.g. "SUSPECT").
	Severity string `cbor:"2,keyasint,omitempty"`

	// ErrorKind is the error taxonomy entry, if any.
	ErrorKind string `cbor:"3,keyasint,omitempty"`

	// Text is the human-readable detail.
	Text string `cbor:"4,keyasint,omitempty"`

	// RequestSequenceNr is the requester-supplied sequence number.
	RequestSequenceNr uint32 `cbor:"5,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the error code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
