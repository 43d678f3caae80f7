package subscription

import (
	"slices"
	"time"
)

// Subscription is the engine-owned record of one logical subscription.
// Callers may read it through its accessors but never mutate it.
type Subscription struct {
	id                  DataItemID
	definition          Definition
	state               State
	resendAllowed       bool
	correlationKey      string
	beenSentAtLeastOnce bool
	dispatched          bool
	requestSequenceNr   uint32
	errorWarningCount   int
	errorsWarnings      []ServerError
	attempts            int
	retryAt             time.Time

	// queued is the subscribe request sitting in a send queue.
	queued *Request
	// waiting is the subscribe request sitting in the wait list.
	waiting *Request
}

func newSubscription(id DataItemID, def Definition) *Subscription {
	return &Subscription{
		id:            id,
		definition:    def,
		state:         StateInactive,
		resendAllowed: !def.ForbidResend,
	}
}

// ID returns the data item ID.
func (s *Subscription) ID() DataItemID { return s.id }

// Definition returns the definition the subscription was registered with.
func (s *Subscription) Definition() Definition { return s.definition }

// State returns the current lifecycle state.
func (s *Subscription) State() State { return s.state }

// ResendAllowed reports whether the request may be sent more than once.
func (s *Subscription) ResendAllowed() bool { return s.resendAllowed }

// CorrelationKey returns the key routing inbound messages to s, or "".
func (s *Subscription) CorrelationKey() string { return s.correlationKey }

// BeenSentAtLeastOnce reports whether the publisher ever answered a request
// of s with a satisfying response.
func (s *Subscription) BeenSentAtLeastOnce() bool { return s.beenSentAtLeastOnce }

// RequestSequenceNr returns the sequence number given to the last Activate.
func (s *Subscription) RequestSequenceNr() uint32 { return s.requestSequenceNr }

// ErrorWarningCount returns the number of server problems reported in the
// current request cycle.
func (s *Subscription) ErrorWarningCount() int { return s.errorWarningCount }

// ErrorsWarnings returns a copy of the server problems of the current cycle.
func (s *Subscription) ErrorsWarnings() []ServerError { return slices.Clone(s.errorsWarnings) }

// Attempts returns the number of retries scheduled since the last
// satisfying response.
func (s *Subscription) Attempts() int { return s.attempts }

// RetryAt returns when an automatic retry is due, or the zero time.
func (s *Subscription) RetryAt() time.Time { return s.retryAt }

// Info returns a value snapshot of s.
func (s *Subscription) Info() Info {
	return Info{
		ID:                  s.id,
		Channel:             s.definition.Channel,
		Lane:                s.definition.Lane,
		State:               s.state,
		CorrelationKey:      s.correlationKey,
		BeenSentAtLeastOnce: s.beenSentAtLeastOnce,
		RequestSequenceNr:   s.requestSequenceNr,
		ErrorWarningCount:   s.errorWarningCount,
		Attempts:            s.attempts,
		RetryAt:             s.retryAt,
	}
}

func (s *Subscription) resetCycle(seqNr uint32) {
	s.requestSequenceNr = seqNr
	s.errorWarningCount = 0
	s.errorsWarnings = nil
}

func (s *Subscription) recordProblem(e ServerError) {
	s.errorWarningCount++
	s.errorsWarnings = append(s.errorsWarnings, e)
}

// Info is a copy of the observable fields of a Subscription. It is safe to
// hand across goroutines.
type Info struct {
	ID                  DataItemID
	Channel             string
	Lane                Lane
	State               State
	CorrelationKey      string
	BeenSentAtLeastOnce bool
	RequestSequenceNr   uint32
	ErrorWarningCount   int
	Attempts            int
	RetryAt             time.Time
}
