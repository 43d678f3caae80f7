package subscription

import "time"

// Request is one outbound operation for a subscription.
type Request struct {
	// Kind is the operation.
	Kind RequestKind

	// Subscription is the subscription the request acts on.
	Subscription *Subscription

	// Lane is the lane the request travels through. It always equals the
	// lane of the subscription's definition.
	Lane Lane

	// TransactionID is assigned when the request is drained.
	TransactionID uint32

	// CorrelationKey routes replies. Subscribe requests get a fresh key when
	// drained; unsubscribe requests carry the key of the request they cancel.
	CorrelationKey string

	// Timeout is the response timeout span used for ResponseDeadline.
	Timeout time.Duration

	// ResponseDeadline is set when a subscribe request is sent.
	ResponseDeadline time.Time
}

// DataItemID returns the ID of the subscription the request belongs to.
func (r *Request) DataItemID() DataItemID {
	return r.Subscription.id
}

// Definition returns the definition of the subscription the request belongs to.
func (r *Request) Definition() Definition {
	return r.Subscription.definition
}
