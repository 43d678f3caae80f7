package wire

import (
	"fmt"

	"github.com/pubsync/pubsync-go/pkg/subscription"
)

// Codec implements subscription.Codec for the CBOR wire format.
type Codec struct{}

// NewCodec returns a Codec.
func NewCodec() *Codec {
	return &Codec{}
}

// CreateRequestMessage encodes r. Definitions without a channel or with a
// payload that cannot be encoded are rejected as invalid requests.
// Referencable definitions subscribe, all others query.
func (c *Codec) CreateRequestMessage(r *subscription.Request) ([]byte, error) {
	def := r.Definition()
	if def.Channel == "" {
		return nil, &subscription.InvalidRequestError{Reason: "definition has no channel"}
	}

	req := &Request{
		MessageID: r.TransactionID,
		Channel:   def.Channel,
		Key:       r.CorrelationKey,
	}
	switch {
	case r.Kind == subscription.KindUnsubscribe:
		req.Operation = OpUnsubscribe
	case def.Referencable():
		req.Operation = OpSubscribe
		req.Params = def.Payload
	default:
		req.Operation = OpQuery
		req.Params = def.Payload
	}
	msg, err := EncodeRequest(req)
	if err != nil && r.Kind != subscription.KindUnsubscribe {
		return nil, &subscription.InvalidRequestError{Reason: err.Error()}
	}
	return msg, err
}

// Classify returns the correlation key of msg and whether it answers a
// request or is a push.
func (c *Codec) Classify(msg []byte) (string, subscription.ActionKind, error) {
	key, push, err := PeekKey(msg)
	if err != nil {
		return "", 0, err
	}
	if push {
		return key, subscription.ActionPush, nil
	}
	return key, subscription.ActionResponse, nil
}

// ParseMessage decodes msg into a DataNotification. A failed status and
// every attached issue become server errors. Only responses can be final.
func (c *Codec) ParseMessage(sub *subscription.Subscription, msg []byte, kind subscription.ActionKind) (subscription.DataNotification, error) {
	resp, err := DecodeResponse(msg)
	if err != nil {
		return subscription.DataNotification{}, err
	}
	if resp.Key != sub.CorrelationKey() {
		return subscription.DataNotification{}, fmt.Errorf("message key %q does not match subscription %d", resp.Key, sub.ID())
	}

	dn := subscription.DataNotification{
		Final:   kind == subscription.ActionResponse && resp.Final,
		Payload: resp.Payload,
	}
	if !resp.IsSuccess() {
		dn.Errors = append(dn.Errors, subscription.ServerError{
			Kind: resp.Status.ErrorKind(),
			Text: resp.Status.String(),
		})
	}
	for _, issue := range resp.Issues {
		dn.Errors = append(dn.Errors, subscription.ServerError{
			Kind: issue.Code.ErrorKind(),
			Text: issue.Text,
		})
	}
	return dn, nil
}

var _ subscription.Codec = (*Codec)(nil)
