package wire

import (
	"errors"
	"fmt"
)

// PushMessageID marks a message as an unsolicited push.
const PushMessageID uint32 = 0

// Message validation errors.
var (
	ErrReservedMessageID = errors.New("messageId 0 is reserved for pushes")
	ErrMissingKey        = errors.New("missing correlation key")
	ErrMissingChannel    = errors.New("missing channel")
)

// Request is a message from client to publisher.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32 transaction ID
//	  2: operation,    // uint8: 1=Subscribe, 2=Query, 3=Unsubscribe
//	  3: channel,      // text
//	  4: key,          // text correlation key
//	  5: params        // channel-specific parameters
//	}
type Request struct {
	MessageID uint32    `cbor:"1,keyasint"`
	Operation Operation `cbor:"2,keyasint"`
	Channel   string    `cbor:"3,keyasint"`
	Key       string    `cbor:"4,keyasint"`
	Params    any       `cbor:"5,keyasint,omitempty"`
}

// Validate checks if the request is well formed.
func (r *Request) Validate() error {
	if r.MessageID == PushMessageID {
		return ErrReservedMessageID
	}
	if !r.Operation.IsValid() {
		return fmt.Errorf("invalid operation: %d", r.Operation)
	}
	if r.Channel == "" {
		return ErrMissingChannel
	}
	if r.Key == "" {
		return ErrMissingKey
	}
	return nil
}

// Response is a message from publisher to client. A zero MessageID makes it
// a push.
//
// CBOR encoding:
//
//	{
//	  1: messageId,    // uint32: the request's, or 0 for a push
//	  2: key,          // text correlation key
//	  3: status,       // uint8
//	  4: final,        // bool: satisfies the outstanding request
//	  5: payload,      // channel-specific data
//	  6: issues        // array of {1: code, 2: text}
//	}
type Response struct {
	MessageID uint32  `cbor:"1,keyasint"`
	Key       string  `cbor:"2,keyasint"`
	Status    Status  `cbor:"3,keyasint"`
	Final     bool    `cbor:"4,keyasint,omitempty"`
	Payload   any     `cbor:"5,keyasint,omitempty"`
	Issues    []Issue `cbor:"6,keyasint,omitempty"`
}

// IsPush reports whether r is an unsolicited update.
func (r *Response) IsPush() bool {
	return r.MessageID == PushMessageID
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Status.IsSuccess()
}

// Issue is a problem the publisher attaches to a response or push.
type Issue struct {
	Code IssueCode `cbor:"1,keyasint"`
	Text string    `cbor:"2,keyasint,omitempty"`
}

// EncodeRequest encodes a request message to CBOR bytes.
func EncodeRequest(req *Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return Marshal(req)
}

// DecodeRequest decodes CBOR bytes into a request message.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return &req, nil
}

// EncodeResponse encodes a response or push to CBOR bytes.
func EncodeResponse(resp *Response) ([]byte, error) {
	if resp.Key == "" {
		return nil, ErrMissingKey
	}
	return Marshal(resp)
}

// DecodeResponse decodes CBOR bytes into a response or push.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// header holds the routing fields of a response without its payload.
type header struct {
	MessageID uint32 `cbor:"1,keyasint"`
	Key       string `cbor:"2,keyasint"`
}

// PeekKey extracts the correlation key and push flag without decoding the
// payload.
func PeekKey(data []byte) (key string, push bool, err error) {
	var h header
	if err := Unmarshal(data, &h); err != nil {
		return "", false, fmt.Errorf("failed to peek message: %w", err)
	}
	if h.Key == "" {
		return "", false, ErrMissingKey
	}
	return h.Key, h.MessageID == PushMessageID, nil
}
