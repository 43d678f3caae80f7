package wire

import "github.com/pubsync/pubsync-go/pkg/subscription"

// Status is the overall outcome of a response.
type Status uint8

const (
	// StatusOK indicates the request was accepted.
	StatusOK Status = 0

	// StatusInvalid indicates the publisher rejected the request parameters.
	StatusInvalid Status = 1

	// StatusNotAuthorized indicates the user lacks the entitlement.
	StatusNotAuthorized Status = 2

	// StatusUnavailable indicates the channel cannot be served right now.
	StatusUnavailable Status = 3

	// StatusBusy indicates the publisher is overloaded; try again later.
	StatusBusy Status = 4
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusInvalid:
		return "INVALID"
	case StatusNotAuthorized:
		return "NOT_AUTHORIZED"
	case StatusUnavailable:
		return "UNAVAILABLE"
	case StatusBusy:
		return "BUSY"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusOK
}

// ErrorKind maps a failed status to the engine's error taxonomy.
func (s Status) ErrorKind() subscription.ErrorKind {
	switch s {
	case StatusOK:
		return subscription.ErrorNone
	case StatusNotAuthorized:
		return subscription.ErrorUserNotAuthorised
	case StatusInvalid, StatusBusy:
		return subscription.ErrorPublishRequest
	default:
		return subscription.ErrorSubscription
	}
}

// IssueCode classifies a problem attached to a response or push.
type IssueCode uint8

const (
	// IssueWarning is an advisory about the subscription.
	IssueWarning IssueCode = 1

	// IssueData marks the accompanying data as unreliable.
	IssueData IssueCode = 2

	// IssueSubscription means the stream broke.
	IssueSubscription IssueCode = 3

	// IssuePublish means the publisher failed to process the request.
	IssuePublish IssueCode = 4

	// IssueNotAuthorized means the entitlement was withdrawn.
	IssueNotAuthorized IssueCode = 5
)

// String returns the issue code name.
func (c IssueCode) String() string {
	switch c {
	case IssueWarning:
		return "WARNING"
	case IssueData:
		return "DATA"
	case IssueSubscription:
		return "SUBSCRIPTION"
	case IssuePublish:
		return "PUBLISH"
	case IssueNotAuthorized:
		return "NOT_AUTHORIZED"
	default:
		return "UNKNOWN"
	}
}

// ErrorKind maps the issue code to the engine's error taxonomy. Unknown
// codes are treated as warnings.
func (c IssueCode) ErrorKind() subscription.ErrorKind {
	switch c {
	case IssueData:
		return subscription.ErrorData
	case IssueSubscription:
		return subscription.ErrorSubscription
	case IssuePublish:
		return subscription.ErrorPublishRequest
	case IssueNotAuthorized:
		return subscription.ErrorUserNotAuthorised
	default:
		return subscription.ErrorSubscriptionWarning
	}
}
