package subscription

import (
	"fmt"
	"time"
)

// NotificationKind classifies a notification.
type NotificationKind uint8

const (
	NotifyOnlined NotificationKind = iota
	NotifyOfflining
	NotifyOfflined
	NotifyRequestTimeout
	NotifyInternalError
	NotifyInvalidRequest
	NotifySubscriptionError
	NotifySubscribed
	NotifyData
)

// String returns the notification kind name.
func (k NotificationKind) String() string {
	switch k {
	case NotifyOnlined:
		return "ONLINED"
	case NotifyOfflining:
		return "OFFLINING"
	case NotifyOfflined:
		return "OFFLINED"
	case NotifyRequestTimeout:
		return "REQUEST_TIMEOUT"
	case NotifyInternalError:
		return "INTERNAL_ERROR"
	case NotifyInvalidRequest:
		return "INVALID_REQUEST"
	case NotifySubscriptionError:
		return "SUBSCRIPTION_ERROR"
	case NotifySubscribed:
		return "SUBSCRIBED"
	case NotifyData:
		return "DATA"
	default:
		return "UNKNOWN"
	}
}

// Notification reports a user-visible consequence of engine activity.
type Notification struct {
	Kind       NotificationKind
	DataItemID DataItemID

	// RequestSequenceNr is the number passed to the last Activate.
	RequestSequenceNr uint32

	Severity  Severity
	ErrorKind ErrorKind

	// Text is human-readable detail, such as "5 seconds" for a timeout or
	// the server's message for a subscription error.
	Text string

	// BeenSentAtLeastOnce mirrors the subscription flag at emission time.
	BeenSentAtLeastOnce bool

	// RetryAfter is the delay until an automatic retry, or zero if none
	// was scheduled.
	RetryAfter time.Duration

	// Payload carries data for NotifyData.
	Payload any
}

// String returns a compact description for logs and consoles.
func (n Notification) String() string {
	s := fmt.Sprintf("%s id=%d seq=%d", n.Kind, n.DataItemID, n.RequestSequenceNr)
	if n.ErrorKind != ErrorNone {
		s += fmt.Sprintf(" %s/%s", n.ErrorKind, n.Severity)
	}
	if n.Text != "" {
		s += fmt.Sprintf(" %q", n.Text)
	}
	if n.RetryAfter > 0 {
		s += fmt.Sprintf(" retry=%s", n.RetryAfter)
	}
	return s
}
