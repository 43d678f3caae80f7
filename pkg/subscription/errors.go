package subscription

import (
	"errors"
	"fmt"
)

// Manager errors.
var (
	ErrSubscriptionNotFound  = errors.New("subscription not found")
	ErrDuplicateSubscription = errors.New("subscription already registered")
	ErrNotInactive           = errors.New("subscription is not inactive")
	ErrOfflineDeactivating   = errors.New("activation while going offline")
	ErrResendForbidden       = errors.New("subscription forbids resending")
	ErrInvalidLane           = errors.New("invalid lane")
	ErrInvariant             = errors.New("engine invariant violated")
	ErrStaleMessage          = errors.New("message for inactive subscription")
)

// Severity grades a notification.
type Severity uint8

const (
	// SeverityInfo is informational.
	SeverityInfo Severity = iota

	// SeveritySuspect means data may be stale or incomplete.
	SeveritySuspect

	// SeverityError means data is unavailable.
	SeverityError
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeveritySuspect:
		return "SUSPECT"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ErrorKind classifies a problem reported on a subscription.
type ErrorKind uint8

const (
	ErrorNone ErrorKind = iota
	ErrorInternal
	ErrorInvalidRequest
	ErrorOfflined
	ErrorRequestTimeout
	ErrorSubscription
	ErrorPublishRequest
	ErrorSubscriptionWarning
	ErrorData
	ErrorUserNotAuthorised
)

// String returns the error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrorNone:
		return "NONE"
	case ErrorInternal:
		return "INTERNAL"
	case ErrorInvalidRequest:
		return "INVALID_REQUEST"
	case ErrorOfflined:
		return "OFFLINED"
	case ErrorRequestTimeout:
		return "REQUEST_TIMEOUT"
	case ErrorSubscription:
		return "SUBSCRIPTION_ERROR"
	case ErrorPublishRequest:
		return "PUBLISH_REQUEST_ERROR"
	case ErrorSubscriptionWarning:
		return "SUBSCRIPTION_WARNING"
	case ErrorData:
		return "DATA_ERROR"
	case ErrorUserNotAuthorised:
		return "USER_NOT_AUTHORISED"
	default:
		return "UNKNOWN"
	}
}

// Severity returns the default severity of the kind. Offlined notifications
// pick their severity from the subscription state instead.
func (k ErrorKind) Severity() Severity {
	switch k {
	case ErrorNone:
		return SeverityInfo
	case ErrorRequestTimeout, ErrorSubscriptionWarning, ErrorData:
		return SeveritySuspect
	default:
		return SeverityError
	}
}

// Warning reports whether the kind leaves the subscription running.
func (k ErrorKind) Warning() bool {
	return k == ErrorSubscriptionWarning || k == ErrorData
}

// Retryable reports whether a subscription deactivated by this kind gets an
// automatic retry.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorRequestTimeout, ErrorSubscription, ErrorPublishRequest:
		return true
	default:
		return false
	}
}

// ServerError is a problem the publisher reported for a subscription.
type ServerError struct {
	Kind ErrorKind
	Text string
}

// Error implements the error interface.
func (e ServerError) Error() string {
	if e.Text == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Text)
}

// InternalError is returned when the manager purged itself after an
// unrecoverable failure.
type InternalError struct {
	// Err is the cause.
	Err error

	// Notifications holds one INTERNAL_ERROR notification per subscription
	// that was registered at the time of the failure.
	Notifications []Notification
}

// Error implements the error interface.
func (e *InternalError) Error() string {
	return fmt.Sprintf("subscription engine failed: %v", e.Err)
}

// Unwrap returns the cause.
func (e *InternalError) Unwrap() error { return e.Err }

// InvalidRequestError is returned by a RequestEncoder when a definition
// cannot be turned into a valid request. It affects only that subscription.
type InvalidRequestError struct {
	Reason string
}

// Error implements the error interface.
func (e *InvalidRequestError) Error() string {
	return "invalid request: " + e.Reason
}
