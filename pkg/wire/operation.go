package wire

// Operation is a request operation.
type Operation uint8

const (
	// OpSubscribe starts a shared stream identified by the channel key.
	OpSubscribe Operation = 1

	// OpQuery runs a one-off query; the publisher answers once.
	OpQuery Operation = 2

	// OpUnsubscribe cancels whatever the request with the same key started.
	OpUnsubscribe Operation = 3
)

// String returns the operation name.
func (o Operation) String() string {
	switch o {
	case OpSubscribe:
		return "Subscribe"
	case OpQuery:
		return "Query"
	case OpUnsubscribe:
		return "Unsubscribe"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the operation is known.
func (o Operation) IsValid() bool {
	return o >= OpSubscribe && o <= OpUnsubscribe
}
