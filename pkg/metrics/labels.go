package metrics

const (
	namespacePubsync = "pubsync"

	subsystemEngine = "engine"
)

const (
	LabelLane         = "lane"
	LabelRequestKind  = "request_kind"
	LabelNotification = "notification"
)
