package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pubsync/pubsync-go/pkg/subscription"
)

// EngineCollector implements subscription.Metrics on Prometheus.
type EngineCollector struct {
	requestsSent     *prometheus.CounterVec
	requestsTimedOut *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	queueLength      *prometheus.GaugeVec
	waitListLength   prometheus.Gauge
	subscriptions    prometheus.Gauge
	internalFailures prometheus.Counter
}

var _ subscription.Metrics = (*EngineCollector)(nil)

// NewEngineCollector registers the engine metrics with reg. A nil reg uses
// the default registerer.
func NewEngineCollector(reg prometheus.Registerer) *EngineCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &EngineCollector{
		requestsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "requests_sent_total",
			Namespace: namespacePubsync,
			Subsystem: subsystemEngine,
			Help:      "the number of requests handed to the transport",
		}, []string{LabelLane, LabelRequestKind}),

		requestsTimedOut: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "requests_timed_out_total",
			Namespace: namespacePubsync,
			Subsystem: subsystemEngine,
			Help:      "the number of requests whose response deadline passed",
		}, []string{LabelLane}),

		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name:      "notifications_total",
			Namespace: namespacePubsync,
			Subsystem: subsystemEngine,
			Help:      "the number of notifications produced, by kind",
		}, []string{LabelNotification}),

		queueLength: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name:      "send_queue_length",
			Namespace: namespacePubsync,
			Subsystem: subsystemEngine,
			Help:      "the number of requests waiting in a send queue",
		}, []string{LabelLane}),

		waitListLength: factory.NewGauge(prometheus.GaugeOpts{
			Name:      "wait_list_length",
			Namespace: namespacePubsync,
			Subsystem: subsystemEngine,
			Help:      "the number of requests waiting for a response",
		}),

		subscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Name:      "subscriptions",
			Namespace: namespacePubsync,
			Subsystem: subsystemEngine,
			Help:      "the number of registered subscriptions",
		}),

		internalFailures: factory.NewCounter(prometheus.CounterOpts{
			Name:      "internal_failures_total",
			Namespace: namespacePubsync,
			Subsystem: subsystemEngine,
			Help:      "the number of internal failures that purged the engine",
		}),
	}
}

func (ec *EngineCollector) RequestSent(lane subscription.Lane, kind subscription.RequestKind) {
	ec.requestsSent.With(prometheus.Labels{LabelLane: lane.String(), LabelRequestKind: kind.String()}).Inc()
}

func (ec *EngineCollector) RequestTimedOut(lane subscription.Lane) {
	ec.requestsTimedOut.With(prometheus.Labels{LabelLane: lane.String()}).Inc()
}

func (ec *EngineCollector) Notified(kind subscription.NotificationKind) {
	ec.notifications.With(prometheus.Labels{LabelNotification: kind.String()}).Inc()
}

func (ec *EngineCollector) QueueLength(lane subscription.Lane, n int) {
	ec.queueLength.With(prometheus.Labels{LabelLane: lane.String()}).Set(float64(n))
}

func (ec *EngineCollector) WaitListLength(n int) {
	ec.waitListLength.Set(float64(n))
}

func (ec *EngineCollector) SubscriptionCount(n int) {
	ec.subscriptions.Set(float64(n))
}

func (ec *EngineCollector) InternalFailure() {
	ec.internalFailures.Inc()
}
