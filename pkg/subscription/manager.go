package subscription

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/pubsync/pubsync-go/pkg/log"
)

// Manager owns the subscription directory, both send queues and the wait
// list. See the package documentation for the state machine.
type Manager struct {
	config    Config
	logger    *slog.Logger
	plog      log.Logger
	metrics   Metrics
	seq       SequenceGenerator
	sessionID string

	transport Transport
	encoder   RequestEncoder

	subs     map[DataItemID]*Subscription
	byKey    map[string]*Subscription
	retrying map[DataItemID]*Subscription
	queues   [2]*SendQueue
	waits    *WaitList

	online    bool
	offlining bool

	// notes buffers notifications of the current call.
	notes []Notification
}

// NewManager creates a Manager sending through transport and encoding with
// encoder. The transport starts offline.
func NewManager(transport Transport, encoder RequestEncoder, config Config) *Manager {
	if config.ResponseTimeout <= 0 {
		config.ResponseTimeout = DefaultResponseTimeout
	}
	if config.NormalThrottleInterval < 0 {
		config.NormalThrottleInterval = 0
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	seq := config.Sequence
	if seq == nil {
		seq = NewCounter()
	}

	m := &Manager{
		config:    config,
		plog:      config.ProtocolLogger,
		metrics:   metrics,
		seq:       seq,
		sessionID: uuid.NewString(),
		transport: transport,
		encoder:   encoder,
		subs:      make(map[DataItemID]*Subscription),
		byKey:     make(map[string]*Subscription),
		retrying:  make(map[DataItemID]*Subscription),
		waits:     NewWaitList(),
	}
	m.logger = logger.With("session", m.sessionID)
	m.queues[LaneHigh] = NewSendQueue(LaneHigh, 0, 0, config.ThrottleMode)
	m.queues[LaneNormal] = NewSendQueue(LaneNormal, config.NormalBurst, config.NormalThrottleInterval, config.ThrottleMode)
	return m
}

// SessionID returns the ID stamped on this manager's protocol events.
func (m *Manager) SessionID() string { return m.sessionID }

// Online reports whether the transport is online.
func (m *Manager) Online() bool { return m.online }

// Count returns the number of registered subscriptions.
func (m *Manager) Count() int { return len(m.subs) }

// Queue returns the send queue of lane.
func (m *Manager) Queue(lane Lane) *SendQueue { return m.queues[lane] }

// WaitList returns the response wait list.
func (m *Manager) WaitList() *WaitList { return m.waits }

// Get returns a snapshot of subscription id.
func (m *Manager) Get(id DataItemID) (Info, bool) {
	sub, ok := m.subs[id]
	if !ok {
		return Info{}, false
	}
	return sub.Info(), true
}

// Subscriptions returns snapshots of all registered subscriptions ordered by ID.
func (m *Manager) Subscriptions() []Info {
	out := make([]Info, 0, len(m.subs))
	for _, id := range m.sortedIDs() {
		out = append(out, m.subs[id].Info())
	}
	return out
}

// Lookup returns the subscription holding correlation key.
func (m *Manager) Lookup(key string) (*Subscription, bool) {
	sub, ok := m.byKey[key]
	return sub, ok
}

// Subscribe registers a new inactive subscription and reports whether the
// transport is online. Registering an ID twice is an internal error; a
// definition with an unknown lane is rejected without side effects.
func (m *Manager) Subscribe(id DataItemID, def Definition) (online bool, err error) {
	defer m.recoverInto(&err)

	if !def.Lane.Valid() {
		return m.online, fmt.Errorf("subscribe %d: %w %d", id, ErrInvalidLane, def.Lane)
	}

	if _, exists := m.subs[id]; exists {
		return m.online, m.fail(fmt.Errorf("subscribe %d: %w", id, ErrDuplicateSubscription))
	}
	sub := newSubscription(id, def)
	m.subs[id] = sub
	m.logger.Debug("subscription registered", "id", id, "channel", def.Channel, "lane", def.Lane)
	m.captureState(sub, "", StateInactive, "subscribe")
	m.metrics.SubscriptionCount(len(m.subs))
	return m.online, nil
}

// Unsubscribe removes subscription id from the directory and deactivates
// it. Unknown IDs are ignored.
func (m *Manager) Unsubscribe(id DataItemID) (err error) {
	defer m.recoverInto(&err)

	sub, ok := m.subs[id]
	if !ok {
		return nil
	}
	delete(m.subs, id)
	m.cancelRetry(sub)
	m.deactivate(sub, "unsubscribe")
	m.metrics.SubscriptionCount(len(m.subs))
	m.logger.Debug("subscription removed", "id", id)
	return nil
}

// Activate queues a subscribe request for an inactive subscription in the
// lane of its definition. Activating a subscription that is not inactive
// fails with ErrNotInactive and changes nothing.
func (m *Manager) Activate(id DataItemID, requestSequenceNr uint32) (err error) {
	defer m.recoverInto(&err)

	sub, ok := m.subs[id]
	if !ok {
		return fmt.Errorf("activate %d: %w", id, ErrSubscriptionNotFound)
	}
	if m.offlining {
		return m.fail(fmt.Errorf("activate %d: %w", id, ErrOfflineDeactivating))
	}
	if sub.state != StateInactive {
		return fmt.Errorf("activate %d in state %s: %w", id, sub.state, ErrNotInactive)
	}
	if !sub.resendAllowed && sub.dispatched {
		return fmt.Errorf("activate %d: %w", id, ErrResendForbidden)
	}
	m.cancelRetry(sub)
	m.enqueue(sub, requestSequenceNr, "activate")
	return nil
}

// SetBatching holds or releases lane.
func (m *Manager) SetBatching(lane Lane, enabled bool) error {
	if !lane.Valid() {
		return fmt.Errorf("set batching: %w %d", ErrInvalidLane, lane)
	}
	m.queues[lane].SetBatching(enabled)
	m.logger.Debug("batching changed", "lane", lane, "enabled", enabled)
	return nil
}

// Stats summarizes the engine.
type Stats struct {
	Online         bool
	Subscriptions  int
	ByState        map[State]int
	HighQueued     int
	NormalQueued   int
	Waiting        int
	PendingRetries int
}

// Stats returns current engine counters.
func (m *Manager) Stats() Stats {
	s := Stats{
		Online:         m.online,
		Subscriptions:  len(m.subs),
		ByState:        make(map[State]int),
		HighQueued:     m.queues[LaneHigh].Len(),
		NormalQueued:   m.queues[LaneNormal].Len(),
		Waiting:        m.waits.Len(),
		PendingRetries: len(m.retrying),
	}
	for _, sub := range m.subs {
		s.ByState[sub.state]++
	}
	return s
}

func (m *Manager) sortedIDs() []DataItemID {
	return slices.Sorted(maps.Keys(m.subs))
}

func (m *Manager) queue(sub *Subscription) *SendQueue {
	return m.queues[sub.definition.Lane]
}

func (m *Manager) timeoutFor(sub *Subscription) time.Duration {
	if sub.definition.ResponseTimeout > 0 {
		return sub.definition.ResponseTimeout
	}
	return m.config.ResponseTimeout
}

func (m *Manager) setState(sub *Subscription, state State, reason string) {
	old := sub.state
	if old == state {
		return
	}
	sub.state = state
	m.logger.Debug("subscription state", "id", sub.id, "from", old, "to", state, "reason", reason)
	m.captureState(sub, old.String(), state, reason)
}

func (m *Manager) enqueue(sub *Subscription, seqNr uint32, reason string) {
	sub.resetCycle(seqNr)
	r := &Request{
		Kind:         KindSubscribeOrQuery,
		Subscription: sub,
		Lane:         sub.definition.Lane,
	}
	sub.queued = r
	m.queue(sub).Push(r)
	m.setState(sub, sub.definition.Lane.queuedState(), reason)
}

func (m *Manager) bindCorrelation(sub *Subscription, key string) {
	if other, taken := m.byKey[key]; taken && other != sub {
		panic(fmt.Sprintf("correlation key %q bound to %d and %d", key, other.id, sub.id))
	}
	sub.correlationKey = key
	m.byKey[key] = sub
}

func (m *Manager) releaseCorrelation(sub *Subscription) {
	if sub.correlationKey == "" {
		return
	}
	if m.byKey[sub.correlationKey] == sub {
		delete(m.byKey, sub.correlationKey)
	}
	sub.correlationKey = ""
}

// deactivate drives sub back to Inactive. Requests that may have reached
// the publisher are matched by a safety unsubscribe while online.
func (m *Manager) deactivate(sub *Subscription, reason string) {
	switch sub.state {
	case StateInactive:
		return
	case StateHighPrioritySendQueued, StateNormalSendQueued:
		if sub.queued == nil || !m.queue(sub).Remove(sub.queued) {
			panic(fmt.Sprintf("subscription %d is %s but not queued", sub.id, sub.state))
		}
		sub.queued = nil
	case StateResponseWaiting:
		if sub.waiting != nil {
			if !m.waits.Remove(sub.waiting) {
				panic(fmt.Sprintf("subscription %d is %s but not in the wait list", sub.id, sub.state))
			}
			sub.waiting = nil
		}
		m.queueSafetyUnsubscribe(sub)
	case StateSubscribed:
		m.queueSafetyUnsubscribe(sub)
	}
	m.releaseCorrelation(sub)
	m.setState(sub, StateInactive, reason)
}

func (m *Manager) queueSafetyUnsubscribe(sub *Subscription) {
	if !m.online {
		return
	}
	m.queue(sub).Push(&Request{
		Kind:           KindUnsubscribe,
		Subscription:   sub,
		Lane:           sub.definition.Lane,
		CorrelationKey: sub.correlationKey,
	})
}

func (m *Manager) cancelRetry(sub *Subscription) {
	delete(m.retrying, sub.id)
	sub.retryAt = time.Time{}
}

// scheduleRetry records the next automatic retry of sub and returns its
// delay, or zero when sub does not retry.
func (m *Manager) scheduleRetry(sub *Subscription, now time.Time, kind ErrorKind) time.Duration {
	alg := sub.definition.RetryAlgorithm
	switch {
	case !kind.Retryable(), !alg.CanRetry():
		return 0
	case !sub.resendAllowed && sub.dispatched:
		return 0
	case m.subs[sub.id] != sub:
		return 0
	}
	sub.attempts++
	delay := alg.Delay(sub.attempts)
	sub.retryAt = now.Add(delay)
	m.retrying[sub.id] = sub
	return delay
}

func (m *Manager) emit(n Notification) {
	m.notes = append(m.notes, n)
	m.observe(n)
}

// observe runs the side effects of a notification without buffering it.
func (m *Manager) observe(n Notification) {
	m.metrics.Notified(n.Kind)
	m.captureNotification(n)

	hooks := m.config.Hooks
	switch n.ErrorKind {
	case ErrorSubscriptionWarning, ErrorData:
		if hooks.OnSubscriptionError != nil {
			hooks.OnSubscriptionError(n)
		}
		if hooks.OnServerWarning != nil {
			hooks.OnServerWarning()
		}
	case ErrorInvalidRequest, ErrorRequestTimeout, ErrorSubscription, ErrorPublishRequest, ErrorUserNotAuthorised:
		if hooks.OnSubscriptionError != nil {
			hooks.OnSubscriptionError(n)
		}
	}
}

func (m *Manager) flush() []Notification {
	out := m.notes
	m.notes = nil
	return out
}

// fail purges the manager and returns the InternalError describing it.
func (m *Manager) fail(cause error) *InternalError {
	ie := &InternalError{Err: cause}
	for _, id := range m.sortedIDs() {
		sub := m.subs[id]
		n := Notification{
			Kind:                NotifyInternalError,
			DataItemID:          id,
			RequestSequenceNr:   sub.requestSequenceNr,
			Severity:            SeverityError,
			ErrorKind:           ErrorInternal,
			Text:                cause.Error(),
			BeenSentAtLeastOnce: sub.beenSentAtLeastOnce,
		}
		ie.Notifications = append(ie.Notifications, n)
		m.observe(n)
	}
	m.purge()
	m.metrics.InternalFailure()
	m.logger.Error("subscription engine purged", "error", cause, "subscriptions", len(ie.Notifications))
	m.captureError(cause, "purge")
	return ie
}

func (m *Manager) purge() {
	for _, sub := range m.subs {
		sub.queued, sub.waiting = nil, nil
		sub.correlationKey = ""
		sub.retryAt = time.Time{}
		sub.state = StateInactive
	}
	clear(m.subs)
	clear(m.byKey)
	clear(m.retrying)
	for _, q := range m.queues {
		q.Clear()
	}
	m.waits.Clear()
	m.offlining = false
	m.reportGauges()
}

// recoverInto converts a panic into a purge. It must be deferred directly.
func (m *Manager) recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = m.fail(fmt.Errorf("%w: %v", ErrInvariant, r))
	}
}

func (m *Manager) reportGauges() {
	m.metrics.QueueLength(LaneHigh, m.queues[LaneHigh].Len())
	m.metrics.QueueLength(LaneNormal, m.queues[LaneNormal].Len())
	m.metrics.WaitListLength(m.waits.Len())
	m.metrics.SubscriptionCount(len(m.subs))
}
