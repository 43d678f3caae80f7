package subscription

import (
	"time"

	"github.com/pubsync/pubsync-go/pkg/log"
)

func (m *Manager) captureState(sub *Subscription, old string, state State, reason string) {
	if m.plog == nil {
		return
	}
	m.plog.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  m.sessionID,
		Direction:  log.DirectionIn,
		Layer:      log.LayerEngine,
		Category:   log.CategoryState,
		DataItemID: uint64(sub.id),
		Lane:       sub.definition.Lane.String(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySubscription,
			OldState: old,
			NewState: state.String(),
			Reason:   reason,
		},
	})
}

func (m *Manager) captureTransport(old, state, reason string) {
	if m.plog == nil {
		return
	}
	m.plog.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: m.sessionID,
		Direction: log.DirectionIn,
		Layer:     log.LayerEngine,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityTransport,
			OldState: old,
			NewState: state,
			Reason:   reason,
		},
	})
}

func (m *Manager) captureRequest(r *Request, size int) {
	if m.plog == nil {
		return
	}
	msg := &log.MessageEvent{
		Type:           log.MessageTypeRequest,
		TransactionID:  r.TransactionID,
		CorrelationKey: r.CorrelationKey,
		Kind:           r.Kind.String(),
		Channel:        r.Subscription.definition.Channel,
		Size:           size,
	}
	if !r.ResponseDeadline.IsZero() {
		deadline := r.ResponseDeadline
		msg.Deadline = &deadline
	}
	m.plog.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  m.sessionID,
		Direction:  log.DirectionOut,
		Layer:      log.LayerWire,
		Category:   log.CategoryMessage,
		DataItemID: uint64(r.Subscription.id),
		Lane:       r.Lane.String(),
		Message:    msg,
	})
}

func (m *Manager) captureDelivery(sub *Subscription, dn DataNotification) {
	if m.plog == nil {
		return
	}
	typ := log.MessageTypePush
	if sub.state == StateResponseWaiting {
		typ = log.MessageTypeResponse
	}
	m.plog.Log(log.Event{
		Timestamp:  time.Now(),
		SessionID:  m.sessionID,
		Direction:  log.DirectionIn,
		Layer:      log.LayerWire,
		Category:   log.CategoryMessage,
		DataItemID: uint64(sub.id),
		Message: &log.MessageEvent{
			Type:           typ,
			CorrelationKey: sub.correlationKey,
			Channel:        sub.definition.Channel,
			Final:          dn.Final,
		},
	})
}

func (m *Manager) captureNotification(n Notification) {
	if m.plog == nil {
		return
	}
	ev := &log.NotificationEvent{
		Kind:              n.Kind.String(),
		Severity:          n.Severity.String(),
		Text:              n.Text,
		RequestSequenceNr: n.RequestSequenceNr,
	}
	if n.ErrorKind != ErrorNone {
		ev.ErrorKind = n.ErrorKind.String()
	}
	m.plog.Log(log.Event{
		Timestamp:    time.Now(),
		SessionID:    m.sessionID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerEngine,
		Category:     log.CategoryNotification,
		DataItemID:   uint64(n.DataItemID),
		Notification: ev,
	})
}

func (m *Manager) captureError(err error, context string) {
	if m.plog == nil {
		return
	}
	m.plog.Log(log.Event{
		Timestamp: time.Now(),
		SessionID: m.sessionID,
		Direction: log.DirectionIn,
		Layer:     log.LayerEngine,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerEngine,
			Message: err.Error(),
			Context: context,
		},
	})
}
