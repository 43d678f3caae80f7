package subscription

import (
	"errors"
	"fmt"
	"time"
)

// Deliver applies a parsed inbound message to subscription id.
//
// Server problems are recorded on the subscription. Warnings only notify.
// The first error-class problem deactivates the subscription and, for
// retryable kinds, schedules a retry. A final message moves a waiting
// subscription to SUBSCRIBED. A payload on a surviving subscription is
// forwarded as a DATA notification.
func (m *Manager) Deliver(now time.Time, id DataItemID, dn DataNotification) (notes []Notification, err error) {
	defer func() {
		notes = m.flush()
		var ie *InternalError
		if errors.As(err, &ie) {
			notes = append(notes, ie.Notifications...)
		}
	}()
	defer m.recoverInto(&err)

	sub, ok := m.subs[id]
	if !ok {
		return nil, fmt.Errorf("deliver %d: %w", id, ErrSubscriptionNotFound)
	}
	if !sub.state.Correlated() {
		m.logger.Debug("dropping stale message", "id", id, "state", sub.state)
		return nil, fmt.Errorf("deliver %d in state %s: %w", id, sub.state, ErrStaleMessage)
	}
	m.captureDelivery(sub, dn)

	var fatal *ServerError
	for i := range dn.Errors {
		e := dn.Errors[i]
		sub.recordProblem(e)
		if e.Kind.Warning() {
			m.logger.Info("server warning", "id", id, "kind", e.Kind, "text", e.Text)
			m.emit(m.problemNotification(sub, e, 0))
			continue
		}
		if fatal == nil {
			fatal = &e
		}
	}
	if fatal != nil {
		retry := m.scheduleRetry(sub, now, fatal.Kind)
		m.logger.Warn("subscription error", "id", id, "kind", fatal.Kind, "text", fatal.Text, "retry_after", retry)
		m.emit(m.problemNotification(sub, *fatal, retry))
		m.deactivate(sub, fatal.Kind.String())
		return nil, nil
	}

	if dn.Final && sub.state == StateResponseWaiting {
		if sub.waiting != nil {
			m.waits.Remove(sub.waiting)
			sub.waiting = nil
		}
		sub.beenSentAtLeastOnce = true
		sub.attempts = 0
		m.setState(sub, StateSubscribed, "response")
		m.emit(Notification{
			Kind:                NotifySubscribed,
			DataItemID:          id,
			RequestSequenceNr:   sub.requestSequenceNr,
			Severity:            SeverityInfo,
			BeenSentAtLeastOnce: true,
		})
	}

	if dn.Payload != nil {
		severity := SeverityInfo
		if sub.errorWarningCount > 0 {
			severity = SeveritySuspect
		}
		m.emit(Notification{
			Kind:                NotifyData,
			DataItemID:          id,
			RequestSequenceNr:   sub.requestSequenceNr,
			Severity:            severity,
			BeenSentAtLeastOnce: sub.beenSentAtLeastOnce,
			Payload:             dn.Payload,
		})
	}
	m.reportGauges()
	return nil, nil
}

func (m *Manager) problemNotification(sub *Subscription, e ServerError, retry time.Duration) Notification {
	return Notification{
		Kind:                NotifySubscriptionError,
		DataItemID:          sub.id,
		RequestSequenceNr:   sub.requestSequenceNr,
		Severity:            e.Kind.Severity(),
		ErrorKind:           e.Kind,
		Text:                e.Text,
		BeenSentAtLeastOnce: sub.beenSentAtLeastOnce,
		RetryAfter:          retry,
	}
}
