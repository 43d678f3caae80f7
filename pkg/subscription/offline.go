package subscription

import "errors"

// GoOnline marks the transport online and returns one ONLINED notification
// per registered subscription.
func (m *Manager) GoOnline() []Notification {
	m.online = true
	m.logger.Info("transport online", "subscriptions", len(m.subs))
	m.captureTransport("OFFLINE", "ONLINE", "")
	for _, id := range m.sortedIDs() {
		sub := m.subs[id]
		m.emit(Notification{
			Kind:                NotifyOnlined,
			DataItemID:          id,
			RequestSequenceNr:   sub.requestSequenceNr,
			Severity:            SeverityInfo,
			BeenSentAtLeastOnce: sub.beenSentAtLeastOnce,
		})
	}
	return m.flush()
}

// GoOffline marks the transport offline and deactivates every subscription
// without sending anything. It returns, in order, one OFFLINING per
// subscription, one OFFLINED per subscription that was active (ERROR
// severity if it was SUBSCRIBED, SUSPECT otherwise) and one OFFLINED per
// subscription that was already inactive. Subscriptions stay registered.
func (m *Manager) GoOffline(reason string) (notes []Notification, err error) {
	defer func() {
		notes = m.flush()
		var ie *InternalError
		if errors.As(err, &ie) {
			notes = append(notes, ie.Notifications...)
		}
	}()
	defer m.recoverInto(&err)

	m.online = false
	m.offlining = true
	defer func() { m.offlining = false }()

	m.logger.Info("transport offline", "reason", reason, "subscriptions", len(m.subs))
	m.captureTransport("ONLINE", "OFFLINE", reason)

	ids := m.sortedIDs()
	for _, id := range ids {
		sub := m.subs[id]
		m.emit(Notification{
			Kind:                NotifyOfflining,
			DataItemID:          id,
			RequestSequenceNr:   sub.requestSequenceNr,
			Severity:            SeverityInfo,
			Text:                reason,
			BeenSentAtLeastOnce: sub.beenSentAtLeastOnce,
		})
	}

	wasActive := make(map[DataItemID]bool)
	for _, id := range ids {
		sub := m.subs[id]
		if sub.state == StateInactive {
			continue
		}
		wasActive[id] = true
		severity := SeveritySuspect
		if sub.state == StateSubscribed {
			severity = SeverityError
		}
		m.emit(Notification{
			Kind:                NotifyOfflined,
			DataItemID:          id,
			RequestSequenceNr:   sub.requestSequenceNr,
			Severity:            severity,
			ErrorKind:           ErrorOfflined,
			Text:                reason,
			BeenSentAtLeastOnce: sub.beenSentAtLeastOnce,
		})
		m.deactivate(sub, "offline")
	}

	for _, id := range ids {
		if wasActive[id] {
			continue
		}
		sub := m.subs[id]
		m.emit(Notification{
			Kind:                NotifyOfflined,
			DataItemID:          id,
			RequestSequenceNr:   sub.requestSequenceNr,
			Severity:            SeverityInfo,
			ErrorKind:           ErrorOfflined,
			Text:                reason,
			BeenSentAtLeastOnce: sub.beenSentAtLeastOnce,
		})
	}

	for _, q := range m.queues {
		q.Clear()
	}
	m.waits.Clear()
	for _, sub := range m.retrying {
		m.cancelRetry(sub)
	}
	if len(m.byKey) != 0 {
		panic("correlation keys left after going offline")
	}
	m.reportGauges()
	return nil, nil
}
