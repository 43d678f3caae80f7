package subscription

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"
)

// Exercise runs one engine tick at now: it sweeps timed-out requests,
// re-activates subscriptions whose retry is due, and drains both lanes
// (high first) to the transport while online.
//
// On an unrecoverable failure the manager purges itself and returns an
// *InternalError. The returned notifications then include the ones produced
// before the failure followed by one INTERNAL_ERROR per purged subscription.
func (m *Manager) Exercise(now time.Time) (notes []Notification, err error) {
	defer func() {
		notes = m.flush()
		var ie *InternalError
		if errors.As(err, &ie) {
			notes = append(notes, ie.Notifications...)
		}
	}()
	defer m.recoverInto(&err)

	m.sweep(now)
	m.runRetries(now)
	if err := m.drain(now); err != nil {
		return nil, m.fail(err)
	}
	m.reportGauges()
	return nil, nil
}

func (m *Manager) sweep(now time.Time) {
	for _, r := range m.waits.Sweep(now) {
		sub := r.Subscription
		if sub.waiting != r {
			panic(fmt.Sprintf("expired request %d does not belong to subscription %d", r.TransactionID, sub.id))
		}
		sub.waiting = nil
		m.metrics.RequestTimedOut(r.Lane)

		text := timeoutText(r.Timeout)
		retry := m.scheduleRetry(sub, now, ErrorRequestTimeout)
		m.logger.Warn("request timed out", "id", sub.id, "txn", r.TransactionID, "timeout", r.Timeout, "retry_after", retry)
		m.emit(Notification{
			Kind:                NotifyRequestTimeout,
			DataItemID:          sub.id,
			RequestSequenceNr:   sub.requestSequenceNr,
			Severity:            ErrorRequestTimeout.Severity(),
			ErrorKind:           ErrorRequestTimeout,
			Text:                text,
			BeenSentAtLeastOnce: sub.beenSentAtLeastOnce,
			RetryAfter:          retry,
		})
		m.deactivate(sub, "request timeout")
	}
}

func (m *Manager) runRetries(now time.Time) {
	if !m.online || len(m.retrying) == 0 {
		return
	}
	var due []DataItemID
	for id, sub := range m.retrying {
		if !now.Before(sub.retryAt) {
			due = append(due, id)
		}
	}
	slices.Sort(due)
	for _, id := range due {
		sub := m.retrying[id]
		m.cancelRetry(sub)
		if sub.state != StateInactive {
			continue
		}
		m.enqueue(sub, sub.requestSequenceNr, "retry")
	}
}

func (m *Manager) drain(now time.Time) error {
	if !m.online {
		return nil
	}
	for _, lane := range Lanes {
		if err := m.drainLane(now, m.queues[lane]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) drainLane(now time.Time, q *SendQueue) error {
	n := q.ReadyCount(now)
	if n == 0 {
		return nil
	}

	batch := q.Peek(n)
	packets := make([]Packet, 0, n)
	var invalid []rejected
	for _, r := range batch {
		r.TransactionID = m.seq.Next()
		if r.Kind == KindSubscribeOrQuery {
			r.CorrelationKey = strconv.FormatUint(uint64(r.TransactionID), 10)
		}
		msg, err := m.encoder.CreateRequestMessage(r)
		if err != nil {
			var ire *InvalidRequestError
			if errors.As(err, &ire) {
				invalid = append(invalid, rejected{r, ire.Reason})
				continue
			}
			return fmt.Errorf("encode %s for %d: %w", r.Kind, r.DataItemID(), err)
		}
		packets = append(packets, Packet{Request: r, Message: msg})
	}

	if len(packets) > 0 {
		if err := m.transport.SendPackets(now, packets); err != nil {
			q.Clear()
			return fmt.Errorf("send %s lane: %w", q.Lane(), err)
		}
	}
	q.RemovePrefix(n)

	for _, rj := range invalid {
		m.rejectInvalid(rj.request, rj.reason)
	}

	m.waits.Grow(len(packets))
	for _, p := range packets {
		r := p.Request
		m.metrics.RequestSent(r.Lane, r.Kind)
		if r.Kind == KindSubscribeOrQuery {
			m.startWaiting(now, r)
		}
		m.captureRequest(r, len(p.Message))
	}
	return nil
}

func (m *Manager) startWaiting(now time.Time, r *Request) {
	sub := r.Subscription
	if sub.queued != r {
		panic(fmt.Sprintf("sent request %d does not belong to subscription %d", r.TransactionID, sub.id))
	}
	sub.queued = nil
	sub.dispatched = true
	r.Timeout = m.timeoutFor(sub)
	r.ResponseDeadline = now.Add(r.Timeout)
	sub.waiting = r
	m.bindCorrelation(sub, r.CorrelationKey)
	m.waits.Insert(r)
	m.setState(sub, StateResponseWaiting, "sent")
}

type rejected struct {
	request *Request
	reason  string
}

func (m *Manager) rejectInvalid(r *Request, reason string) {
	sub := r.Subscription
	r.CorrelationKey = ""
	if r.Kind == KindUnsubscribe {
		m.logger.Warn("dropping unencodable unsubscribe", "id", sub.id)
		return
	}
	if sub.queued != r {
		panic(fmt.Sprintf("rejected request does not belong to subscription %d", sub.id))
	}
	sub.queued = nil
	m.setState(sub, StateInactive, "invalid request")

	m.logger.Warn("invalid request", "id", sub.id, "reason", reason)
	m.emit(Notification{
		Kind:                NotifyInvalidRequest,
		DataItemID:          sub.id,
		RequestSequenceNr:   sub.requestSequenceNr,
		Severity:            ErrorInvalidRequest.Severity(),
		ErrorKind:           ErrorInvalidRequest,
		Text:                reason,
		BeenSentAtLeastOnce: sub.beenSentAtLeastOnce,
	})
}

// timeoutText renders a timeout span as "5 seconds", "1.5 seconds" or
// "250 milliseconds".
func timeoutText(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%d milliseconds", d.Milliseconds())
	}
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + " seconds"
}
