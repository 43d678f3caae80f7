package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pubsync/pubsync-go/pkg/log"
)

var t0 = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.plog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("failed to close logger: %v", err)
	}
	return path
}

// sessionEvents is a short capture: one subscribe round trip, a push, a
// timeout and an offline transition.
func sessionEvents() []log.Event {
	deadline := t0.Add(5 * time.Second)
	return []log.Event{
		{
			Timestamp: t0, SessionID: "3f2a9c1e-0000-4000-8000-000000000001",
			Direction: log.DirectionOut, Layer: log.LayerWire, Category: log.CategoryMessage,
			DataItemID: 7, Lane: "HIGH",
			Message: &log.MessageEvent{Type: log.MessageTypeRequest, TransactionID: 1, CorrelationKey: "1",
				Kind: "SUBSCRIBE_OR_QUERY", Channel: "quotes/AAPL", Deadline: &deadline, Size: 40},
		},
		{
			Timestamp: t0.Add(10 * time.Millisecond), SessionID: "3f2a9c1e-0000-4000-8000-000000000001",
			Direction: log.DirectionIn, Layer: log.LayerWire, Category: log.CategoryMessage,
			DataItemID: 7,
			Message:    &log.MessageEvent{Type: log.MessageTypeResponse, CorrelationKey: "1", Final: true},
		},
		{
			Timestamp: t0.Add(time.Second), SessionID: "3f2a9c1e-0000-4000-8000-000000000001",
			Direction: log.DirectionIn, Layer: log.LayerWire, Category: log.CategoryMessage,
			DataItemID: 7,
			Message:    &log.MessageEvent{Type: log.MessageTypePush, CorrelationKey: "1"},
		},
		{
			Timestamp: t0.Add(6 * time.Second), SessionID: "3f2a9c1e-0000-4000-8000-000000000001",
			Direction: log.DirectionIn, Layer: log.LayerEngine, Category: log.CategoryNotification,
			DataItemID: 8,
			Notification: &log.NotificationEvent{Kind: "REQUEST_TIMEOUT", Severity: "SUSPECT",
				ErrorKind: "PUBLISH_TIMEOUT", Text: "5 seconds", RequestSequenceNr: 2},
		},
		{
			Timestamp: t0.Add(7 * time.Second), SessionID: "3f2a9c1e-0000-4000-8000-000000000001",
			Direction: log.DirectionIn, Layer: log.LayerEngine, Category: log.CategoryState,
			StateChange: &log.StateChangeEvent{Entity: log.StateEntityTransport,
				OldState: "ONLINE", NewState: "OFFLINE", Reason: "disconnected"},
		},
		{
			Timestamp: t0.Add(8 * time.Second), SessionID: "9b7d0000-0000-4000-8000-000000000002",
			Direction: log.DirectionIn, Layer: log.LayerEngine, Category: log.CategoryError,
			Error: &log.ErrorEventData{Layer: log.LayerEngine, Message: "send normal lane: closed", Context: "exercise"},
		},
	}
}
