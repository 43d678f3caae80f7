package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pubsync/pubsync-go/pkg/log"
)

func TestFormatFrameEvent(t *testing.T) {
	event := log.Event{
		Timestamp: t0,
		SessionID: "abc12345-6789-0123-4567-890abcdef012",
		Direction: log.DirectionOut,
		Layer:     log.LayerTransport,
		Category:  log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size:      128,
			Data:      []byte{0xa1, 0x01, 0x02, 0x03},
			Truncated: true,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{
		"2026-05-01T09:30:00.000000Z",
		"[session:abc12345]",
		"OUT",
		"TRANSPORT Frame",
		"128 bytes",
		"a1010203 (truncated)",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatRequestEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sessionEvents()[0])
	output := buf.String()

	for _, want := range []string{
		"WIRE REQUEST #7 (HIGH)",
		"TransactionID: 1",
		"Kind: SUBSCRIBE_OR_QUERY",
		"Channel: quotes/AAPL",
		"Deadline: 2026-05-01T09:30:05.000000Z",
		"Size: 40 bytes",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatResponseEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sessionEvents()[1])
	output := buf.String()

	if !strings.Contains(output, "RESPONSE #7") {
		t.Errorf("expected response header, got: %s", output)
	}
	if !strings.Contains(output, "Final: true") {
		t.Errorf("expected final flag, got: %s", output)
	}
}

func TestFormatNotificationEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sessionEvents()[3])
	output := buf.String()

	for _, want := range []string{
		"ENGINE REQUEST_TIMEOUT #8",
		"Seq: 2",
		"Severity: SUSPECT",
		"Text: 5 seconds",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatStateChangeEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sessionEvents()[4])
	output := buf.String()

	if !strings.Contains(output, "Entity: TRANSPORT") {
		t.Errorf("expected entity, got: %s", output)
	}
	if !strings.Contains(output, "ONLINE -> OFFLINE") {
		t.Errorf("expected transition, got: %s", output)
	}
	if !strings.Contains(output, "Reason: disconnected") {
		t.Errorf("expected reason, got: %s", output)
	}
}

func TestFormatErrorEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sessionEvents()[5])
	output := buf.String()

	if !strings.Contains(output, "[session:9b7d0000]") {
		t.Errorf("expected second session, got: %s", output)
	}
	if !strings.Contains(output, "Message: send normal lane: closed") {
		t.Errorf("expected error message, got: %s", output)
	}
	if !strings.Contains(output, "Context: exercise") {
		t.Errorf("expected context, got: %s", output)
	}
}

func TestShortenSessionID(t *testing.T) {
	if got := shortenSessionID("abc"); got != "abc" {
		t.Errorf("shortenSessionID(abc) = %q", got)
	}
	if got := shortenSessionID("0123456789"); got != "01234567" {
		t.Errorf("shortenSessionID = %q, want 01234567", got)
	}
}

func TestParseFlags(t *testing.T) {
	if l, err := ParseLayerFlag("Engine"); err != nil || l != log.LayerEngine {
		t.Errorf("ParseLayerFlag(Engine) = %v, %v", l, err)
	}
	if _, err := ParseLayerFlag("service"); err == nil {
		t.Error("expected error for unknown layer")
	}
	if d, err := ParseDirectionFlag("OUT"); err != nil || d != log.DirectionOut {
		t.Errorf("ParseDirectionFlag(OUT) = %v, %v", d, err)
	}
	if _, err := ParseDirectionFlag("sideways"); err == nil {
		t.Error("expected error for unknown direction")
	}
	if c, err := ParseCategoryFlag("notification"); err != nil || c != log.CategoryNotification {
		t.Errorf("ParseCategoryFlag(notification) = %v, %v", c, err)
	}
	if _, err := ParseCategoryFlag("control"); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestRunView(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())

	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if got := strings.Count(buf.String(), "[session:"); got != 6 {
		t.Errorf("expected 6 events, got %d", got)
	}
}

func TestRunViewFiltered(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())

	layer := log.LayerWire
	var buf bytes.Buffer
	if err := RunView(path, ViewFilter{Layer: &layer, DataItemID: 7}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()
	if got := strings.Count(output, "[session:"); got != 3 {
		t.Errorf("expected 3 wire events for item 7, got %d:\n%s", got, output)
	}
	if strings.Contains(output, "REQUEST_TIMEOUT") {
		t.Error("engine events should be filtered out")
	}
}

func TestRunViewMissingFile(t *testing.T) {
	var buf bytes.Buffer
	if err := RunView("/nonexistent/file.plog", ViewFilter{}, &buf); err == nil {
		t.Error("expected error for missing file")
	}
}
