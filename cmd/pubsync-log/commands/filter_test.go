package commands

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pubsync/pubsync-go/pkg/log"
)

func readAll(t *testing.T, path string) []log.Event {
	t.Helper()
	reader, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer reader.Close()

	var events []log.Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		events = append(events, event)
	}
}

func TestFilterBySession(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())
	outPath := filepath.Join(t.TempDir(), "filtered.plog")

	var buf bytes.Buffer
	err := RunFilter(path, FilterOptions{
		Output:    outPath,
		SessionID: "9b7d0000-0000-4000-8000-000000000002",
	}, &buf)
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	events := readAll(t, outPath)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Error == nil {
		t.Error("expected the error event")
	}
	if !strings.Contains(buf.String(), "Filtered 1 events") {
		t.Errorf("unexpected summary: %s", buf.String())
	}
}

func TestFilterByItemAndDirection(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())
	outPath := filepath.Join(t.TempDir(), "filtered.plog")

	err := RunFilter(path, FilterOptions{
		Output:     outPath,
		DataItemID: "7",
		Direction:  "in",
	}, io.Discard)
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	events := readAll(t, outPath)
	if len(events) != 2 {
		t.Fatalf("expected response and push, got %d events", len(events))
	}
	for _, e := range events {
		if e.DataItemID != 7 || e.Direction != log.DirectionIn {
			t.Errorf("unexpected event %+v", e)
		}
	}
}

func TestFilterByTimeRange(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())
	outPath := filepath.Join(t.TempDir(), "filtered.plog")

	err := RunFilter(path, FilterOptions{
		Output:    outPath,
		TimeStart: "2026-05-01T09:30:01Z",
		TimeEnd:   "2026-05-01T09:30:07Z",
	}, io.Discard)
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}

	if got := len(readAll(t, outPath)); got != 2 {
		t.Errorf("expected push and timeout, got %d events", got)
	}
}

func TestFilterInvalidOptions(t *testing.T) {
	path := createTestLogFile(t, sessionEvents())
	outPath := filepath.Join(t.TempDir(), "filtered.plog")

	tests := []FilterOptions{
		{Output: outPath, DataItemID: "seven"},
		{Output: outPath, TimeStart: "yesterday"},
		{Output: outPath, TimeEnd: "tomorrow"},
		{Output: outPath, Layer: "service"},
		{Output: outPath, Direction: "up"},
		{Output: outPath, Category: "snapshot"},
	}
	for _, opts := range tests {
		if err := RunFilter(path, opts, io.Discard); err == nil {
			t.Errorf("expected error for %+v", opts)
		}
	}
}
