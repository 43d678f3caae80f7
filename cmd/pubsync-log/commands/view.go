// Package commands implements the pubsync-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/pubsync/pubsync-go/pkg/log"
)

// timestampLayout is used by every command that prints event times.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Layer      *log.Layer
	Direction  *log.Direction
	Category   *log.Category
	DataItemID uint64
}

func (f ViewFilter) filter() log.Filter {
	return log.Filter{
		Layer:      f.Layer,
		Direction:  f.Direction,
		Category:   f.Category,
		DataItemID: f.DataItemID,
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session:id] DIRECTION LAYER Type #item
	ts := event.Timestamp.UTC().Format(timestampLayout)
	session := shortenSessionID(event.SessionID)

	fmt.Fprintf(w, "%s [session:%s] %-3s %s %s", ts, session, event.Direction, event.Layer, eventLabel(event))
	if event.DataItemID != 0 {
		fmt.Fprintf(w, " #%d", event.DataItemID)
	}
	if event.Lane != "" {
		fmt.Fprintf(w, " (%s)", event.Lane)
	}
	fmt.Fprintln(w)

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Message != nil:
		formatMessageDetails(w, event.Message)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Notification != nil:
		formatNotificationDetails(w, event.Notification)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// eventLabel names the payload type of the event.
func eventLabel(event log.Event) string {
	switch {
	case event.Frame != nil:
		return "Frame"
	case event.Message != nil:
		return event.Message.Type.String()
	case event.StateChange != nil:
		return "State"
	case event.Notification != nil:
		return event.Notification.Kind
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatMessageDetails(w io.Writer, msg *log.MessageEvent) {
	if msg.TransactionID != 0 {
		fmt.Fprintf(w, "  TransactionID: %d\n", msg.TransactionID)
	}
	if msg.CorrelationKey != "" {
		fmt.Fprintf(w, "  Key: %s\n", msg.CorrelationKey)
	}

	switch msg.Type {
	case log.MessageTypeRequest:
		if msg.Kind != "" {
			fmt.Fprintf(w, "  Kind: %s\n", msg.Kind)
		}
		if msg.Channel != "" {
			fmt.Fprintf(w, "  Channel: %s\n", msg.Channel)
		}
		if msg.Deadline != nil {
			fmt.Fprintf(w, "  Deadline: %s\n", msg.Deadline.UTC().Format(timestampLayout))
		}

	case log.MessageTypeResponse:
		fmt.Fprintf(w, "  Final: %v\n", msg.Final)
	}

	if msg.Size > 0 {
		fmt.Fprintf(w, "  Size: %d bytes\n", msg.Size)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity)
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatNotificationDetails(w io.Writer, n *log.NotificationEvent) {
	if n.RequestSequenceNr != 0 {
		fmt.Fprintf(w, "  Seq: %d\n", n.RequestSequenceNr)
	}
	if n.Severity != "" {
		fmt.Fprintf(w, "  Severity: %s\n", n.Severity)
	}
	if n.ErrorKind != "" {
		fmt.Fprintf(w, "  ErrorKind: %s\n", n.ErrorKind)
	}
	if n.Text != "" {
		fmt.Fprintf(w, "  Text: %s\n", n.Text)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer)
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: %d\n", *err.Code)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// ParseLayerFlag parses a layer string (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "wire":
		return log.LayerWire, nil
	case "engine":
		return log.LayerEngine, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, wire, or engine)", s)
	}
}

// ParseDirectionFlag parses a direction string (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "notification":
		return log.CategoryNotification, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, state, notification, or error)", s)
	}
}

// RunView prints every matching event of the log file to output.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter.filter())
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}

	return nil
}
