package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.DataItemID != 0 {
		attrs = append(attrs, slog.Uint64("data_item_id", event.DataItemID))
	}
	if event.Lane != "" {
		attrs = append(attrs, slog.String("lane", event.Lane))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
	case event.Message != nil:
		attrs = append(attrs,
			slog.String("msg_type", event.Message.Type.String()),
			slog.Uint64("txn_id", uint64(event.Message.TransactionID)),
		)
		if event.Message.CorrelationKey != "" {
			attrs = append(attrs, slog.String("correlation_key", event.Message.CorrelationKey))
		}
		if event.Message.Kind != "" {
			attrs = append(attrs, slog.String("kind", event.Message.Kind))
		}
		if event.Message.Channel != "" {
			attrs = append(attrs, slog.String("channel", event.Message.Channel))
		}
		if event.Message.Final {
			attrs = append(attrs, slog.Bool("final", true))
		}
		if event.Message.Deadline != nil {
			attrs = append(attrs, slog.Time("deadline", *event.Message.Deadline))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Notification != nil:
		attrs = append(attrs, slog.String("notification", event.Notification.Kind))
		if event.Notification.Severity != "" {
			attrs = append(attrs, slog.String("severity", event.Notification.Severity))
		}
		if event.Notification.ErrorKind != "" {
			attrs = append(attrs, slog.String("error_kind", event.Notification.ErrorKind))
		}
		if event.Notification.Text != "" {
			attrs = append(attrs, slog.String("text", event.Notification.Text))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
