package commands

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/pubsync/pubsync-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Notifications     map[string]int
	Sessions          map[string]*SessionStats
	Items             map[uint64]*ItemStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for a single engine session.
type SessionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Requests  int
	Offlines  int
}

// ItemStats holds statistics for a single subscription.
type ItemStats struct {
	Requests  int
	Responses int
	Pushes    int
	Timeouts  int
	Errors    int
}

func newStats() *Stats {
	return &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Notifications:     make(map[string]int),
		Sessions:          make(map[string]*SessionStats),
		Items:             make(map[uint64]*ItemStats),
	}
}

// add folds one event into the statistics.
func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	session, ok := s.Sessions[event.SessionID]
	if !ok {
		session = &SessionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Sessions[event.SessionID] = session
	}
	session.Events++
	if event.Timestamp.After(session.LastSeen) {
		session.LastSeen = event.Timestamp
	}

	var item *ItemStats
	if event.DataItemID != 0 {
		item, ok = s.Items[event.DataItemID]
		if !ok {
			item = &ItemStats{}
			s.Items[event.DataItemID] = item
		}
	}

	switch {
	case event.Message != nil && event.Layer == log.LayerWire:
		switch event.Message.Type {
		case log.MessageTypeRequest:
			session.Requests++
			if item != nil {
				item.Requests++
			}
		case log.MessageTypeResponse:
			if item != nil {
				item.Responses++
			}
		case log.MessageTypePush:
			if item != nil {
				item.Pushes++
			}
		}

	case event.StateChange != nil:
		if event.StateChange.Entity == log.StateEntityTransport && event.StateChange.NewState == "OFFLINE" {
			session.Offlines++
		}

	case event.Notification != nil:
		s.Notifications[event.Notification.Kind]++
		if item == nil {
			break
		}
		switch event.Notification.Kind {
		case "REQUEST_TIMEOUT":
			item.Timeouts++
		case "SUBSCRIPTION_ERROR", "INVALID_REQUEST", "INTERNAL_ERROR":
			item.Errors++
		}

	case event.Error != nil:
		s.Errors++
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := newStats()
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Subscription Engine Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerEngine} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryNotification, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.Notifications) > 0 {
		fmt.Fprintln(w, "Notifications:")
		for _, kind := range slices.Sorted(maps.Keys(stats.Notifications)) {
			fmt.Fprintf(w, "  %-20s %d\n", kind+":", stats.Notifications[kind])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type sessionInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessionInfo, 0, len(stats.Sessions))
		for id, ss := range stats.Sessions {
			sessions = append(sessions, sessionInfo{id, ss})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, s := range sessions {
			duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, %d requests, duration %s\n",
				shortenSessionID(s.id), s.stats.Events, s.stats.Requests, duration)
			if s.stats.Offlines > 0 {
				fmt.Fprintf(w, "             Went offline %d time(s)\n", s.stats.Offlines)
			}
		}
	}

	if len(stats.Items) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Subscriptions: %d\n\n", len(stats.Items))
		fmt.Fprintf(w, "  %-8s %8s %9s %6s %8s %6s\n", "ID", "REQUESTS", "RESPONSES", "PUSHES", "TIMEOUTS", "ERRORS")
		for _, id := range slices.Sorted(maps.Keys(stats.Items)) {
			it := stats.Items[id]
			fmt.Fprintf(w, "  %-8d %8d %9d %6d %8d %6d\n", id, it.Requests, it.Responses, it.Pushes, it.Timeouts, it.Errors)
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
