package recorder

import "fmt"

// LogEventStore and LogNotifier are the default EventStore/Notifier
// wired by cmd/engine when no external persistence/notification backend
// is configured. Real event storage and notification delivery are
// deliberately out of scope (spec section 1's external-collaborator
// list); these exist only so the recorder has somewhere to go by
// default, generalizing the teacher's VMCSender `enabled` toggle — a
// small mutex-free struct that can be swapped out wholesale rather than
// internally disabled.
type LogEventStore struct {
	onLog func(string)
}

// NewLogEventStore creates an EventStore that logs instead of persisting.
func NewLogEventStore(onLog func(string)) *LogEventStore {
	if onLog == nil {
		onLog = func(string) {}
	}
	return &LogEventStore{onLog: onLog}
}

func (s *LogEventStore) Save(ev Event) error {
	s.onLog(fmt.Sprintf("event %s: stream=%s model=%s reasons=%v clip=%s", ev.ID, ev.StreamID, ev.ModelName, ev.Reasons, ev.ClipPath))
	return nil
}

// LogNotifier logs instead of sending email/push notifications.
type LogNotifier struct {
	onLog func(string)
}

// NewLogNotifier creates a Notifier that logs instead of delivering.
func NewLogNotifier(onLog func(string)) *LogNotifier {
	if onLog == nil {
		onLog = func(string) {}
	}
	return &LogNotifier{onLog: onLog}
}

func (n *LogNotifier) Notify(ev Event) error {
	n.onLog(fmt.Sprintf("notify event %s: stream=%s reasons=%v", ev.ID, ev.StreamID, ev.Reasons))
	return nil
}
