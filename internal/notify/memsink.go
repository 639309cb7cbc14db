package notify

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Compile-time assertions.
var (
	_ Sink = (*MemSink)(nil)
	_ Sink = (*LogSink)(nil)
)

// MemSink collects emitted events in memory. It is used in tests and by the
// REPL session, where notifications are rendered at the end of a run.
// The zero value is ready to use.
type MemSink struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements [Sink].
func (s *MemSink) Emit(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Events returns a copy of every event emitted so far, in emission order.
func (s *MemSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

// Reset discards all collected events.
func (s *MemSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// LogSink writes emitted events to slog at info level. Useful when no
// persistent notification store is configured.
type LogSink struct{}

// Emit implements [Sink].
func (LogSink) Emit(ctx context.Context, ev Event) error {
	slog.InfoContext(ctx, "notification emitted",
		"recipient", ev.RecipientID,
		"role", ev.RecipientRole,
		"title", ev.Title,
		"category", ev.Category,
	)
	return nil
}

// Multi fans one event out to several sinks. The first emit error is
// returned, but every sink is attempted.
type Multi []Sink

// Emit implements [Sink].
func (m Multi) Emit(ctx context.Context, ev Event) error {
	var first error
	for _, s := range m {
		if err := s.Emit(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
