package events

import (
	"testing"
	"time"
)

func TestMemoryLogger(t *testing.T) {
	l := NewMemoryLogger()

	err := l.LogEvent(Event{
		SessionID: "s1",
		EventType: TypeGenerated,
		Data:      map[string]any{"key": "English|Primary|Mathematics|Beginner|fractions"},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	evs := l.Events()
	if len(evs) != 1 {
		t.Fatalf("Events() length = %d, want 1", len(evs))
	}
	if evs[0].EventType != TypeGenerated {
		t.Errorf("EventType = %q, want %q", evs[0].EventType, TypeGenerated)
	}
	if evs[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped when zero")
	}
}

func TestMemoryLogger_RequiresType(t *testing.T) {
	l := NewMemoryLogger()
	if err := l.LogEvent(Event{SessionID: "s1"}); err == nil {
		t.Error("LogEvent() should reject a missing event type")
	}
}

func TestMemoryLogger_PreservesTimestamp(t *testing.T) {
	l := NewMemoryLogger()
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	if err := l.LogEvent(Event{SessionID: "s1", EventType: TypeQuizGraded, CreatedAt: at}); err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}
	if got := l.Events()[0].CreatedAt; !got.Equal(at) {
		t.Errorf("CreatedAt = %v, want %v", got, at)
	}
}

func TestMemoryLogger_EventsReturnsCopy(t *testing.T) {
	l := NewMemoryLogger()
	l.LogEvent(Event{SessionID: "s1", EventType: TypeSessionReset})

	evs := l.Events()
	evs[0].EventType = "mutated"

	if l.Events()[0].EventType != TypeSessionReset {
		t.Error("Events() must return a copy, not the internal slice")
	}
}

func TestNopLogger(t *testing.T) {
	if err := (NopLogger{}).LogEvent(Event{}); err != nil {
		t.Errorf("NopLogger.LogEvent() error = %v", err)
	}
}
