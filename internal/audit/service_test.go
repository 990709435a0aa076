package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestService_AppendRequiresType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{CallID: "c"}); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
	if err := NewService(nil).Append(context.Background(), Event{Type: EventTypeNotifierFailed}); err == nil {
		t.Fatalf("expected error without repository")
	}
}

func TestService_AppendAssignsIDAndTimestamp(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	now := time.Unix(1700000000, 0).UTC()
	svc.clock = func() time.Time { return now }

	if err := svc.LogPlacementFailed(context.Background(), "op-1", "operator", "1.2.3.4", "cmp", "call-1", errors.New("dialer 503")); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	e := evs[0]
	if e.ID == "" || !e.CreatedAt.Equal(now) {
		t.Fatalf("expected id and created_at assigned, got %+v", e)
	}
	if e.Type != EventTypePlacementFailed || e.IPAddress != "1.2.3.4" || e.CallID != "call-1" {
		t.Fatalf("unexpected event: %+v", e)
	}
	if !strings.Contains(e.Message, "dialer 503") {
		t.Fatalf("expected cause in message, got %q", e.Message)
	}
}

func TestService_LogNotifierFailed(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogNotifierFailed(context.Background(), "cmp", "call-1", "esc-1", errors.New("timeout")); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	evs := repo.EventsOfType(EventTypeNotifierFailed)
	if len(evs) != 1 || evs[0].EscalationID != "esc-1" {
		t.Fatalf("unexpected events: %+v", evs)
	}
}

func TestMetadata(t *testing.T) {
	if got := Metadata(map[string]int{"a": 1}); got != `{"a":1}` {
		t.Fatalf("unexpected metadata %q", got)
	}
	if got := Metadata(func() {}); got != "" {
		t.Fatalf("expected empty metadata for unencodable value, got %q", got)
	}
}
