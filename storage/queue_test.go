package storage

import (
	"strings"
	"testing"

	"todo-api/domain"
)

func TestEncodeEvent(t *testing.T) {
	msg, err := encodeEvent(domain.Event{
		Type:       domain.TaskCreated,
		EntityType: domain.EntityTask,
		EntityID:   "t1",
		UserID:     "u1",
		Timestamp:  42,
		Data:       map[string]string{"title": "Buy milk"},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for _, want := range []string{`"type":"task-created"`, `"entityType":"task"`, `"entityId":"t1"`, `"userId":"u1"`, `"timestamp":42`, `"title":"Buy milk"`} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %s in %s", want, msg)
		}
	}
}

func TestNewEventQueueRejectsBadConnectionString(t *testing.T) {
	if _, err := NewEventQueue("not a connection string", "events"); err == nil {
		t.Fatalf("expected error for malformed connection string")
	}
}

func TestDecodeEventRoundTrip(t *testing.T) {
	in := domain.Event{Type: domain.TaskDeleted, EntityType: domain.EntityTask, EntityID: "t1", UserID: "u1", Timestamp: 7}
	msg, err := encodeEvent(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := DecodeEvent(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Type != in.Type || out.EntityID != in.EntityID || out.UserID != in.UserID || out.Timestamp != in.Timestamp {
		t.Fatalf("unexpected event: %+v", out)
	}
}

func TestDecodeEventRejects(t *testing.T) {
	for _, text := range []string{"", "not json", `{"type":"task-created"}`, `{"entityId":"t1"}`} {
		if _, err := DecodeEvent(text); err == nil {
			t.Fatalf("expected error for %q", text)
		}
	}
}
