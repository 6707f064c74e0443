package amqp

import (
	"testing"
	"time"
)

func TestSyncRequestRoundTrip(t *testing.T) {
	msg := NewSyncRequest("alice", 7)

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := SyncRequestFromJSON(data)
	if err != nil {
		t.Fatalf("SyncRequestFromJSON: %v", err)
	}

	if got.Owner != "alice" {
		t.Errorf("owner = %q, want %q", got.Owner, "alice")
	}
	if got.Revision != 7 {
		t.Errorf("revision = %d, want 7", got.Revision)
	}
	if got.Timestamp.IsZero() || time.Since(got.Timestamp) > time.Minute {
		t.Errorf("unexpected timestamp %v", got.Timestamp)
	}
}

func TestSyncRequestFromInvalidJSON(t *testing.T) {
	if _, err := SyncRequestFromJSON([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
