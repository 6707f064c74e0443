package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/UdinTarmiji/finance-data/internal/remote"
)

func TestFetchMissing(t *testing.T) {
	s := New()
	_, _, err := s.Fetch(context.Background(), "data/alice/data.csv")
	if !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutAndFetch(t *testing.T) {
	s := New()
	ctx := context.Background()

	v1, err := s.Put(ctx, "p", []byte("hello"), "")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	content, version, err := s.Fetch(ctx, "p")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(content) != "hello" || version != v1 {
		t.Fatalf("fetch returned %q version %q", content, version)
	}
}

func TestStaleTokenRejected(t *testing.T) {
	s := New()
	ctx := context.Background()

	v1, err := s.Put(ctx, "p", []byte("first"), "")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	// A second writer advances the object.
	if _, err := s.Put(ctx, "p", []byte("second"), v1); err != nil {
		t.Fatalf("put: %v", err)
	}
	// The first writer retries with its stale token.
	if _, err := s.Put(ctx, "p", []byte("stale"), v1); !errors.Is(err, remote.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	// And an empty token no longer matches an existing object.
	if _, err := s.Put(ctx, "p", []byte("new"), ""); !errors.Is(err, remote.ErrConflict) {
		t.Fatalf("expected ErrConflict for empty token, got %v", err)
	}
}

func TestSetError(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.SetError(errors.New("network down"))

	_, _, err := s.Fetch(ctx, "p")
	var serr *remote.SyncError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SyncError, got %v", err)
	}

	s.SetError(nil)
	if _, err := s.Put(ctx, "p", []byte("x"), ""); err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
}
