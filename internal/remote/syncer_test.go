package remote_test

import (
	"context"
	"errors"
	"testing"

	"github.com/UdinTarmiji/finance-data/internal/core"
	"github.com/UdinTarmiji/finance-data/internal/ledger"
	"github.com/UdinTarmiji/finance-data/internal/remote"
	"github.com/UdinTarmiji/finance-data/internal/remote/memory"
)

func snapshot(t *testing.T) []ledger.Row {
	t.Helper()
	l := ledger.New()
	records := []core.Record{
		{Date: core.NewDate(2024, 1, 1), Income: core.Money{Cents: 100000}},
		{Date: core.NewDate(2024, 1, 2), Expense: core.Money{Cents: 40000}, Category: "Food"},
	}
	for _, r := range records {
		if _, err := l.Insert(r); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return l.Snapshot()
}

func TestPathFor(t *testing.T) {
	s := remote.NewSyncer(memory.New(), "data")
	if got := s.PathFor("dafiq"); got != "data/dafiq/data.csv" {
		t.Fatalf("path = %q", got)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := remote.NewSyncer(memory.New(), "data")

	version, err := s.Save(ctx, "alice", snapshot(t))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if version == "" {
		t.Fatalf("expected a version token")
	}

	records, loadedVersion, err := s.Load(ctx, "alice")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loadedVersion != version {
		t.Fatalf("version = %q, want %q", loadedVersion, version)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestLoadNeverCreatedIsNotAnError(t *testing.T) {
	s := remote.NewSyncer(memory.New(), "data")
	records, version, err := s.Load(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if records != nil || version != "" {
		t.Fatalf("expected empty result, got %d records, version %q", len(records), version)
	}
}

func TestSaveAfterConcurrentWriteConflicts(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	winner := remote.NewSyncer(store, "data")
	loser := remote.NewSyncer(store, "data")

	if _, err := winner.Save(ctx, "alice", snapshot(t)); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	// The loser observes the current version, then the winner advances it.
	path := loser.PathFor("alice")
	_, staleVersion, err := store.Fetch(ctx, path)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := winner.Save(ctx, "alice", snapshot(t)); err != nil {
		t.Fatalf("winner save: %v", err)
	}

	if _, err := store.Put(ctx, path, []byte("stale write"), staleVersion); !errors.Is(err, remote.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// A fresh Save re-fetches and wins (last-fetch-wins).
	if _, err := loser.Save(ctx, "alice", snapshot(t)); err != nil {
		t.Fatalf("retry save: %v", err)
	}
}

func TestSaveSurfacesTransportFailure(t *testing.T) {
	store := memory.New()
	store.SetError(errors.New("dial tcp: connection refused"))
	s := remote.NewSyncer(store, "data")

	_, err := s.Save(context.Background(), "alice", snapshot(t))
	var serr *remote.SyncError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SyncError, got %v", err)
	}
}
