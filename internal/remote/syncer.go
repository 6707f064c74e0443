package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/UdinTarmiji/finance-data/internal/core"
	"github.com/UdinTarmiji/finance-data/internal/ledger"
)

// Syncer runs the save state machine against an ObjectStore:
// fetch the current version token, serialize the snapshot as a flat
// table, then write conditionally on that token. One Save is one attempt;
// retry policy belongs to the caller.
type Syncer struct {
	store  ObjectStore
	prefix string
}

// NewSyncer wraps a backend. prefix namespaces ledger paths, e.g. a
// prefix of "data" puts owner "dafiq" at "data/dafiq/data.csv".
func NewSyncer(store ObjectStore, prefix string) *Syncer {
	if prefix == "" {
		prefix = "data"
	}
	return &Syncer{store: store, prefix: prefix}
}

// PathFor returns the remote object path for one owner's ledger. The
// owner string is an opaque namespacing key, not a security boundary.
func (s *Syncer) PathFor(owner string) string {
	return path.Join(s.prefix, owner, "data.csv")
}

// Save pushes a full snapshot for the owner. It returns the remote's new
// version token on success, ErrConflict if another writer updated the
// object since the fetch, or a SyncError for transport failures. No
// outcome mutates local state.
func (s *Syncer) Save(ctx context.Context, owner string, rows []ledger.Row) (string, error) {
	objPath := s.PathFor(owner)

	_, version, err := s.store.Fetch(ctx, objPath)
	if errors.Is(err, ErrNotFound) {
		version = ""
	} else if err != nil {
		return "", fmt.Errorf("fetch current version: %w", err)
	}

	content := ledger.MarshalTable(rows)
	newVersion, err := s.store.Put(ctx, objPath, content, version)
	if err != nil {
		return "", err
	}

	slog.InfoContext(ctx, "Ledger saved to remote",
		"owner", owner,
		"path", objPath,
		"rows", len(rows),
		"version", newVersion)
	return newVersion, nil
}

// Load is the inbound mirror for initial session load. A never-created
// object yields an empty record set and an empty version token, which is
// not an error. Unparseable rows are skipped and logged, never fatal.
func (s *Syncer) Load(ctx context.Context, owner string) ([]core.Record, string, error) {
	objPath := s.PathFor(owner)

	content, version, err := s.store.Fetch(ctx, objPath)
	if errors.Is(err, ErrNotFound) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", err
	}

	records, skipped, err := ledger.ParseTable(content)
	if err != nil {
		return nil, "", fmt.Errorf("parse remote table: %w", err)
	}
	if skipped > 0 {
		slog.WarnContext(ctx, "Skipped unparseable rows in remote table",
			"owner", owner,
			"path", objPath,
			"skipped", skipped)
	}
	return records, version, nil
}
