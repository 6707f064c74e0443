// Package remote mirrors a ledger to a versioned remote object store
// under optimistic concurrency. The remote copy is an eventually
// consistent backup; local state stays authoritative during a session.
package remote

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the object has never been created at that path.
	// Fetch returns it; Save treats it as "no prior version".
	ErrNotFound = errors.New("remote object not found")

	// ErrConflict means the version token presented with a write no
	// longer matches the object's current version: another writer got
	// there first. Local state remains valid; the caller decides whether
	// to retry from a fresh fetch or surface the conflict.
	ErrConflict = errors.New("remote version conflict")
)

// SyncError wraps transport, auth, or remote-side failures. It never
// implies anything about local state, which remains usable offline.
type SyncError struct {
	Op     string
	Path   string
	Status int
	Err    error
}

func (e *SyncError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote %s %s: status %d: %v", e.Op, e.Path, e.Status, e.Err)
	}
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// ObjectStore is the outbound port every remote backend implements.
type ObjectStore interface {
	// Fetch reads the object's content and its current version token.
	// A path that was never written returns ErrNotFound.
	Fetch(ctx context.Context, path string) (content []byte, version string, err error)

	// Put writes content conditionally: prevVersion must match the
	// object's current version token (empty string for a new object) or
	// the write fails with ErrConflict. Returns the new version token.
	Put(ctx context.Context, path string, content []byte, prevVersion string) (newVersion string, err error)
}
