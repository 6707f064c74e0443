// Package memory is an in-memory ObjectStore used by tests and local
// development. Version tokens are a per-object monotonic counter.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/UdinTarmiji/finance-data/internal/remote"
)

type object struct {
	content []byte
	version int64
}

type Store struct {
	mu      sync.Mutex
	objects map[string]object
	failErr error
}

var _ remote.ObjectStore = (*Store)(nil)

func New() *Store {
	return &Store{objects: make(map[string]object)}
}

// SetError makes every subsequent call fail with err, simulating a
// transport outage. Pass nil to recover.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

func (s *Store) Fetch(_ context.Context, path string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, "", &remote.SyncError{Op: "fetch", Path: path, Err: s.failErr}
	}
	obj, ok := s.objects[path]
	if !ok {
		return nil, "", remote.ErrNotFound
	}
	content := append([]byte(nil), obj.content...)
	return content, strconv.FormatInt(obj.version, 10), nil
}

func (s *Store) Put(_ context.Context, path string, content []byte, prevVersion string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return "", &remote.SyncError{Op: "put", Path: path, Err: s.failErr}
	}
	obj, exists := s.objects[path]

	current := ""
	if exists {
		current = strconv.FormatInt(obj.version, 10)
	}
	if prevVersion != current {
		return "", remote.ErrConflict
	}

	next := obj.version + 1
	s.objects[path] = object{content: append([]byte(nil), content...), version: next}
	return strconv.FormatInt(next, 10), nil
}
