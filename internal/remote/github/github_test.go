package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/UdinTarmiji/finance-data/internal/remote"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store, err := New(Config{
		Token:   "test-token",
		Owner:   "UdinTarmiji",
		Repo:    "finance-data",
		BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(Config{Owner: "o", Repo: "r"}); err == nil {
		t.Fatalf("expected error without token")
	}
	if _, err := New(Config{Token: "t"}); err == nil {
		t.Fatalf("expected error without repo")
	}
}

func TestFetchDecodesContentAndSHA(t *testing.T) {
	table := "date,income,expense,category\n2024-01-01,1000,0,-\n"
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("method = %s", r.Method)
		}
		if got := r.URL.Path; got != "/repos/UdinTarmiji/finance-data/contents/data/dafiq/data.csv" {
			t.Fatalf("path = %s", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Fatalf("auth header = %q", got)
		}
		// GitHub folds base64 content with newlines.
		enc := base64.StdEncoding.EncodeToString([]byte(table))
		folded := enc[:20] + "\n" + enc[20:]
		json.NewEncoder(w).Encode(map[string]string{
			"content":  folded,
			"encoding": "base64",
			"sha":      "abc123",
		})
	})

	content, version, err := store.Fetch(context.Background(), "data/dafiq/data.csv")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(content) != table {
		t.Fatalf("content = %q", content)
	}
	if version != "abc123" {
		t.Fatalf("version = %q", version)
	}
}

func TestFetchMissingObject(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})
	_, _, err := store.Fetch(context.Background(), "data/nobody/data.csv")
	if !errors.Is(err, remote.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPutSendsSHAAndReturnsNewVersion(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Fatalf("method = %s", r.Method)
		}
		var req struct {
			Message string `json:"message"`
			Content string `json:"content"`
			Branch  string `json:"branch"`
			SHA     string `json:"sha"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.SHA != "oldsha" {
			t.Fatalf("sha = %q", req.SHA)
		}
		if req.Branch != "main" {
			t.Fatalf("branch = %q", req.Branch)
		}
		if _, err := base64.StdEncoding.DecodeString(req.Content); err != nil {
			t.Fatalf("content not base64: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"content": map[string]string{"sha": "newsha"},
		})
	})

	version, err := store.Put(context.Background(), "data/dafiq/data.csv", []byte("x"), "oldsha")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if version != "newsha" {
		t.Fatalf("version = %q", version)
	}
}

func TestPutStaleSHAConflicts(t *testing.T) {
	for _, status := range []int{http.StatusConflict, http.StatusUnprocessableEntity} {
		store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"sha does not match"}`, status)
		})
		_, err := store.Put(context.Background(), "p", []byte("x"), "stale")
		if !errors.Is(err, remote.ErrConflict) {
			t.Fatalf("status %d: expected ErrConflict, got %v", status, err)
		}
	}
}

func TestPutServerErrorIsSyncError(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusBadGateway)
	})
	_, err := store.Put(context.Background(), "p", []byte("x"), "")
	var serr *remote.SyncError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SyncError, got %v", err)
	}
	if serr.Status != http.StatusBadGateway {
		t.Fatalf("status = %d", serr.Status)
	}
}
