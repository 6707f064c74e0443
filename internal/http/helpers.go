package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/UdinTarmiji/finance-data/internal/core"
	applog "github.com/UdinTarmiji/finance-data/internal/log"
	"github.com/UdinTarmiji/finance-data/internal/remote"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps domain errors onto HTTP status codes. Validation and
// malformed input are the caller's fault, a missing record is 404, a
// sync conflict is 409, and a remote store failure surfaces as 502.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	var verr *core.ValidationError
	var nferr *core.NotFoundError
	var serr *remote.SyncError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.As(err, &nferr):
		status = http.StatusNotFound
	case errors.Is(err, remote.ErrConflict):
		status = http.StatusConflict
	case errors.As(err, &serr):
		status = http.StatusBadGateway
	}

	logger := applog.FromContext(r.Context())
	if status >= 500 {
		logger.ErrorContext(r.Context(), "Request failed", applog.FieldError, err, applog.FieldStatusCode, status)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", applog.FieldError, err, applog.FieldStatusCode, status)
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// badRequest reports malformed input that never reached the domain layer.
func badRequest(w http.ResponseWriter, r *http.Request, format string, args ...any) {
	writeError(w, r, &core.ValidationError{Field: "request", Err: fmt.Errorf(format, args...)})
}

// ownerFromPath validates the {owner} path segment. Owners become path
// segments in the remote store, so separators and dots are rejected.
func ownerFromPath(r *http.Request) (string, error) {
	owner := strings.TrimSpace(r.PathValue("owner"))
	if owner == "" {
		return "", &core.ValidationError{Field: "owner", Err: errors.New("owner is required")}
	}
	if strings.ContainsAny(owner, "/\\.") {
		return "", &core.ValidationError{Field: "owner", Err: fmt.Errorf("invalid owner %q", owner)}
	}
	return owner, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
