// Package github persists ledger tables through the GitHub repository
// contents API. The blob SHA returned by GET doubles as the version
// token: PUT carries it back and GitHub rejects the write with 409 when
// the file changed in between, which is exactly the compare-and-swap the
// sync adapter needs.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/UdinTarmiji/finance-data/internal/remote"
)

const defaultBaseURL = "https://api.github.com"

type Store struct {
	client  *http.Client
	baseURL string
	token   string
	owner   string
	repo    string
	branch  string
}

var _ remote.ObjectStore = (*Store)(nil)

type Config struct {
	Token  string
	Owner  string
	Repo   string
	Branch string
	// BaseURL overrides the API endpoint; tests point it at a local server.
	BaseURL string
}

func New(cfg Config) (*Store, error) {
	if cfg.Token == "" {
		return nil, errors.New("missing GitHub token")
	}
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, errors.New("missing GitHub repository owner or name")
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Store{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		branch:  cfg.Branch,
	}, nil
}

type contentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

func (s *Store) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", s.baseURL, s.owner, s.repo, path)
}

func (s *Store) Fetch(ctx context.Context, path string) ([]byte, string, error) {
	u := s.contentsURL(path) + "?ref=" + url.QueryEscape(s.branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", &remote.SyncError{Op: "fetch", Path: path, Err: err}
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", &remote.SyncError{Op: "fetch", Path: path, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, "", remote.ErrNotFound
	default:
		return nil, "", apiError("fetch", path, resp)
	}

	var body contentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, "", &remote.SyncError{Op: "fetch", Path: path, Err: fmt.Errorf("decode response: %w", err)}
	}

	// GitHub wraps base64 content across lines.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(body.Content, "\n", ""))
	if err != nil {
		return nil, "", &remote.SyncError{Op: "fetch", Path: path, Err: fmt.Errorf("decode content: %w", err)}
	}
	return raw, body.SHA, nil
}

func (s *Store) Put(ctx context.Context, path string, content []byte, prevVersion string) (string, error) {
	payload := putRequest{
		Message: "update " + path,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  s.branch,
		SHA:     prevVersion,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &remote.SyncError{Op: "put", Path: path, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.contentsURL(path), bytes.NewReader(body))
	if err != nil {
		return "", &remote.SyncError{Op: "put", Path: path, Err: err}
	}
	s.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &remote.SyncError{Op: "put", Path: path, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusConflict:
		return "", remote.ErrConflict
	case http.StatusUnprocessableEntity:
		// GitHub reports a stale or missing SHA for an existing file as 422.
		return "", remote.ErrConflict
	default:
		return "", apiError("put", path, resp)
	}

	var out putResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &remote.SyncError{Op: "put", Path: path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return out.Content.SHA, nil
}

func (s *Store) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "application/vnd.github+json")
}

func apiError(op, path string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &remote.SyncError{
		Op:     op,
		Path:   path,
		Status: resp.StatusCode,
		Err:    fmt.Errorf("github api: %s", strings.TrimSpace(string(msg))),
	}
}
