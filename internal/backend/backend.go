// Package backend selects and builds the remote object store from
// configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UdinTarmiji/finance-data/internal/config"
	"github.com/UdinTarmiji/finance-data/internal/remote"
	"github.com/UdinTarmiji/finance-data/internal/remote/github"
	"github.com/UdinTarmiji/finance-data/internal/remote/memory"
	"github.com/UdinTarmiji/finance-data/internal/remote/sheets"
)

// Type names a remote store implementation.
type Type string

const (
	Memory Type = "memory"
	GitHub Type = "github"
	Sheets Type = "sheets"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case Memory, GitHub, Sheets:
		return true
	default:
		return false
	}
}

// NewObjectStore builds the remote store named by the config. The memory
// store holds data only for the process lifetime and suits tests and
// local development.
func NewObjectStore(ctx context.Context, cfg *config.Config) (remote.ObjectStore, error) {
	t := Type(cfg.RemoteBackend)
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid remote backend: %s", cfg.RemoteBackend)
	}

	switch t {
	case GitHub:
		store, err := github.New(github.Config{
			Token:  cfg.GitHubToken,
			Owner:  cfg.GitHubOwner,
			Repo:   cfg.GitHubRepo,
			Branch: cfg.GitHubBranch,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize GitHub store: %w", err)
		}
		slog.Info("Initialized GitHub remote store",
			"owner", cfg.GitHubOwner,
			"repo", cfg.GitHubRepo,
			"branch", cfg.GitHubBranch)
		return store, nil

	case Sheets:
		store, err := sheets.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize Google Sheets store: %w", err)
		}
		slog.Info("Initialized Google Sheets remote store",
			"spreadsheet_id", cfg.GoogleSpreadsheetID)
		return store, nil

	default:
		slog.Info("Initialized in-memory remote store")
		return memory.New(), nil
	}
}
