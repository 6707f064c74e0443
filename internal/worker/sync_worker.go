// Package worker pushes dirty ledgers from SQLite to the remote store.
// It consumes sync requests from AMQP and runs a periodic catch-up pass
// for owners whose publish was lost or whose push kept failing.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/UdinTarmiji/finance-data/internal/amqp"
	"github.com/UdinTarmiji/finance-data/internal/core"
	"github.com/UdinTarmiji/finance-data/internal/ledger"
	"github.com/UdinTarmiji/finance-data/internal/remote"
	"github.com/UdinTarmiji/finance-data/internal/storage"
)

// Repository is the slice of storage the worker needs.
type Repository interface {
	ListRecords(ctx context.Context, owner string) ([]core.Record, error)
	MarkSynced(ctx context.Context, owner, remoteVersion string) error
	MarkSyncError(ctx context.Context, owner string) error
	DirtyOwners(ctx context.Context, limit int) ([]string, error)
}

// Syncer is the remote push/pull surface, implemented by remote.Syncer.
type Syncer interface {
	Save(ctx context.Context, owner string, rows []ledger.Row) (string, error)
}

type SyncWorker struct {
	repo      Repository
	syncer    Syncer
	batchSize int
	interval  time.Duration

	// retryInterval seeds the exponential backoff between push attempts.
	retryInterval time.Duration
}

func NewSyncWorker(repo Repository, syncer Syncer, batchSize int, interval time.Duration) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &SyncWorker{
		repo:          repo,
		syncer:        syncer,
		batchSize:     batchSize,
		interval:      interval,
		retryInterval: 500 * time.Millisecond,
	}
}

var _ Repository = (*storage.Repository)(nil)

// HandleSyncRequest processes a single sync request from AMQP.
func (w *SyncWorker) HandleSyncRequest(ctx context.Context, msg *amqp.SyncRequest) error {
	slog.InfoContext(ctx, "Processing sync request",
		"owner", msg.Owner,
		"revision", msg.Revision)

	if err := w.syncOwner(ctx, msg.Owner); err != nil {
		return fmt.Errorf("sync owner %s: %w", msg.Owner, err)
	}
	return nil
}

// syncOwner pushes the owner's current SQLite rows to the remote store.
// Transport failures are retried with exponential backoff. A version
// conflict means someone else wrote since our last fetch; Save refreshes
// the version token on every attempt, so one retry resolves it with the
// latest local state winning.
func (w *SyncWorker) syncOwner(ctx context.Context, owner string) error {
	records, err := w.repo.ListRecords(ctx, owner)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	l := ledger.New()
	l.Load(records)
	rows := l.Snapshot()

	push := func() (string, error) {
		version, err := w.syncer.Save(ctx, owner, rows)
		if errors.Is(err, remote.ErrConflict) {
			// Save re-fetches the version token itself, so a conflict
			// on retry means the remote is changing under us. Keep
			// retrying until the backoff gives up.
			return "", err
		}
		if err != nil {
			return "", err
		}
		return version, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = w.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, 5), ctx)
	version, err := backoff.RetryWithData(push, policy)
	if err != nil {
		if merr := w.repo.MarkSyncError(ctx, owner); merr != nil {
			slog.ErrorContext(ctx, "Failed to record sync error", "owner", owner, "error", merr)
		}
		return err
	}

	if err := w.repo.MarkSynced(ctx, owner, version); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}

	slog.InfoContext(ctx, "Ledger synced to remote store",
		"owner", owner,
		"rows", len(rows),
		"remote_version", version)
	return nil
}

// Run consumes sync requests until the context is cancelled.
func (w *SyncWorker) Run(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeSyncRequests(ctx, func(msg *amqp.SyncRequest) error {
		return w.HandleSyncRequest(ctx, msg)
	})
}

// RunPeriodic pushes dirty owners on a ticker. It catches owners whose
// sync request was never published or whose push failed earlier.
func (w *SyncWorker) RunPeriodic(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessDirty(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sync pass failed", "error", err)
			}
		}
	}
}

// ProcessDirty pushes up to batchSize dirty owners. One owner failing
// does not stop the pass.
func (w *SyncWorker) ProcessDirty(ctx context.Context) error {
	owners, err := w.repo.DirtyOwners(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list dirty owners: %w", err)
	}
	if len(owners) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing dirty owners", "count", len(owners))

	var failed int
	for _, owner := range owners {
		if err := w.syncOwner(ctx, owner); err != nil {
			slog.ErrorContext(ctx, "Failed to sync owner", "owner", owner, "error", err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d owners failed to sync", failed, len(owners))
	}
	return nil
}
