// Package storage keeps each owner's ledger durable on local disk so a
// session survives restarts and keeps working while the remote store is
// unreachable. It also tracks per-owner sync state: the last remote
// version token and whether local rows have changed since the last
// successful push.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/UdinTarmiji/finance-data/internal/core"
	"github.com/UdinTarmiji/finance-data/internal/ledger"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db *sql.DB
}

// SyncState is one owner's remote mirror bookkeeping.
type SyncState struct {
	Owner         string
	RemoteVersion string
	Dirty         bool
	SyncErrors    int64
	UpdatedAt     time.Time
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReplaceLedger overwrites the owner's stored rows with the given
// snapshot in one transaction and marks the owner dirty for the sync
// worker. The ledger's IDs and order are preserved as written.
func (r *Repository) ReplaceLedger(ctx context.Context, owner string, rows []ledger.Row) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE owner = ?`, owner); err != nil {
		return fmt.Errorf("clear ledger rows: %w", err)
	}
	for _, row := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (owner, id, date, income_cents, expense_cents, category)
			VALUES (?, ?, ?, ?, ?, ?)`,
			owner, row.ID, row.Date.Format(), row.Income.Cents, row.Expense.Cents, row.Category)
		if err != nil {
			return fmt.Errorf("insert ledger row %d: %w", row.ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sync_state (owner, dirty, updated_at) VALUES (?, 1, datetime('now'))
		ON CONFLICT(owner) DO UPDATE SET dirty = 1, updated_at = datetime('now')`, owner); err != nil {
		return fmt.Errorf("mark owner dirty: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	slog.InfoContext(ctx, "Ledger persisted to SQLite", "owner", owner, "rows", len(rows))
	return nil
}

// ListRecords returns the owner's stored records in date order.
func (r *Repository) ListRecords(ctx context.Context, owner string) ([]core.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, income_cents, expense_cents, category
		FROM transactions WHERE owner = ? ORDER BY date, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("query ledger rows: %w", err)
	}
	defer rows.Close()

	var records []core.Record
	for rows.Next() {
		var (
			rec     core.Record
			dateStr string
		)
		if err := rows.Scan(&rec.ID, &dateStr, &rec.Income.Cents, &rec.Expense.Cents, &rec.Category); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		date, err := core.ParseDate(dateStr)
		if err != nil {
			// A stored row with an invalid date is skipped, not fatal.
			slog.WarnContext(ctx, "Skipping stored row with invalid date", "owner", owner, "id", rec.ID, "date", dateStr)
			continue
		}
		rec.Date = date
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SyncState returns the owner's sync bookkeeping; a never-synced owner
// yields the zero state.
func (r *Repository) SyncState(ctx context.Context, owner string) (SyncState, error) {
	st := SyncState{Owner: owner}
	var updatedAt string
	err := r.db.QueryRowContext(ctx, `
		SELECT remote_version, dirty, sync_errors, updated_at
		FROM sync_state WHERE owner = ?`, owner).
		Scan(&st.RemoteVersion, &st.Dirty, &st.SyncErrors, &updatedAt)
	if err == sql.ErrNoRows {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("query sync state: %w", err)
	}
	if t, perr := time.Parse("2006-01-02 15:04:05", updatedAt); perr == nil {
		st.UpdatedAt = t
	}
	return st, nil
}

// MarkSynced records a successful push: stores the new remote version
// and clears the dirty flag.
func (r *Repository) MarkSynced(ctx context.Context, owner, remoteVersion string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (owner, remote_version, dirty, sync_errors, updated_at)
		VALUES (?, ?, 0, 0, datetime('now'))
		ON CONFLICT(owner) DO UPDATE SET
			remote_version = excluded.remote_version,
			dirty = 0,
			sync_errors = 0,
			updated_at = datetime('now')`, owner, remoteVersion)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	slog.InfoContext(ctx, "Owner marked synced", "owner", owner, "remote_version", remoteVersion)
	return nil
}

// MarkSyncError bumps the owner's failure counter; the dirty flag stays
// set so the periodic pass retries later.
func (r *Repository) MarkSyncError(ctx context.Context, owner string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sync_state (owner, dirty, sync_errors, updated_at)
		VALUES (?, 1, 1, datetime('now'))
		ON CONFLICT(owner) DO UPDATE SET
			sync_errors = sync_state.sync_errors + 1,
			updated_at = datetime('now')`, owner)
	if err != nil {
		return fmt.Errorf("mark sync error: %w", err)
	}
	slog.WarnContext(ctx, "Owner marked with sync error", "owner", owner)
	return nil
}

// DirtyOwners lists owners whose local rows have not been pushed yet,
// oldest change first.
func (r *Repository) DirtyOwners(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT owner FROM sync_state WHERE dirty = 1 ORDER BY updated_at LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query dirty owners: %w", err)
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}
