package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/UdinTarmiji/finance-data/internal/core"
	"github.com/UdinTarmiji/finance-data/internal/ledger"
	"github.com/UdinTarmiji/finance-data/internal/report"
)

// LedgerRepository is the local persistence the service writes through.
type LedgerRepository interface {
	ReplaceLedger(ctx context.Context, owner string, rows []ledger.Row) error
	ListRecords(ctx context.Context, owner string) ([]core.Record, error)
}

// SyncPublisher queues an owner for a remote push after a local change.
type SyncPublisher interface {
	PublishSyncRequest(ctx context.Context, owner string, revision int64) error
}

// RemoteLoader seeds an owner's ledger from the remote store when the
// local database has nothing for them yet.
type RemoteLoader interface {
	Load(ctx context.Context, owner string) ([]core.Record, string, error)
}

// LedgerService orchestrates ledger operations across the in-memory
// ledgers, SQLite and AMQP. Local writes always succeed or fail on
// their own, sync publishing is best effort.
type LedgerService struct {
	repo      LedgerRepository
	publisher SyncPublisher
	loader    RemoteLoader

	mu        sync.Mutex
	ledgers   map[string]*ledger.Ledger
	revisions map[string]int64
}

// NewLedgerService wires the service. publisher and loader may be nil
// when AMQP or the remote store is not configured.
func NewLedgerService(repo LedgerRepository, publisher SyncPublisher, loader RemoteLoader) *LedgerService {
	return &LedgerService{
		repo:      repo,
		publisher: publisher,
		loader:    loader,
		ledgers:   make(map[string]*ledger.Ledger),
		revisions: make(map[string]int64),
	}
}

// open returns the owner's ledger, loading it from SQLite on first use
// and falling back to the remote store for owners never seen locally.
// Caller must hold s.mu.
func (s *LedgerService) open(ctx context.Context, owner string) (*ledger.Ledger, error) {
	if l, ok := s.ledgers[owner]; ok {
		return l, nil
	}

	records, err := s.repo.ListRecords(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load ledger for %s: %w", owner, err)
	}

	l := ledger.New()
	if len(records) == 0 && s.loader != nil {
		remote, _, err := s.loader.Load(ctx, owner)
		if err != nil {
			// Remote being down must not block local work.
			slog.WarnContext(ctx, "Remote seed failed, starting empty",
				"owner", owner, "error", err)
		} else if len(remote) > 0 {
			dropped := l.Load(remote)
			if dropped > 0 {
				slog.WarnContext(ctx, "Dropped malformed remote rows",
					"owner", owner, "dropped", dropped)
			}
			if err := s.repo.ReplaceLedger(ctx, owner, l.Snapshot()); err != nil {
				return nil, fmt.Errorf("seed ledger for %s: %w", owner, err)
			}
			slog.InfoContext(ctx, "Seeded ledger from remote store",
				"owner", owner, "rows", l.Len())
		}
	} else {
		l.Load(records)
	}

	s.ledgers[owner] = l
	return l, nil
}

// persist writes the ledger through to SQLite and queues a sync. A
// publish failure is logged, not returned, the dirty flag in SQLite
// guarantees a later catch-up pass will push the change.
func (s *LedgerService) persist(ctx context.Context, owner string, l *ledger.Ledger) error {
	if err := s.repo.ReplaceLedger(ctx, owner, l.Snapshot()); err != nil {
		return fmt.Errorf("persist ledger for %s: %w", owner, err)
	}

	s.revisions[owner]++
	if s.publisher != nil {
		if err := s.publisher.PublishSyncRequest(ctx, owner, s.revisions[owner]); err != nil {
			slog.ErrorContext(ctx, "Failed to publish sync request",
				"owner", owner, "error", err)
		}
	}
	return nil
}

// Insert validates and appends a record, persists the ledger and
// returns the inserted row with its balance.
func (s *LedgerService) Insert(ctx context.Context, owner string, rec core.Record) (ledger.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.open(ctx, owner)
	if err != nil {
		return ledger.Row{}, err
	}

	row, err := l.Insert(rec)
	if err != nil {
		return ledger.Row{}, err
	}
	if err := s.persist(ctx, owner, l); err != nil {
		return ledger.Row{}, err
	}
	return row, nil
}

// Update applies a partial update to one record.
func (s *LedgerService) Update(ctx context.Context, owner string, id int64, upd ledger.Update) (ledger.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.open(ctx, owner)
	if err != nil {
		return ledger.Row{}, err
	}

	row, err := l.Update(id, upd)
	if err != nil {
		return ledger.Row{}, err
	}
	if err := s.persist(ctx, owner, l); err != nil {
		return ledger.Row{}, err
	}
	return row, nil
}

// Delete removes one record by ID.
func (s *LedgerService) Delete(ctx context.Context, owner string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.open(ctx, owner)
	if err != nil {
		return err
	}

	if err := l.Delete(id); err != nil {
		return err
	}
	return s.persist(ctx, owner, l)
}

// Snapshot returns the owner's rows in ledger order with balances.
func (s *LedgerService) Snapshot(ctx context.Context, owner string) ([]ledger.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.open(ctx, owner)
	if err != nil {
		return nil, err
	}
	return l.Snapshot(), nil
}

// Totals returns the owner's overall income, expense and balance.
func (s *LedgerService) Totals(ctx context.Context, owner string) (report.Totals, error) {
	rows, err := s.Snapshot(ctx, owner)
	if err != nil {
		return report.Totals{}, err
	}
	return report.Summarize(rows), nil
}

// Series returns the owner's flows bucketed by the given granularity.
func (s *LedgerService) Series(ctx context.Context, owner string, g report.Granularity, dense bool) ([]report.Bucket, error) {
	rows, err := s.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	return report.ByPeriod(rows, g, dense)
}

// Categories returns expense totals per category, sentinel rows excluded.
func (s *LedgerService) Categories(ctx context.Context, owner string) (map[string]core.Money, error) {
	rows, err := s.Snapshot(ctx, owner)
	if err != nil {
		return nil, err
	}
	return report.ByCategory(rows), nil
}
