package services

import (
	"context"
	"errors"
	"testing"

	"github.com/UdinTarmiji/finance-data/internal/core"
	"github.com/UdinTarmiji/finance-data/internal/ledger"
	"github.com/UdinTarmiji/finance-data/internal/report"
)

type fakeRepo struct {
	records map[string][]core.Record
	saves   int
	failPut bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string][]core.Record)}
}

func (f *fakeRepo) ReplaceLedger(_ context.Context, owner string, rows []ledger.Row) error {
	if f.failPut {
		return errors.New("disk full")
	}
	records := make([]core.Record, len(rows))
	for i, row := range rows {
		records[i] = row.Record
	}
	f.records[owner] = records
	f.saves++
	return nil
}

func (f *fakeRepo) ListRecords(_ context.Context, owner string) ([]core.Record, error) {
	return f.records[owner], nil
}

type fakePublisher struct {
	published []string
	fail      bool
}

func (f *fakePublisher) PublishSyncRequest(_ context.Context, owner string, _ int64) error {
	if f.fail {
		return errors.New("broker unreachable")
	}
	f.published = append(f.published, owner)
	return nil
}

type fakeLoader struct {
	records []core.Record
	err     error
	calls   int
}

func (f *fakeLoader) Load(_ context.Context, _ string) ([]core.Record, string, error) {
	f.calls++
	return f.records, "v1", f.err
}

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func TestInsertPersistsAndPublishes(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{}
	svc := NewLedgerService(repo, pub, nil)
	ctx := context.Background()

	row, err := svc.Insert(ctx, "alice", core.Record{
		Date:   mustDate(t, "2024-03-01"),
		Income: core.Money{Cents: 10000},
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if row.ID != 1 {
		t.Errorf("row ID = %d, want 1", row.ID)
	}
	if row.Category != core.SentinelCategory {
		t.Errorf("category = %q, want sentinel", row.Category)
	}
	if row.Balance.Cents != 10000 {
		t.Errorf("balance = %d, want 10000", row.Balance.Cents)
	}

	if len(repo.records["alice"]) != 1 {
		t.Error("record not persisted")
	}
	if len(pub.published) != 1 || pub.published[0] != "alice" {
		t.Errorf("published = %v, want [alice]", pub.published)
	}
}

func TestInsertInvalidRecordDoesNotPersist(t *testing.T) {
	repo := newFakeRepo()
	svc := NewLedgerService(repo, nil, nil)

	_, err := svc.Insert(context.Background(), "alice", core.Record{
		Date:    mustDate(t, "2024-03-01"),
		Expense: core.Money{Cents: -100},
	})
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if repo.saves != 0 {
		t.Error("invalid insert must not reach the repository")
	}
}

func TestPublishFailureDoesNotFailTheWrite(t *testing.T) {
	repo := newFakeRepo()
	pub := &fakePublisher{fail: true}
	svc := NewLedgerService(repo, pub, nil)

	_, err := svc.Insert(context.Background(), "alice", core.Record{
		Date:   mustDate(t, "2024-03-01"),
		Income: core.Money{Cents: 100},
	})
	if err != nil {
		t.Fatalf("Insert should survive publish failure: %v", err)
	}
	if len(repo.records["alice"]) != 1 {
		t.Error("record not persisted")
	}
}

func TestUpdateNonexistentRecord(t *testing.T) {
	svc := NewLedgerService(newFakeRepo(), nil, nil)

	income := core.Money{Cents: 500}
	_, err := svc.Update(context.Background(), "alice", 42, ledger.Update{Income: &income})
	var nf *core.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.ID != 42 {
		t.Errorf("NotFoundError.ID = %d, want 42", nf.ID)
	}
}

func TestOpenSeedsFromRemoteWhenLocalEmpty(t *testing.T) {
	repo := newFakeRepo()
	loader := &fakeLoader{records: []core.Record{
		{Date: mustDate(t, "2024-01-01"), Income: core.Money{Cents: 20000}, Category: core.SentinelCategory},
		{Date: mustDate(t, "2024-01-02"), Expense: core.Money{Cents: 5000}, Category: "Food"},
	}}
	svc := NewLedgerService(repo, nil, loader)

	rows, err := svc.Snapshot(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if loader.calls != 1 {
		t.Errorf("loader calls = %d, want 1", loader.calls)
	}
	if len(repo.records["alice"]) != 2 {
		t.Error("remote seed must be written through to the repository")
	}

	// Second access must use the cached ledger, not the remote store.
	if _, err := svc.Snapshot(context.Background(), "alice"); err != nil {
		t.Fatalf("Snapshot (cached): %v", err)
	}
	if loader.calls != 1 {
		t.Errorf("loader calls after cache hit = %d, want 1", loader.calls)
	}
}

func TestOpenSurvivesRemoteFailure(t *testing.T) {
	loader := &fakeLoader{err: errors.New("remote down")}
	svc := NewLedgerService(newFakeRepo(), nil, loader)

	rows, err := svc.Snapshot(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Snapshot should start empty when the remote fails: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty ledger, got %d rows", len(rows))
	}
}

func TestTotalsAndSeries(t *testing.T) {
	svc := NewLedgerService(newFakeRepo(), nil, nil)
	ctx := context.Background()

	inserts := []core.Record{
		{Date: mustDate(t, "2024-01-10"), Income: core.Money{Cents: 20000}},
		{Date: mustDate(t, "2024-01-20"), Expense: core.Money{Cents: 5000}, Category: "Food"},
		{Date: mustDate(t, "2024-02-05"), Income: core.Money{Cents: 30000}},
	}
	for _, rec := range inserts {
		if _, err := svc.Insert(ctx, "alice", rec); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	totals, err := svc.Totals(ctx, "alice")
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if totals.Income.Cents != 50000 || totals.Expense.Cents != 5000 || totals.Balance.Cents != 45000 {
		t.Errorf("unexpected totals: %+v", totals)
	}

	buckets, err := svc.Series(ctx, "alice", report.Monthly, false)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("got %d buckets, want 2", len(buckets))
	}
	if buckets[0].Income.Cents != 20000 || buckets[0].Expense.Cents != 5000 {
		t.Errorf("unexpected January bucket: %+v", buckets[0])
	}
	if buckets[1].Balance.Cents != 45000 {
		t.Errorf("February running balance = %d, want 45000", buckets[1].Balance.Cents)
	}

	cats, err := svc.Categories(ctx, "alice")
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if cats["Food"].Cents != 5000 {
		t.Errorf("Food total = %d, want 5000", cats["Food"].Cents)
	}
	if _, ok := cats[core.SentinelCategory]; ok {
		t.Error("sentinel category must not appear in expense breakdown")
	}
}
