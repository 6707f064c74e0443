// Package ledger holds the authoritative, time-ordered transaction log
// for one owner and keeps the derived running balance consistent after
// every mutation.
package ledger

import (
	"sort"

	"github.com/UdinTarmiji/finance-data/internal/core"
)

// Row is one snapshot entry: a record plus its running balance at that
// position in the timestamp-sorted sequence.
type Row struct {
	core.Record
	Balance core.Money
}

// Update carries the fields an update overwrites; nil fields keep the
// record's current value.
type Update struct {
	Date     *core.Date
	Income   *core.Money
	Expense  *core.Money
	Category *string
}

// Ledger is the in-memory store. It is not safe for concurrent use; the
// owning service serializes access per session.
type Ledger struct {
	records  []core.Record
	balances []core.Money
	nextID   int64
}

func New() *Ledger {
	return &Ledger{nextID: 1}
}

// Load replaces the store's contents with parsed external rows. Records
// are normalized, assigned fresh IDs in input order, sorted by date, and
// the balance column is recomputed. Rows with zero dates must already be
// filtered out by the table codec; any that slip through are dropped and
// counted in the return value.
func (l *Ledger) Load(records []core.Record) int {
	l.records = l.records[:0]
	l.nextID = 1
	dropped := 0
	for _, r := range records {
		if r.Date.IsZero() {
			dropped++
			continue
		}
		r = r.Normalize()
		if r.Income.Cents < 0 {
			r.Income = core.Money{}
		}
		if r.Expense.Cents < 0 {
			r.Expense = core.Money{}
		}
		r = r.Normalize()
		r.ID = l.nextID
		l.nextID++
		l.records = append(l.records, r)
	}
	l.recompute()
	return dropped
}

// Insert validates the record, assigns a fresh ID and re-derives order
// and balances. The stored row is returned with its running balance.
func (l *Ledger) Insert(r core.Record) (Row, error) {
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		return Row{}, err
	}
	r.ID = l.nextID
	l.nextID++
	l.records = append(l.records, r)
	l.recompute()
	return l.row(r.ID), nil
}

// Update overwrites the supplied fields of the identified record,
// re-validates, and re-derives order and balances. The store is left
// untouched when validation fails.
func (l *Ledger) Update(id int64, upd Update) (Row, error) {
	idx := l.index(id)
	if idx < 0 {
		return Row{}, &core.NotFoundError{ID: id}
	}
	r := l.records[idx]
	if upd.Date != nil {
		r.Date = *upd.Date
	}
	if upd.Income != nil {
		r.Income = *upd.Income
	}
	if upd.Expense != nil {
		r.Expense = *upd.Expense
	}
	if upd.Category != nil {
		r.Category = *upd.Category
	}
	r = r.Normalize()
	if err := r.Validate(); err != nil {
		return Row{}, err
	}
	l.records[idx] = r
	l.recompute()
	return l.row(id), nil
}

// Delete removes the identified record and recomputes balances over the
// remainder. The deleted ID is never reassigned.
func (l *Ledger) Delete(id int64) error {
	idx := l.index(id)
	if idx < 0 {
		return &core.NotFoundError{ID: id}
	}
	l.records = append(l.records[:idx], l.records[idx+1:]...)
	l.recompute()
	return nil
}

// Snapshot returns an ordered copy of all records with running balances.
func (l *Ledger) Snapshot() []Row {
	rows := make([]Row, len(l.records))
	for i, r := range l.records {
		rows[i] = Row{Record: r, Balance: l.balances[i]}
	}
	return rows
}

func (l *Ledger) Len() int { return len(l.records) }

func (l *Ledger) index(id int64) int {
	for i, r := range l.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) row(id int64) Row {
	i := l.index(id)
	return Row{Record: l.records[i], Balance: l.balances[i]}
}

// recompute re-sorts by date (ties broken by ID, which is insertion
// order) and rebuilds the balance column as a prefix sum. A full O(n)
// rescan per mutation is deliberate: personal ledgers stay small enough
// that an incremental structure would buy nothing.
func (l *Ledger) recompute() {
	sort.SliceStable(l.records, func(i, j int) bool {
		a, b := l.records[i], l.records[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.Before(b.Date.Time)
		}
		return a.ID < b.ID
	})
	l.balances = l.balances[:0]
	var running core.Money
	for _, r := range l.records {
		running = running.Add(r.Income).Sub(r.Expense)
		l.balances = append(l.balances, running)
	}
}
