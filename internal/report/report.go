// Package report derives read-only summary views from a ledger snapshot.
// Every function here is pure: the snapshot is never mutated, and calling
// the same function twice on the same snapshot yields identical results.
package report

import (
	"fmt"
	"time"

	"github.com/UdinTarmiji/finance-data/internal/core"
	"github.com/UdinTarmiji/finance-data/internal/ledger"
)

// Granularity selects the calendar bucket size for period series.
type Granularity string

const (
	Daily   Granularity = "day"
	Weekly  Granularity = "week"
	Monthly Granularity = "month"
	Yearly  Granularity = "year"
)

func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case Daily, Weekly, Monthly, Yearly:
		return Granularity(s), nil
	}
	return "", fmt.Errorf("unknown granularity %q", s)
}

// Totals are the plain sums over a full snapshot.
type Totals struct {
	Income  core.Money
	Expense core.Money
	Balance core.Money
}

// Bucket is one calendar period with its flow sums and the cumulative
// balance across all buckets up to and including it.
type Bucket struct {
	Start   time.Time
	Income  core.Money
	Expense core.Money
	Balance core.Money
}

// Summarize returns total income, total expense and their difference.
func Summarize(rows []ledger.Row) Totals {
	var t Totals
	for _, r := range rows {
		t.Income = t.Income.Add(r.Income)
		t.Expense = t.Expense.Add(r.Expense)
	}
	t.Balance = t.Income.Sub(t.Expense)
	return t
}

// ByCategory sums expenses per category over records with a positive
// expense. The returned map carries no ordering; presentation decides how
// to sort it.
func ByCategory(rows []ledger.Row) map[string]core.Money {
	out := make(map[string]core.Money)
	for _, r := range rows {
		if r.Expense.IsZero() {
			continue
		}
		out[r.Category] = out[r.Category].Add(r.Expense)
	}
	return out
}

// ByPeriod buckets the snapshot into calendar periods and recomputes a
// bucket-level cumulative balance as the prefix sum of bucket flows in
// chronological order. With dense set, periods between the first and last
// bucket that saw no transactions are zero-filled so charts keep
// continuity; sparse mode omits them. The balance is cumulative over
// flows, never a cumulative sum of already-cumulative values.
func ByPeriod(rows []ledger.Row, g Granularity, dense bool) ([]Bucket, error) {
	if _, err := ParseGranularity(string(g)); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	sums := make(map[time.Time]*Bucket)
	var starts []time.Time
	for _, r := range rows {
		start := BucketStart(r.Date.Time, g)
		b, ok := sums[start]
		if !ok {
			b = &Bucket{Start: start}
			sums[start] = b
			starts = append(starts, start)
		}
		b.Income = b.Income.Add(r.Income)
		b.Expense = b.Expense.Add(r.Expense)
	}

	// The snapshot is timestamp-sorted, so first-seen order of bucket
	// starts is already chronological.
	var out []Bucket
	if dense {
		for cur := starts[0]; !cur.After(starts[len(starts)-1]); cur = nextStart(cur, g) {
			if b, ok := sums[cur]; ok {
				out = append(out, *b)
			} else {
				out = append(out, Bucket{Start: cur})
			}
		}
	} else {
		for _, start := range starts {
			out = append(out, *sums[start])
		}
	}

	var running core.Money
	for i := range out {
		running = running.Add(out[i].Income).Sub(out[i].Expense)
		out[i].Balance = running
	}
	return out, nil
}

// BucketStart maps a timestamp to the start of its calendar period:
// midnight for days, the ISO week's Monday, the first of the month, or
// January 1st.
func BucketStart(t time.Time, g Granularity) time.Time {
	y, m, d := t.Date()
	switch g {
	case Weekly:
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -offset)
	case Monthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case Yearly:
		return time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}

func nextStart(t time.Time, g Granularity) time.Time {
	switch g {
	case Weekly:
		return t.AddDate(0, 0, 7)
	case Monthly:
		return t.AddDate(0, 1, 0)
	case Yearly:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}
