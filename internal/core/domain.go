package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// SentinelCategory labels records that carry no expense. Exactly this
	// value means "not an expense"; every record with a positive expense
	// must carry a real category instead.
	SentinelCategory = "-"

	// DefaultCategory is assigned when an expense record omits a category.
	DefaultCategory = "General"
)

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Record is one ledger entry: a dated income and/or expense amount
	// with an expense category. The ledger assigns IDs at insertion.
	Record struct {
		ID       int64
		Date     Date
		Income   Money
		Expense  Money
		Category string
	}
)

var (
	ErrInvalidDate    = errors.New("invalid date")
	ErrNegativeAmount = errors.New("negative amount")
	ErrInvalidAmount  = errors.New("invalid amount")
)

// NotFoundError reports a mutation against an ID the ledger does not hold.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("transaction %d not found", e.ID)
}

// ValidationError wraps the reason a record was rejected at the boundary.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts an ISO-8601 date or date-time string.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// Format renders the date portion only, the form persisted tables use.
func (d Date) Format() string {
	return d.Time.Format("2006-01-02")
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (m Money) IsZero() bool { return m.Cents == 0 }

func (m Money) Add(n Money) Money { return Money{Cents: m.Cents + n.Cents} }

func (m Money) Sub(n Money) Money { return Money{Cents: m.Cents - n.Cents} }

// Validate checks the record invariants: a valid date, non-negative
// amounts, and the category sentinel rule (sentinel iff expense is zero).
func (r Record) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	if err := r.Income.Validate(); err != nil {
		return &ValidationError{Field: "income", Err: err}
	}
	if err := r.Expense.Validate(); err != nil {
		return &ValidationError{Field: "expense", Err: err}
	}
	if r.Expense.IsZero() && r.Category != SentinelCategory {
		return &ValidationError{Field: "category", Err: errors.New("category must be the sentinel when expense is zero")}
	}
	if !r.Expense.IsZero() && (r.Category == "" || r.Category == SentinelCategory) {
		return &ValidationError{Field: "category", Err: errors.New("expense records need a category")}
	}
	return nil
}

// Normalize applies the category rules a caller may leave implicit:
// no expense forces the sentinel, an expense without a category gets the
// default. Returns the normalized copy.
func (r Record) Normalize() Record {
	r.Category = strings.TrimSpace(r.Category)
	if r.Expense.IsZero() {
		r.Category = SentinelCategory
	} else if r.Category == "" || r.Category == SentinelCategory {
		r.Category = DefaultCategory
	}
	return r
}
