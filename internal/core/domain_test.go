package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in   string
		ok   bool
		want Date
	}{
		{"2024-01-05", true, NewDate(2024, 1, 5)},
		{" 2024-12-31 ", true, NewDate(2024, 12, 31)},
		{"2024-01-05T10:30:00Z", true, Date{Time: time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC)}},
		{"not-a-date", false, Date{}},
		{"2024-13-01", false, Date{}},
		{"", false, Date{}},
	}
	for i, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("case %d expected error", i)
			}
			if !errors.Is(err, ErrInvalidDate) {
				t.Fatalf("case %d expected ErrInvalidDate, got %v", i, err)
			}
			continue
		}
		if !got.Equal(tc.want.Time) {
			t.Fatalf("case %d got %v want %v", i, got, tc.want)
		}
	}
}

func TestRecordValidate(t *testing.T) {
	good := []Record{
		{Date: NewDate(2024, 1, 1), Income: Money{Cents: 100000}, Category: SentinelCategory},
		{Date: NewDate(2024, 1, 2), Expense: Money{Cents: 40000}, Category: "Food"},
		{Date: NewDate(2024, 1, 3), Income: Money{Cents: 100}, Expense: Money{Cents: 100}, Category: "Misc"},
	}
	for i, r := range good {
		if err := r.Validate(); err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
	}

	bad := []Record{
		{Income: Money{Cents: 1}, Category: SentinelCategory},                                // zero date
		{Date: NewDate(2024, 1, 1), Income: Money{Cents: -1}, Category: SentinelCategory},    // negative income
		{Date: NewDate(2024, 1, 1), Expense: Money{Cents: -1}, Category: "Food"},             // negative expense
		{Date: NewDate(2024, 1, 1), Expense: Money{Cents: 100}, Category: SentinelCategory},  // expense with sentinel
		{Date: NewDate(2024, 1, 1), Expense: Money{Cents: 100}, Category: ""},                // expense without category
		{Date: NewDate(2024, 1, 1), Income: Money{Cents: 100}, Category: "Food"},             // sentinel required
	}
	for i, r := range bad {
		err := r.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("case %d expected ValidationError, got %T", i, err)
		}
	}
}

func TestRecordNormalize(t *testing.T) {
	cases := []struct {
		in   Record
		want string
	}{
		{Record{Expense: Money{}, Category: "Food"}, SentinelCategory},
		{Record{Expense: Money{Cents: 100}, Category: ""}, DefaultCategory},
		{Record{Expense: Money{Cents: 100}, Category: SentinelCategory}, DefaultCategory},
		{Record{Expense: Money{Cents: 100}, Category: " Food "}, "Food"},
		{Record{Income: Money{Cents: 100}, Category: "whatever"}, SentinelCategory},
	}
	for i, tc := range cases {
		if got := tc.in.Normalize().Category; got != tc.want {
			t.Fatalf("case %d got %q want %q", i, got, tc.want)
		}
	}
}

func TestNotFoundError(t *testing.T) {
	var err error = &NotFoundError{ID: 7}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.ID != 7 {
		t.Fatalf("expected NotFoundError with ID 7, got %v", err)
	}
}
