package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/UdinTarmiji/finance-data/internal/core"
	"github.com/UdinTarmiji/finance-data/internal/ledger"
	"github.com/UdinTarmiji/finance-data/internal/report"
)

// transactionPayload is the write-side JSON shape. Amounts travel as
// decimal strings so clients never deal in cents.
type transactionPayload struct {
	Date     *string `json:"date"`
	Income   *string `json:"income"`
	Expense  *string `json:"expense"`
	Category *string `json:"category"`
}

type transactionResponse struct {
	ID       int64  `json:"id"`
	Date     string `json:"date"`
	Income   string `json:"income"`
	Expense  string `json:"expense"`
	Category string `json:"category"`
	Balance  string `json:"balance"`
}

func toTransactionResponse(row ledger.Row) transactionResponse {
	return transactionResponse{
		ID:       row.ID,
		Date:     row.Date.Format(),
		Income:   row.Income.String(),
		Expense:  row.Expense.String(),
		Category: row.Category,
		Balance:  row.Balance.String(),
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rows, err := s.ledger.Snapshot(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]transactionResponse, len(rows))
	for i, row := range rows {
		out[i] = toTransactionResponse(row)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var payload transactionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, r, "invalid JSON body: %v", err)
		return
	}
	if payload.Date == nil {
		badRequest(w, r, "date is required")
		return
	}

	rec := core.Record{}
	rec.Date, err = core.ParseDate(*payload.Date)
	if err != nil {
		writeError(w, r, &core.ValidationError{Field: "date", Err: err})
		return
	}
	if payload.Income != nil {
		rec.Income, err = core.ParseAmount(*payload.Income)
		if err != nil {
			writeError(w, r, &core.ValidationError{Field: "income", Err: err})
			return
		}
	}
	if payload.Expense != nil {
		rec.Expense, err = core.ParseAmount(*payload.Expense)
		if err != nil {
			writeError(w, r, &core.ValidationError{Field: "expense", Err: err})
			return
		}
	}
	if payload.Category != nil {
		rec.Category = sanitizeInput(*payload.Category)
	}

	row, err := s.ledger.Insert(r.Context(), owner, rec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(row))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		badRequest(w, r, "invalid transaction id %q", r.PathValue("id"))
		return
	}

	var payload transactionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		badRequest(w, r, "invalid JSON body: %v", err)
		return
	}

	var upd ledger.Update
	if payload.Date != nil {
		date, err := core.ParseDate(*payload.Date)
		if err != nil {
			writeError(w, r, &core.ValidationError{Field: "date", Err: err})
			return
		}
		upd.Date = &date
	}
	if payload.Income != nil {
		income, err := core.ParseAmount(*payload.Income)
		if err != nil {
			writeError(w, r, &core.ValidationError{Field: "income", Err: err})
			return
		}
		upd.Income = &income
	}
	if payload.Expense != nil {
		expense, err := core.ParseAmount(*payload.Expense)
		if err != nil {
			writeError(w, r, &core.ValidationError{Field: "expense", Err: err})
			return
		}
		upd.Expense = &expense
	}
	if payload.Category != nil {
		category := sanitizeInput(*payload.Category)
		upd.Category = &category
	}

	row, err := s.ledger.Update(r.Context(), owner, id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(row))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		badRequest(w, r, "invalid transaction id %q", r.PathValue("id"))
		return
	}

	if err := s.ledger.Delete(r.Context(), owner, id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type summaryResponse struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Balance string `json:"balance"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	totals, err := s.ledger.Totals(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Income:  totals.Income.String(),
		Expense: totals.Expense.String(),
		Balance: totals.Balance.String(),
	})
}

type bucketResponse struct {
	Start   string `json:"start"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Balance string `json:"balance"`
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	granularity := r.URL.Query().Get("granularity")
	if granularity == "" {
		granularity = string(report.Monthly)
	}
	g, err := report.ParseGranularity(granularity)
	if err != nil {
		writeError(w, r, &core.ValidationError{Field: "granularity", Err: err})
		return
	}

	dense := false
	if v := r.URL.Query().Get("dense"); v != "" {
		dense, err = strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, &core.ValidationError{Field: "dense", Err: errors.New("dense must be a boolean")})
			return
		}
	}

	buckets, err := s.ledger.Series(r.Context(), owner, g, dense)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]bucketResponse, len(buckets))
	for i, b := range buckets {
		out[i] = bucketResponse{
			Start:   b.Start.Format("2006-01-02"),
			Income:  b.Income.String(),
			Expense: b.Expense.String(),
			Balance: b.Balance.String(),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type categoryResponse struct {
	Category string `json:"category"`
	Expense  string `json:"expense"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	totals, err := s.ledger.Categories(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]categoryResponse, 0, len(totals))
	for category, amount := range totals {
		out = append(out, categoryResponse{Category: category, Expense: amount.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	writeJSON(w, http.StatusOK, out)
}
