package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"ledgerbot/internal/core"
	"ledgerbot/internal/log"
)

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

type categoryResponse struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

type categoryTotal struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

type expenseResponse struct {
	ID          int64           `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description *string         `json:"description"`
	Time        time.Time       `json:"time"`
}

type monthResponse struct {
	Year         int               `json:"year"`
	Month        int               `json:"month"`
	MonthName    string            `json:"month_name"`
	TotalSpent   decimal.Decimal   `json:"total_spent"`
	TotalIncome  decimal.Decimal   `json:"total_income"`
	StartBalance decimal.Decimal   `json:"start_balance"`
	EndBalance   decimal.Decimal   `json:"end_balance"`
	Difference   decimal.Decimal   `json:"difference"`
	Percentage   *decimal.Decimal  `json:"percentage"`
	Categories   []categoryTotal   `json:"categories"`
	Biggest      []expenseResponse `json:"biggest"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once the store answers a read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ledger.Balance(r.Context()); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.ledger.Balance(r.Context())
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.ledger.Categories(r.Context())
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		aliases := c.Aliases
		if aliases == nil {
			aliases = []string{}
		}
		out = append(out, categoryResponse{Name: c.Name, Aliases: aliases})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil || year < 1 || year > 9999 {
		writeError(w, http.StatusBadRequest, "invalid year")
		return
	}
	month, ok := parseMonthParam(r.PathValue("month"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}

	stats, err := s.ledger.MonthStatistics(r.Context(), year, month)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newMonthResponse(stats))
}

// parseMonthParam accepts a month number or a month name.
func parseMonthParam(v string) (time.Month, bool) {
	if n, err := strconv.Atoi(v); err == nil {
		if n < 1 || n > 12 {
			return 0, false
		}
		return time.Month(n), true
	}
	return core.MonthFromName(v)
}

func newMonthResponse(s core.MonthStatistics) monthResponse {
	resp := monthResponse{
		Year:         s.Year,
		Month:        int(s.Month),
		MonthName:    core.MonthName(s.Month),
		TotalSpent:   s.TotalSpent,
		TotalIncome:  s.TotalIncome,
		StartBalance: s.StartBalance,
		EndBalance:   s.EndBalance,
		Difference:   s.Difference(),
		Categories:   make([]categoryTotal, 0, len(s.Totals)),
		Biggest:      make([]expenseResponse, 0, len(s.Biggest)),
	}
	if pct, ok := s.Percentage(); ok {
		pct = pct.Round(2)
		resp.Percentage = &pct
	}
	for _, t := range s.Totals {
		resp.Categories = append(resp.Categories, categoryTotal{Name: t.Name, Amount: t.Amount})
	}
	for _, e := range s.Biggest {
		resp.Biggest = append(resp.Biggest, expenseResponse{
			ID:          e.ID,
			Amount:      e.Amount,
			Category:    e.Category,
			Description: e.Description,
			Time:        e.Time,
		})
	}
	return resp
}

func (s *Server) writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	var parseErr *core.ParseError
	if errors.As(err, &parseErr) {
		writeError(w, http.StatusBadRequest, parseErr.Error())
		return
	}
	s.logger.ErrorContext(r.Context(), "Ledger read failed", log.FieldPath, r.URL.Path, log.FieldError, err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
