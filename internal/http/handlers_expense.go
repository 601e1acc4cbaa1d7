package http

import (
	"net/http"
	"time"

	"clearbooks/internal/core"
)

const rangeDateLayout = "2006-01-02"

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.expenses.List(r.Context(), currentUserID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	respondJSON(w, r, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var e core.Expense
	if err := decodeJSON(w, r, &e); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.expenses.Create(r.Context(), currentUserID(r), e)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	expense, err := s.expenses.Get(r.Context(), currentUserID(r), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, expense)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var e core.Expense
	if err := decodeJSON(w, r, &e); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	e.ID = id

	updated, err := s.expenses.Update(r.Context(), currentUserID(r), e)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.expenses.Delete(r.Context(), currentUserID(r), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) handleExpensesTotal(w http.ResponseWriter, r *http.Request) {
	total, err := s.expenses.Total(r.Context(), currentUserID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]float64{"total": total})
}

func (s *Server) handleExpensesByRange(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	expenses, err := s.expenses.ListByRange(r.Context(), currentUserID(r), from, to)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	respondJSON(w, r, http.StatusOK, expenses)
}

func (s *Server) handleExpensesRangeTotal(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRange(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	total, err := s.expenses.TotalByRange(r.Context(), currentUserID(r), from, to)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]float64{"total": total})
}

// parseRange reads start and end query parameters as YYYY-MM-DD dates.
// The end date is inclusive through its last nanosecond.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	from, err := time.Parse(rangeDateLayout, r.URL.Query().Get("start"))
	if err != nil {
		return time.Time{}, time.Time{}, core.ErrInvalidDate
	}
	to, err := time.Parse(rangeDateLayout, r.URL.Query().Get("end"))
	if err != nil {
		return time.Time{}, time.Time{}, core.ErrInvalidDate
	}
	to = to.Add(24*time.Hour - time.Nanosecond)
	return from, to, nil
}
