package http

import (
	"errors"
	"net/http"

	"clearbooks/internal/core"
	"clearbooks/internal/storage"
)

type startTimerRequest struct {
	Description string `json:"description"`
}

func (s *Server) handleListTimeEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.timer.List(r.Context(), currentUserID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []core.TimeEntry{}
	}
	respondJSON(w, r, http.StatusOK, entries)
}

// handleRunningTimer reports the open entry, or {"running": false}
// when the timer is idle.
func (s *Server) handleRunningTimer(w http.ResponseWriter, r *http.Request) {
	entry, err := s.timer.Running(r.Context(), currentUserID(r))
	if errors.Is(err, storage.ErrNotFound) {
		respondJSON(w, r, http.StatusOK, map[string]bool{"running": false})
		return
	}
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, entry)
}

func (s *Server) handleStartTimer(w http.ResponseWriter, r *http.Request) {
	var req startTimerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := s.timer.Start(r.Context(), currentUserID(r), req.Description)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, entry)
}

func (s *Server) handleStopTimer(w http.ResponseWriter, r *http.Request) {
	entry, err := s.timer.Stop(r.Context(), currentUserID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, entry)
}

func (s *Server) handleTimerTotal(w http.ResponseWriter, r *http.Request) {
	hours, err := s.timer.TotalHours(r.Context(), currentUserID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]float64{"totalHours": hours})
}

func (s *Server) handleDeleteTimeEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.timer.Delete(r.Context(), currentUserID(r), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusNoContent, nil)
}
