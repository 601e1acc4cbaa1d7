package http

import (
	"net/http"

	"clearbooks/internal/core"
)

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.auth.GetProfile(r.Context(), currentUserID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, user)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var u core.User
	if err := decodeJSON(w, r, &u); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	u.ID = currentUserID(r)

	updated, err := s.auth.UpdateProfile(r.Context(), u)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.auth.ChangePassword(r.Context(), currentUserID(r), req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusNoContent, nil)
}
