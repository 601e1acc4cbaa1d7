package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"clearbooks/internal/core"
	"clearbooks/internal/services"
	"clearbooks/internal/storage"
)

// Receipts arrive base64-encoded inside the JSON body, so the body cap
// sits above core.MaxReceiptBytes with room for encoding overhead.
const maxBodyBytes = 8 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode response",
			"url", r.URL.Path, "error", err)
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, r, status, errorResponse{Error: message})
}

// respondServiceError maps sentinel errors to HTTP statuses. Unknown
// errors become 500s and are logged; their details stay server side.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrConflict):
		respondError(w, r, http.StatusConflict, "resource is referenced by other records")
	case errors.Is(err, storage.ErrVATNumberTaken):
		respondError(w, r, http.StatusConflict, "VAT number already registered")
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrTimerAlreadyRunning),
		errors.Is(err, services.ErrEntryStillRunning):
		respondError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrReceiptTooLarge):
		respondError(w, r, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrVATNumberRequired),
		errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrNameTooLong),
		errors.Is(err, core.ErrDescriptionTooLong),
		errors.Is(err, core.ErrInvalidDocumentType),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrNoCustomer),
		errors.Is(err, core.ErrNoItems),
		errors.Is(err, core.ErrLastLineItem),
		errors.Is(err, core.ErrInvalidItemIndex),
		errors.Is(err, core.ErrReceiptNotImage):
		respondError(w, r, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"url", r.URL.Path, "error", err)
		respondError(w, r, http.StatusInternalServerError, "internal error")
	}
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}
