package http

import (
	"net/http"

	"clearbooks/internal/core"
)

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := s.customers.List(r.Context(), currentUserID(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if customers == nil {
		customers = []core.Customer{}
	}
	respondJSON(w, r, http.StatusOK, customers)
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var c core.Customer
	if err := decodeJSON(w, r, &c); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.customers.Create(r.Context(), currentUserID(r), c)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, created)
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	customer, err := s.customers.Get(r.Context(), currentUserID(r), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, customer)
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var c core.Customer
	if err := decodeJSON(w, r, &c); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	c.ID = id

	updated, err := s.customers.Update(r.Context(), currentUserID(r), c)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, updated)
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.customers.Delete(r.Context(), currentUserID(r), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusNoContent, nil)
}
