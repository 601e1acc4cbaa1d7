package http

import (
	"fmt"
	"net/http"
	"strconv"

	"clearbooks/internal/core"
	"clearbooks/internal/pdf"
)

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	s.listDocuments(w, r, core.Invoice)
}

func (s *Server) handleCreateInvoice(w http.ResponseWriter, r *http.Request) {
	s.createDocument(w, r, core.Invoice)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	s.getDocument(w, r, core.Invoice)
}

func (s *Server) handleUpdateInvoice(w http.ResponseWriter, r *http.Request) {
	s.updateDocument(w, r, core.Invoice)
}

func (s *Server) handleDeleteInvoice(w http.ResponseWriter, r *http.Request) {
	s.deleteDocument(w, r, core.Invoice)
}

func (s *Server) handleInvoicePDF(w http.ResponseWriter, r *http.Request) {
	s.documentPDF(w, r, core.Invoice)
}

func (s *Server) handleListEstimates(w http.ResponseWriter, r *http.Request) {
	s.listDocuments(w, r, core.Estimate)
}

func (s *Server) handleCreateEstimate(w http.ResponseWriter, r *http.Request) {
	s.createDocument(w, r, core.Estimate)
}

func (s *Server) handleGetEstimate(w http.ResponseWriter, r *http.Request) {
	s.getDocument(w, r, core.Estimate)
}

func (s *Server) handleUpdateEstimate(w http.ResponseWriter, r *http.Request) {
	s.updateDocument(w, r, core.Estimate)
}

func (s *Server) handleDeleteEstimate(w http.ResponseWriter, r *http.Request) {
	s.deleteDocument(w, r, core.Estimate)
}

func (s *Server) handleEstimatePDF(w http.ResponseWriter, r *http.Request) {
	s.documentPDF(w, r, core.Estimate)
}

func (s *Server) handleToggleInvoicePaid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	paid, err := s.documents.TogglePaid(r.Context(), currentUserID(r), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]bool{"paid": paid})
}

func (s *Server) handleConvertEstimate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	invoice, err := s.documents.ConvertToInvoice(r.Context(), currentUserID(r), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, invoice)
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request, docType core.DocumentType) {
	docs, err := s.documents.List(r.Context(), currentUserID(r), docType)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if docs == nil {
		docs = []core.Document{}
	}
	respondJSON(w, r, http.StatusOK, docs)
}

func (s *Server) createDocument(w http.ResponseWriter, r *http.Request, docType core.DocumentType) {
	var d core.Document
	if err := decodeJSON(w, r, &d); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	d.Type = docType

	created, err := s.documents.Create(r.Context(), currentUserID(r), d)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, created)
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request, docType core.DocumentType) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := s.documents.Get(r.Context(), currentUserID(r), id, docType)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, doc)
}

func (s *Server) updateDocument(w http.ResponseWriter, r *http.Request, docType core.DocumentType) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var d core.Document
	if err := decodeJSON(w, r, &d); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	d.ID = id
	d.Type = docType

	updated, err := s.documents.Update(r.Context(), currentUserID(r), d)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, updated)
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request, docType core.DocumentType) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.documents.Delete(r.Context(), currentUserID(r), id, docType); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) documentPDF(w http.ResponseWriter, r *http.Request, docType core.DocumentType) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	userID := currentUserID(r)

	doc, err := s.documents.Get(r.Context(), userID, id, docType)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	customer, err := s.customers.Get(r.Context(), userID, doc.CustomerID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	company, err := s.auth.GetProfile(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out, err := pdf.NewRenderer(company).Render(doc, customer)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", doc.Number))
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	_, _ = w.Write(out)
}
