package services

import (
	"context"
	"fmt"
	"log/slog"

	"clearbooks/internal/amqp"
	"clearbooks/internal/core"
	"clearbooks/internal/storage"
)

// DocumentService orchestrates invoices and estimates. Totals are
// always recomputed here; client-supplied amounts are ignored.
type DocumentService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewDocumentService(repo *storage.SQLiteRepository, amqpClient *amqp.Client) *DocumentService {
	return &DocumentService{
		storage:    repo,
		amqpClient: amqpClient,
	}
}

// Create stores a document, assigning the next number when the client
// left it blank, and queues it for ledger export.
func (s *DocumentService) Create(ctx context.Context, userID int64, d core.Document) (core.Document, error) {
	for i := range d.Items {
		core.RecomputeLineAmount(&d.Items[i])
	}
	d.Recompute()
	if err := d.Validate(); err != nil {
		return core.Document{}, err
	}

	if d.Number == "" {
		number, err := s.storage.NextDocumentNumber(ctx, userID, d.Type)
		if err != nil {
			return core.Document{}, fmt.Errorf("next document number: %w", err)
		}
		d.Number = number
	}

	id, err := s.storage.CreateDocument(ctx, userID, d)
	if err != nil {
		return core.Document{}, fmt.Errorf("save document: %w", err)
	}
	d.ID = id

	s.publishExport(ctx, exportKind(d.Type), id, 1)
	return d, nil
}

func (s *DocumentService) Get(ctx context.Context, userID, id int64, docType core.DocumentType) (core.Document, error) {
	return s.storage.GetDocument(ctx, userID, id, docType)
}

func (s *DocumentService) List(ctx context.Context, userID int64, docType core.DocumentType) ([]core.Document, error) {
	return s.storage.ListDocuments(ctx, userID, docType)
}

// Update replaces the document and its line items, recomputing totals.
func (s *DocumentService) Update(ctx context.Context, userID int64, d core.Document) (core.Document, error) {
	for i := range d.Items {
		core.RecomputeLineAmount(&d.Items[i])
	}
	d.Recompute()
	if err := d.Validate(); err != nil {
		return core.Document{}, err
	}

	if err := s.storage.UpdateDocument(ctx, userID, d); err != nil {
		return core.Document{}, err
	}

	// Re-read for the bumped version so the export message is current.
	updated, err := s.storage.GetDocument(ctx, userID, d.ID, d.Type)
	if err != nil {
		return core.Document{}, err
	}
	s.publishPending(ctx, exportKind(d.Type), d.ID)
	return updated, nil
}

func (s *DocumentService) Delete(ctx context.Context, userID, id int64, docType core.DocumentType) error {
	return s.storage.DeleteDocument(ctx, userID, id, docType)
}

// TogglePaid flips an invoice between paid and unpaid.
func (s *DocumentService) TogglePaid(ctx context.Context, userID, id int64) (bool, error) {
	paid, err := s.storage.ToggleInvoicePaid(ctx, userID, id)
	if err != nil {
		return false, err
	}
	s.publishPending(ctx, amqp.KindInvoice, id)
	return paid, nil
}

// ConvertToInvoice creates an invoice with the estimate's customer,
// items and tax rate under a fresh number, then marks the estimate
// accepted.
func (s *DocumentService) ConvertToInvoice(ctx context.Context, userID, estimateID int64) (core.Document, error) {
	estimate, err := s.storage.GetDocument(ctx, userID, estimateID, core.Estimate)
	if err != nil {
		return core.Document{}, err
	}

	invoice := core.Document{
		Type:       core.Invoice,
		CustomerID: estimate.CustomerID,
		IssueDate:  estimate.IssueDate,
		DueDate:    estimate.DueDate,
		Notes:      estimate.Notes,
		Items:      estimate.Items,
		TaxRate:    estimate.TaxRate,
	}
	// Invoice first: a failed create must leave the estimate untouched.
	created, err := s.Create(ctx, userID, invoice)
	if err != nil {
		return core.Document{}, fmt.Errorf("create invoice from estimate: %w", err)
	}

	if err := s.storage.MarkEstimateAccepted(ctx, userID, estimateID); err != nil {
		return core.Document{}, err
	}

	slog.InfoContext(ctx, "Converted estimate to invoice",
		"estimate", estimate.Number, "invoice", created.Number)
	return created, nil
}

func exportKind(t core.DocumentType) string {
	if t == core.Estimate {
		return amqp.KindEstimate
	}
	return amqp.KindInvoice
}

// publishPending reads the bumped version back and publishes it. Used
// after updates where the version was incremented in SQL.
func (s *DocumentService) publishPending(ctx context.Context, kind string, id int64) {
	if s.amqpClient == nil {
		return
	}
	version, err := s.storage.DocumentVersion(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read document version",
			"id", id, "error", err)
		return
	}
	s.publishExport(ctx, kind, id, version)
}

func (s *DocumentService) publishExport(ctx context.Context, kind string, id, version int64) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping export message")
		return
	}
	// The sweep picks the row up later if publishing fails.
	if err := s.amqpClient.PublishRecordExport(ctx, kind, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish export message",
			"kind", kind, "id", id, "error", err)
	}
}
