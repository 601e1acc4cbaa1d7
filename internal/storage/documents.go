package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clearbooks/internal/core"
)

// PendingRecord identifies a row waiting for ledger export.
type PendingRecord struct {
	ID      int64
	Version int64
}

func (r *SQLiteRepository) CreateDocument(ctx context.Context, userID int64, d core.Document) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var due any
	if !d.DueDate.IsZero() {
		due = formatTime(d.DueDate)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO documents (user_id, doc_type, number, customer_id, issue_date, due_date,
		                        notes, tax_rate, subtotal, tax_amount, total, paid, accepted)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, string(d.Type), d.Number, d.CustomerID, formatTime(d.IssueDate), due,
		d.Notes, d.TaxRate, d.Subtotal, d.TaxAmount, d.Total, d.Paid, d.Accepted)
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("document id: %w", err)
	}

	if err := insertItems(ctx, tx, id, d.Items); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func insertItems(ctx context.Context, tx *sql.Tx, documentID int64, items []core.LineItem) error {
	for i, item := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO document_items (document_id, position, description, quantity, unit_price, amount)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			documentID, i, item.Description, item.Quantity, item.UnitPrice, item.Amount)
		if err != nil {
			return fmt.Errorf("insert line item %d: %w", i, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) GetDocument(ctx context.Context, userID, id int64, docType core.DocumentType) (core.Document, error) {
	var (
		d       core.Document
		typeStr string
		issue   string
		due     sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, doc_type, number, customer_id, issue_date, due_date, notes,
		        tax_rate, subtotal, tax_amount, total, paid, accepted
		 FROM documents WHERE id = ? AND user_id = ? AND doc_type = ?`,
		id, userID, string(docType)).
		Scan(&d.ID, &typeStr, &d.Number, &d.CustomerID, &issue, &due, &d.Notes,
			&d.TaxRate, &d.Subtotal, &d.TaxAmount, &d.Total, &d.Paid, &d.Accepted)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Document{}, ErrNotFound
	}
	if err != nil {
		return core.Document{}, fmt.Errorf("select document: %w", err)
	}
	d.Type = core.DocumentType(typeStr)
	d.IssueDate = parseTime(issue)
	if due.Valid {
		d.DueDate = parseTime(due.String)
	}

	items, err := r.documentItems(ctx, id)
	if err != nil {
		return core.Document{}, err
	}
	d.Items = items
	return d, nil
}

// GetDocumentByID fetches a document regardless of owner; the export
// worker only has the row ID from the queue message.
func (r *SQLiteRepository) GetDocumentByID(ctx context.Context, id int64) (core.Document, error) {
	var (
		d       core.Document
		typeStr string
		issue   string
		due     sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, doc_type, number, customer_id, issue_date, due_date, notes,
		        tax_rate, subtotal, tax_amount, total, paid, accepted
		 FROM documents WHERE id = ?`, id).
		Scan(&d.ID, &typeStr, &d.Number, &d.CustomerID, &issue, &due, &d.Notes,
			&d.TaxRate, &d.Subtotal, &d.TaxAmount, &d.Total, &d.Paid, &d.Accepted)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Document{}, ErrNotFound
	}
	if err != nil {
		return core.Document{}, fmt.Errorf("select document: %w", err)
	}
	d.Type = core.DocumentType(typeStr)
	d.IssueDate = parseTime(issue)
	if due.Valid {
		d.DueDate = parseTime(due.String)
	}
	items, err := r.documentItems(ctx, id)
	if err != nil {
		return core.Document{}, err
	}
	d.Items = items
	return d, nil
}

func (r *SQLiteRepository) documentItems(ctx context.Context, documentID int64) ([]core.LineItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT description, quantity, unit_price, amount
		 FROM document_items WHERE document_id = ? ORDER BY position`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()

	items := []core.LineItem{}
	for rows.Next() {
		var item core.LineItem
		if err := rows.Scan(&item.Description, &item.Quantity, &item.UnitPrice, &item.Amount); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListDocuments returns documents of one type without their items;
// list views only show header data.
func (r *SQLiteRepository) ListDocuments(ctx context.Context, userID int64, docType core.DocumentType) ([]core.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, doc_type, number, customer_id, issue_date, due_date, notes,
		        tax_rate, subtotal, tax_amount, total, paid, accepted
		 FROM documents WHERE user_id = ? AND doc_type = ? ORDER BY id DESC`,
		userID, string(docType))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []core.Document{}
	for rows.Next() {
		var (
			d       core.Document
			typeStr string
			issue   string
			due     sql.NullString
		)
		if err := rows.Scan(&d.ID, &typeStr, &d.Number, &d.CustomerID, &issue, &due, &d.Notes,
			&d.TaxRate, &d.Subtotal, &d.TaxAmount, &d.Total, &d.Paid, &d.Accepted); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Type = core.DocumentType(typeStr)
		d.IssueDate = parseTime(issue)
		if due.Valid {
			d.DueDate = parseTime(due.String)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// UpdateDocument rewrites the header and replaces the full item set,
// bumping the version so the export worker re-syncs it.
func (r *SQLiteRepository) UpdateDocument(ctx context.Context, userID int64, d core.Document) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var due any
	if !d.DueDate.IsZero() {
		due = formatTime(d.DueDate)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE documents
		 SET customer_id = ?, issue_date = ?, due_date = ?, notes = ?, tax_rate = ?,
		     subtotal = ?, tax_amount = ?, total = ?, synced = 0, version = version + 1
		 WHERE id = ? AND user_id = ? AND doc_type = ?`,
		d.CustomerID, formatTime(d.IssueDate), due, d.Notes, d.TaxRate,
		d.Subtotal, d.TaxAmount, d.Total, d.ID, userID, string(d.Type))
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if err := rowsAffectedOrNotFound(res); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM document_items WHERE document_id = ?`, d.ID); err != nil {
		return fmt.Errorf("clear line items: %w", err)
	}
	if err := insertItems(ctx, tx, d.ID, d.Items); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteDocument(ctx context.Context, userID, id int64, docType core.DocumentType) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM documents WHERE id = ? AND user_id = ? AND doc_type = ?`,
		id, userID, string(docType))
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// ToggleInvoicePaid flips the paid flag and returns the new state.
func (r *SQLiteRepository) ToggleInvoicePaid(ctx context.Context, userID, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE documents SET paid = NOT paid, synced = 0, version = version + 1
		 WHERE id = ? AND user_id = ? AND doc_type = 'invoice'`, id, userID)
	if err != nil {
		return false, fmt.Errorf("toggle paid: %w", err)
	}
	if err := rowsAffectedOrNotFound(res); err != nil {
		return false, err
	}

	var paid bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT paid FROM documents WHERE id = ?`, id).Scan(&paid); err != nil {
		return false, fmt.Errorf("read paid flag: %w", err)
	}
	return paid, nil
}

func (r *SQLiteRepository) MarkEstimateAccepted(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE documents SET accepted = 1 WHERE id = ? AND user_id = ? AND doc_type = 'estimate'`,
		id, userID)
	if err != nil {
		return fmt.Errorf("mark estimate accepted: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// NextDocumentNumber allocates the next per-user sequence number for a
// document type, e.g. INV-0007. The sequence follows the highest number
// ever issued, so deleting a document never frees its number for reuse.
func (r *SQLiteRepository) NextDocumentNumber(ctx context.Context, userID int64, docType core.DocumentType) (string, error) {
	var maxSeq int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(CAST(substr(number, 5) AS INTEGER)), 0)
		 FROM documents WHERE user_id = ? AND doc_type = ?`,
		userID, string(docType)).Scan(&maxSeq)
	if err != nil {
		return "", fmt.Errorf("max document number: %w", err)
	}
	prefix := "INV"
	if docType == core.Estimate {
		prefix = "EST"
	}
	return fmt.Sprintf("%s-%04d", prefix, maxSeq+1), nil
}

// DocumentVersion returns the current version counter for a document.
func (r *SQLiteRepository) DocumentVersion(ctx context.Context, id int64) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx,
		`SELECT version FROM documents WHERE id = ?`, id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("select document version: %w", err)
	}
	return version, nil
}

// MarkDocumentSynced flips the synced flag only when the version still
// matches, so an edit made after the export was published keeps the row
// pending.
func (r *SQLiteRepository) MarkDocumentSynced(ctx context.Context, id, version int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE documents SET synced = 1 WHERE id = ? AND version = ?`, id, version)
	if err != nil {
		return fmt.Errorf("mark document synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) PendingSyncDocuments(ctx context.Context, limit int) ([]PendingRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version FROM documents WHERE synced = 0 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending documents: %w", err)
	}
	defer rows.Close()

	var pending []PendingRecord
	for rows.Next() {
		var p PendingRecord
		if err := rows.Scan(&p.ID, &p.Version); err != nil {
			return nil, fmt.Errorf("scan pending document: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}
