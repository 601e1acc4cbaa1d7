package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Invoice  DocumentType = "invoice"
	Estimate DocumentType = "estimate"
)

const (
	// DefaultTaxRate is the VAT percentage pre-filled on new documents.
	DefaultTaxRate = 21.0

	// MaxReceiptBytes caps decoded receipt photos at 5MB.
	MaxReceiptBytes = 5 << 20
)

type (
	DocumentType string

	// LineItem is one row of an invoice or estimate. Amount is derived
	// from Quantity and UnitPrice and kept unrounded; rounding happens
	// only when the value is displayed.
	LineItem struct {
		Description string  `json:"description"`
		Quantity    float64 `json:"quantity"`
		UnitPrice   float64 `json:"unitPrice"`
		Amount      float64 `json:"amount"`
	}

	// Document is an invoice or estimate with its line items and
	// derived totals. Subtotal, TaxAmount and Total are always
	// recomputed from the items, never trusted from input.
	Document struct {
		ID         int64        `json:"id"`
		Type       DocumentType `json:"-"`
		Number     string       `json:"number"`
		CustomerID int64        `json:"customerId"`
		IssueDate  time.Time    `json:"invoiceDate"`
		DueDate    time.Time    `json:"dueDate,omitempty"`
		Notes      string       `json:"notes"`
		Items      []LineItem   `json:"items"`
		TaxRate    float64      `json:"taxRate"`
		Subtotal   float64      `json:"subtotal"`
		TaxAmount  float64      `json:"taxAmount"`
		Total      float64      `json:"total"`
		Paid       bool         `json:"paid"`
		Accepted   bool         `json:"accepted"`
	}

	Customer struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
		Address   string `json:"address"`
		VATNumber string `json:"vatNumber"`
	}

	Expense struct {
		ID           int64     `json:"id"`
		Date         time.Time `json:"date"`
		Description  string    `json:"description"`
		Category     string    `json:"category"`
		Amount       float64   `json:"amount"`
		ReceiptPhoto string    `json:"receiptPhoto,omitempty"`
	}

	// TimeEntry is a time-tracking session. EndTime is nil while the
	// timer is running; FormattedDuration is filled in when it stops.
	TimeEntry struct {
		ID                int64      `json:"id"`
		Description       string     `json:"description"`
		StartTime         time.Time  `json:"startTime"`
		EndTime           *time.Time `json:"endTime,omitempty"`
		IsRunning         bool       `json:"isRunning"`
		DurationSeconds   int64      `json:"durationSeconds"`
		FormattedDuration string     `json:"formattedDuration,omitempty"`
	}

	User struct {
		ID          int64  `json:"id"`
		VATNumber   string `json:"vatNumber"`
		Name        string `json:"name"`
		Email       string `json:"email"`
		Address     string `json:"address"`
		CompanyName string `json:"companyName"`
	}
)

var (
	ErrEmptyDescription    = errors.New("empty description")
	ErrEmptyName           = errors.New("empty name")
	ErrNameTooLong         = errors.New("name too long (max 200 characters)")
	ErrDescriptionTooLong  = errors.New("description too long (max 200 characters)")
	ErrInvalidDocumentType = errors.New("invalid document type")
	ErrInvalidDate         = errors.New("invalid date")
	ErrNoCustomer          = errors.New("document has no customer")
	ErrNoItems             = errors.New("document has no line items")
	ErrLastLineItem        = errors.New("a document keeps at least one line item")
	ErrInvalidItemIndex    = errors.New("line item index out of range")
	ErrReceiptTooLarge     = errors.New("receipt photo exceeds 5MB")
	ErrReceiptNotImage     = errors.New("receipt photo is not an image")
)

func (c Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 200 {
		return ErrNameTooLong
	}
	return nil
}

func (d Document) Validate() error {
	if d.CustomerID == 0 {
		return ErrNoCustomer
	}
	if d.IssueDate.IsZero() {
		return ErrInvalidDate
	}
	if len(d.Items) == 0 {
		return ErrNoItems
	}
	switch d.Type {
	case Invoice, Estimate:
	default:
		return ErrInvalidDocumentType
	}
	return nil
}

func (e Expense) Validate() error {
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(e.Description) == "" {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

func (t TimeEntry) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	return nil
}
