package pdf

import (
	"bytes"
	"testing"
	"time"

	"clearbooks/internal/core"
)

func TestRenderProducesPDF(t *testing.T) {
	r := NewRenderer(core.User{
		Name:        "Jane Doe",
		CompanyName: "Doe Consulting",
		VATNumber:   "IT12345678901",
	})

	doc := core.Document{
		Type:      core.Invoice,
		Number:    "INV-0001",
		IssueDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		TaxRate:   21,
		Items: []core.LineItem{
			{Description: "Consulting", Quantity: 3, UnitPrice: 8.50, Amount: 25.50},
		},
		Notes: "Payment within 30 days.",
	}
	doc.Recompute()

	out, err := r.Render(doc, core.Customer{Name: "Acme", Address: "Via Roma 1"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("output does not start with %%PDF, got %q", out[:min(8, len(out))])
	}
	if len(out) < 500 {
		t.Errorf("suspiciously small PDF: %d bytes", len(out))
	}
}

func TestRenderEstimateTitle(t *testing.T) {
	r := NewRenderer(core.User{Name: "Jane"})
	doc := core.Document{
		Type:      core.Estimate,
		Number:    "EST-0001",
		IssueDate: time.Now(),
		Items:     []core.LineItem{{Description: "Design", Quantity: 1, UnitPrice: 100, Amount: 100}},
	}
	if _, err := r.Render(doc, core.Customer{Name: "Acme"}); err != nil {
		t.Fatalf("Render: %v", err)
	}
}

func TestFormatHelpers(t *testing.T) {
	if got := formatMoney(30.855); got != "30.86" {
		t.Errorf("formatMoney(30.855) = %q, want 30.86", got)
	}
	if got := formatQuantity(3); got != "3" {
		t.Errorf("formatQuantity(3) = %q, want 3", got)
	}
	if got := formatQuantity(2.5); got != "2.5" {
		t.Errorf("formatQuantity(2.5) = %q, want 2.5", got)
	}
}
