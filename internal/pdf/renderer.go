// Package pdf renders invoices and estimates as A4 documents. Money
// values are rounded to two decimals here; stored values carry full
// precision.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"clearbooks/internal/core"
)

const dateLayout = "02/01/2006"

// Renderer draws documents with the issuing company's letterhead.
type Renderer struct {
	company core.User
}

func NewRenderer(company core.User) *Renderer {
	return &Renderer{company: company}
}

// Render produces the PDF bytes for a document and its customer.
func (r *Renderer) Render(d core.Document, customer core.Customer) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(120, 10, title(d.Type))
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 10, d.Number, "", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	company := r.company.CompanyName
	if company == "" {
		company = r.company.Name
	}
	pdf.CellFormat(0, 6, company, "", 1, "L", false, 0, "")
	if r.company.Address != "" {
		pdf.CellFormat(0, 6, r.company.Address, "", 1, "L", false, 0, "")
	}
	if r.company.VATNumber != "" {
		pdf.CellFormat(0, 6, "VAT "+r.company.VATNumber, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Bill to", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, customer.Name, "", 1, "L", false, 0, "")
	if customer.Address != "" {
		pdf.CellFormat(0, 6, customer.Address, "", 1, "L", false, 0, "")
	}
	if customer.VATNumber != "" {
		pdf.CellFormat(0, 6, "VAT "+customer.VATNumber, "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	pdf.CellFormat(0, 6, "Date: "+d.IssueDate.Format(dateLayout), "", 1, "L", false, 0, "")
	if !d.DueDate.IsZero() {
		pdf.CellFormat(0, 6, "Due: "+d.DueDate.Format(dateLayout), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// Items table.
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(90, 8, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(35, 8, "Unit price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(40, 8, "Amount", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, item := range d.Items {
		pdf.CellFormat(90, 8, item.Description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 8, formatQuantity(item.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 8, formatMoney(item.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 8, formatMoney(item.Amount), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	pdf.CellFormat(150, 8, "Subtotal", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, formatMoney(d.Subtotal), "", 1, "R", false, 0, "")
	pdf.CellFormat(150, 8, fmt.Sprintf("Tax (%s%%)", formatQuantity(d.TaxRate)), "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, formatMoney(d.TaxAmount), "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(150, 8, "Total", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, formatMoney(d.Total), "", 1, "R", false, 0, "")

	if d.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 5, "Notes: "+d.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func title(t core.DocumentType) string {
	if t == core.Estimate {
		return "Estimate"
	}
	return "Invoice"
}

func formatMoney(v float64) string {
	return fmt.Sprintf("%.2f", core.Round2(v))
}

// formatQuantity drops trailing zeros so whole quantities print bare.
func formatQuantity(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
