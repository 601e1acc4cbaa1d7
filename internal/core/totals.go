// Package core holds the ClearBooks domain model and the document
// totals engine.
//
// This file implements the line-item and totals computations shared by
// the invoice and estimate flows. Line amounts are kept as unrounded
// floating point so repeated edits never compound rounding error;
// Round2 is applied only where a value crosses a display boundary
// (JSON formatting, PDF rendering).
package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumberOrZero parses a decimal string, coercing anything
// unparsable (including the empty string) to 0. This mirrors the
// lenient form handling in the browser: a half-typed quantity must
// never produce an error mid-edit, only a zero amount.
//
// Both dot and comma decimal separators are accepted. Negative values
// parse as-is; rejecting them is an input-validation concern, not a
// computation concern.
func ParseNumberOrZero(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Round2 rounds half away from zero to 2 decimal places. Display-stage
// only; stored amounts stay unrounded.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// NewLineItem returns the default row a document form starts with.
func NewLineItem() LineItem {
	return LineItem{Quantity: 1}
}

// RecomputeLineAmount derives Amount from Quantity and UnitPrice. The
// result is not rounded.
func RecomputeLineAmount(item *LineItem) {
	item.Amount = item.Quantity * item.UnitPrice
}

// Totals are the document-level derived values for a set of line items.
type Totals struct {
	Subtotal  float64
	TaxAmount float64
	Total     float64
}

// ComputeTotals derives subtotal, tax amount and total from scratch.
// Every change recomputes the full set; there are no incremental
// updates, so the result is identical regardless of edit order.
func ComputeTotals(items []LineItem, taxRatePercent float64) Totals {
	var subtotal float64
	for _, item := range items {
		subtotal += item.Amount
	}
	taxAmount := subtotal * taxRatePercent / 100
	return Totals{
		Subtotal:  subtotal,
		TaxAmount: taxAmount,
		Total:     subtotal + taxAmount,
	}
}

// AddLineItem appends a fresh default row. Existing rows keep their
// order and positions.
func AddLineItem(items []LineItem) []LineItem {
	return append(items, NewLineItem())
}

// RemoveLineItem removes the row at index, preserving the order of the
// rest. Removing the last remaining row is rejected: the editor always
// keeps at least one. An out-of-range index is also rejected.
func RemoveLineItem(items []LineItem, index int) ([]LineItem, error) {
	if len(items) <= 1 {
		return items, ErrLastLineItem
	}
	if index < 0 || index >= len(items) {
		return items, ErrInvalidItemIndex
	}
	out := make([]LineItem, 0, len(items)-1)
	out = append(out, items[:index]...)
	out = append(out, items[index+1:]...)
	return out, nil
}

// Recompute normalizes a document in place: every line amount is
// re-derived and the totals are recalculated from the result.
func (d *Document) Recompute() {
	for i := range d.Items {
		RecomputeLineAmount(&d.Items[i])
	}
	t := ComputeTotals(d.Items, d.TaxRate)
	d.Subtotal = t.Subtotal
	d.TaxAmount = t.TaxAmount
	d.Total = t.Total
}
