package export

import (
	"context"
)

// LedgerRow is one flattened row for the external ledger. Amounts are
// already rounded for display; Detail carries the kind-specific extra
// column (customer name, expense category, tracked hours).
type LedgerRow struct {
	Date        string
	Kind        string
	Reference   string
	Description string
	Detail      string
	Amount      float64
}

// LedgerWriter appends rows to the external ledger.
type LedgerWriter interface {
	AppendRow(ctx context.Context, row LedgerRow) (rowRef string, err error)
}
