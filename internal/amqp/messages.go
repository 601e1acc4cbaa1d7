package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record kinds carried on the ledger export queue. The worker uses the
// kind to decide which table to read the full row from.
const (
	KindInvoice   = "invoice"
	KindEstimate  = "estimate"
	KindExpense   = "expense"
	KindTimeEntry = "time_entry"
)

// RecordExportMessage is a lightweight pointer to a row that needs
// exporting. It carries only kind, ID and version; the worker fetches
// the current row from the database.
type RecordExportMessage struct {
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordExportMessage(kind string, id, version int64) *RecordExportMessage {
	return &RecordExportMessage{
		Kind:      kind,
		ID:        id,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *RecordExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordExportMessageFromJSON(data []byte) (*RecordExportMessage, error) {
	var msg RecordExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case KindInvoice, KindEstimate, KindExpense, KindTimeEntry:
	default:
		return nil, fmt.Errorf("unknown record kind %q", msg.Kind)
	}
	return &msg, nil
}
