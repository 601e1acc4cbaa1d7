// Package export moves accounting records from SQLite into an external
// ledger. Records arrive as queue messages; a periodic sweep picks up
// anything the queue missed.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"clearbooks/internal/amqp"
	"clearbooks/internal/cache"
	"clearbooks/internal/core"
	"clearbooks/internal/storage"
)

// WorkerConfig holds worker tuning knobs.
type WorkerConfig struct {
	// BatchSize is the max number of pending rows per sweep (default: 25).
	BatchSize int

	// SweepInterval is how often to look for rows the queue missed
	// (default: 30s).
	SweepInterval time.Duration
}

func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		BatchSize:     25,
		SweepInterval: 30 * time.Second,
	}
}

// Worker consumes record export messages and writes ledger rows.
type Worker struct {
	storage *storage.SQLiteRepository
	writer  LedgerWriter
	queue   *amqp.Client
	config  WorkerConfig

	// Customer names label ledger rows and rarely change; a short TTL
	// keeps bulk sweeps from hitting SQLite once per document.
	names *cache.LRUCache[string]
}

func NewWorker(repo *storage.SQLiteRepository, writer LedgerWriter, queue *amqp.Client, config WorkerConfig) *Worker {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultWorkerConfig().BatchSize
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultWorkerConfig().SweepInterval
	}
	return &Worker{
		storage: repo,
		writer:  writer,
		queue:   queue,
		config:  config,
		names:   cache.NewLRUCache[string](256, 5*time.Minute),
	}
}

// Run blocks until ctx is done, consuming queue messages and sweeping
// for pending rows in parallel.
func (w *Worker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if w.queue != nil {
		g.Go(func() error {
			return w.consumeLoop(ctx)
		})
	}
	g.Go(func() error {
		return w.sweepLoop(ctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (w *Worker) consumeLoop(ctx context.Context) error {
	for {
		err := w.queue.ConsumeRecordExport(ctx, func(msg *amqp.RecordExportMessage) error {
			return w.Handle(ctx, msg)
		})
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.ErrorContext(ctx, "Consume loop ended, reconnecting", "error", err)
		if err := w.queue.Reconnect(ctx); err != nil {
			return err
		}
	}
}

func (w *Worker) sweepLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()

	// Sweep immediately on startup to drain rows queued while down.
	w.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Handle exports the record a queue message points at. The row is read
// fresh from storage, so a stale message exports the current state;
// its synced flag only clears when the version still matches.
func (w *Worker) Handle(ctx context.Context, msg *amqp.RecordExportMessage) error {
	switch msg.Kind {
	case amqp.KindInvoice, amqp.KindEstimate:
		return w.exportDocument(ctx, msg.ID, msg.Version)
	case amqp.KindExpense:
		return w.exportExpense(ctx, msg.ID, msg.Version)
	case amqp.KindTimeEntry:
		return w.exportTimeEntry(ctx, msg.ID, msg.Version)
	default:
		return fmt.Errorf("unknown record kind %q", msg.Kind)
	}
}

// Sweep exports a batch of rows still marked pending. Errors are
// logged and skipped so one bad row cannot stall the rest.
func (w *Worker) Sweep(ctx context.Context) {
	docs, err := w.storage.PendingSyncDocuments(ctx, w.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list pending documents", "error", err)
	}
	for _, p := range docs {
		if err := w.exportDocument(ctx, p.ID, p.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to export document",
				"id", p.ID, "error", err)
		}
	}

	expenses, err := w.storage.PendingSyncExpenses(ctx, w.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list pending expenses", "error", err)
	}
	for _, p := range expenses {
		if err := w.exportExpense(ctx, p.ID, p.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to export expense",
				"id", p.ID, "error", err)
		}
	}

	entries, err := w.storage.PendingSyncTimeEntries(ctx, w.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list pending time entries", "error", err)
	}
	for _, p := range entries {
		if err := w.exportTimeEntry(ctx, p.ID, p.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to export time entry",
				"id", p.ID, "error", err)
		}
	}
}

func (w *Worker) exportDocument(ctx context.Context, id, version int64) error {
	doc, err := w.storage.GetDocumentByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Document deleted before export", "id", id)
			return nil
		}
		return fmt.Errorf("get document: %w", err)
	}

	customer, err := w.customerName(ctx, doc.CustomerID)
	if err != nil {
		return fmt.Errorf("get customer name: %w", err)
	}

	ref, err := w.writer.AppendRow(ctx, DocumentRow(doc, customer))
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}

	if err := w.storage.MarkDocumentSynced(ctx, id, version); err != nil {
		return fmt.Errorf("mark document synced: %w", err)
	}

	slog.InfoContext(ctx, "Exported document",
		"id", id, "number", doc.Number, "row", ref)
	return nil
}

func (w *Worker) customerName(ctx context.Context, customerID int64) (string, error) {
	key := strconv.FormatInt(customerID, 10)
	if name, ok := w.names.Get(key); ok {
		return name, nil
	}
	name, err := w.storage.GetCustomerName(ctx, customerID)
	if errors.Is(err, storage.ErrNotFound) {
		// Customer rows can be gone by export time; the ledger row just
		// loses its label.
		return "", nil
	}
	if err != nil {
		return "", err
	}
	w.names.Set(key, name)
	return name, nil
}

func (w *Worker) exportExpense(ctx context.Context, id, version int64) error {
	e, err := w.storage.GetExpenseByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Expense deleted before export", "id", id)
			return nil
		}
		return fmt.Errorf("get expense: %w", err)
	}

	ref, err := w.writer.AppendRow(ctx, ExpenseRow(e))
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}

	if err := w.storage.MarkExpenseSynced(ctx, id, version); err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}

	slog.InfoContext(ctx, "Exported expense", "id", id, "row", ref)
	return nil
}

func (w *Worker) exportTimeEntry(ctx context.Context, id, version int64) error {
	e, err := w.storage.GetTimeEntryByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Time entry deleted before export", "id", id)
			return nil
		}
		return fmt.Errorf("get time entry: %w", err)
	}
	if e.IsRunning {
		// Exported on stop; leave the row pending.
		return nil
	}

	ref, err := w.writer.AppendRow(ctx, TimeEntryRow(e))
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}

	if err := w.storage.MarkTimeEntrySynced(ctx, id, version); err != nil {
		return fmt.Errorf("mark time entry synced: %w", err)
	}

	slog.InfoContext(ctx, "Exported time entry", "id", id, "row", ref)
	return nil
}

const ledgerDateLayout = "2006-01-02"

// DocumentRow flattens an invoice or estimate for the ledger. Amounts
// are rounded here; stored totals stay unrounded.
func DocumentRow(d core.Document, customer string) LedgerRow {
	return LedgerRow{
		Date:        d.IssueDate.Format(ledgerDateLayout),
		Kind:        string(d.Type),
		Reference:   d.Number,
		Description: d.Notes,
		Detail:      customer,
		Amount:      core.Round2(d.Total),
	}
}

func ExpenseRow(e core.Expense) LedgerRow {
	return LedgerRow{
		Date:        e.Date.Format(ledgerDateLayout),
		Kind:        amqp.KindExpense,
		Description: e.Description,
		Detail:      e.Category,
		Amount:      core.Round2(e.Amount),
	}
}

// TimeEntryRow reports tracked hours in the amount column.
func TimeEntryRow(e core.TimeEntry) LedgerRow {
	return LedgerRow{
		Date:        e.StartTime.Format(ledgerDateLayout),
		Kind:        amqp.KindTimeEntry,
		Reference:   e.FormattedDuration,
		Description: e.Description,
		Amount:      core.Round2(core.TotalHours(e.DurationSeconds)),
	}
}
