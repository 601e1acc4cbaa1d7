package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"clearbooks/internal/amqp"
	"clearbooks/internal/cache"
	"clearbooks/internal/core"
	"clearbooks/internal/storage"
)

// ExpenseService orchestrates expense operations across SQLite and the
// export queue.
type ExpenseService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client

	// All-time totals are recomputed with a SUM over every row; the
	// cache absorbs dashboard polling between writes.
	totals *cache.LRUCache[float64]
}

func NewExpenseService(repo *storage.SQLiteRepository, amqpClient *amqp.Client) *ExpenseService {
	return &ExpenseService{
		storage:    repo,
		amqpClient: amqpClient,
		totals:     cache.NewLRUCache[float64](1024, 5*time.Minute),
	}
}

// Create saves an expense locally and publishes an export message.
// Publish failures do not fail the request; the sweep catches up.
func (s *ExpenseService) Create(ctx context.Context, userID int64, e core.Expense) (core.Expense, error) {
	if err := validateReceipt(e.ReceiptPhoto); err != nil {
		return core.Expense{}, err
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	id, err := s.storage.CreateExpense(ctx, userID, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	e.ID = id

	s.totals.Delete(totalsKey(userID))
	s.publishExport(ctx, id, 1)
	return e, nil
}

func (s *ExpenseService) Get(ctx context.Context, userID, id int64) (core.Expense, error) {
	return s.storage.GetExpense(ctx, userID, id)
}

func (s *ExpenseService) List(ctx context.Context, userID int64) ([]core.Expense, error) {
	return s.storage.ListExpenses(ctx, userID)
}

func (s *ExpenseService) ListByRange(ctx context.Context, userID int64, from, to time.Time) ([]core.Expense, error) {
	return s.storage.ListExpensesByRange(ctx, userID, from, to)
}

func (s *ExpenseService) Update(ctx context.Context, userID int64, e core.Expense) (core.Expense, error) {
	if err := validateReceipt(e.ReceiptPhoto); err != nil {
		return core.Expense{}, err
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	if err := s.storage.UpdateExpense(ctx, userID, e); err != nil {
		return core.Expense{}, err
	}

	updated, err := s.storage.GetExpense(ctx, userID, e.ID)
	if err != nil {
		return core.Expense{}, err
	}
	s.totals.Delete(totalsKey(userID))
	if version, err := s.storage.ExpenseVersion(ctx, e.ID); err == nil {
		s.publishExport(ctx, e.ID, version)
	}
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.storage.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}
	s.totals.Delete(totalsKey(userID))
	return nil
}

func (s *ExpenseService) Total(ctx context.Context, userID int64) (float64, error) {
	key := totalsKey(userID)
	if total, ok := s.totals.Get(key); ok {
		return total, nil
	}
	total, err := s.storage.TotalExpenses(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.totals.Set(key, total)
	return total, nil
}

func totalsKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func (s *ExpenseService) TotalByRange(ctx context.Context, userID int64, from, to time.Time) (float64, error) {
	return s.storage.TotalExpensesByRange(ctx, userID, from, to)
}

// validateReceipt accepts an empty photo or a base64 image data URL of
// at most core.MaxReceiptBytes decoded bytes.
func validateReceipt(photo string) error {
	if photo == "" {
		return nil
	}
	if !strings.HasPrefix(photo, "data:image/") {
		return core.ErrReceiptNotImage
	}
	idx := strings.Index(photo, ";base64,")
	if idx < 0 {
		return core.ErrReceiptNotImage
	}
	payload := photo[idx+len(";base64,"):]
	// Estimate decoded size without allocating the full image.
	decoded := base64.StdEncoding.DecodedLen(len(payload))
	if decoded > core.MaxReceiptBytes {
		return core.ErrReceiptTooLarge
	}
	return nil
}

func (s *ExpenseService) publishExport(ctx context.Context, id, version int64) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping export message")
		return
	}
	if err := s.amqpClient.PublishRecordExport(ctx, amqp.KindExpense, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish export message",
			"kind", amqp.KindExpense, "id", id, "error", err)
	}
}
