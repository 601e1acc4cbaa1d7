package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clearbooks/internal/core"
)

func (r *SQLiteRepository) CreateExpense(ctx context.Context, userID int64, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, expense_date, description, category, amount, receipt_photo)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, formatTime(e.Date), e.Description, e.Category, e.Amount, e.ReceiptPhoto)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("expense id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	var (
		e    core.Expense
		date string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, expense_date, description, category, amount, receipt_photo
		 FROM expenses WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&e.ID, &date, &e.Description, &e.Category, &e.Amount, &e.ReceiptPhoto)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("select expense: %w", err)
	}
	e.Date = parseTime(date)
	return e, nil
}

// GetExpenseByID fetches an expense regardless of owner, for the
// export worker.
func (r *SQLiteRepository) GetExpenseByID(ctx context.Context, id int64) (core.Expense, error) {
	var (
		e    core.Expense
		date string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, expense_date, description, category, amount, receipt_photo
		 FROM expenses WHERE id = ?`, id).
		Scan(&e.ID, &date, &e.Description, &e.Category, &e.Amount, &e.ReceiptPhoto)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("select expense: %w", err)
	}
	e.Date = parseTime(date)
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT id, expense_date, description, category, amount, receipt_photo
		 FROM expenses WHERE user_id = ? ORDER BY expense_date DESC, id DESC`, userID)
}

func (r *SQLiteRepository) ListExpensesByRange(ctx context.Context, userID int64, from, to time.Time) ([]core.Expense, error) {
	return r.queryExpenses(ctx,
		`SELECT id, expense_date, description, category, amount, receipt_photo
		 FROM expenses WHERE user_id = ? AND expense_date >= ? AND expense_date <= ?
		 ORDER BY expense_date DESC, id DESC`,
		userID, formatTime(from), formatTime(to))
}

func (r *SQLiteRepository) queryExpenses(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			e    core.Expense
			date string
		)
		if err := rows.Scan(&e.ID, &date, &e.Description, &e.Category, &e.Amount, &e.ReceiptPhoto); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.Date = parseTime(date)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, userID int64, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses
		 SET expense_date = ?, description = ?, category = ?, amount = ?, receipt_photo = ?,
		     synced = 0, version = version + 1
		 WHERE id = ? AND user_id = ?`,
		formatTime(e.Date), e.Description, e.Category, e.Amount, e.ReceiptPhoto, e.ID, userID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func (r *SQLiteRepository) TotalExpenses(ctx context.Context, userID int64) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM expenses WHERE user_id = ?`, userID).
		Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum expenses: %w", err)
	}
	return total, nil
}

func (r *SQLiteRepository) TotalExpensesByRange(ctx context.Context, userID int64, from, to time.Time) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM expenses
		 WHERE user_id = ? AND expense_date >= ? AND expense_date <= ?`,
		userID, formatTime(from), formatTime(to)).
		Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum expenses by range: %w", err)
	}
	return total, nil
}

// ExpenseVersion returns the current version counter for an expense.
func (r *SQLiteRepository) ExpenseVersion(ctx context.Context, id int64) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx,
		`SELECT version FROM expenses WHERE id = ?`, id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("select expense version: %w", err)
	}
	return version, nil
}

func (r *SQLiteRepository) MarkExpenseSynced(ctx context.Context, id, version int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET synced = 1 WHERE id = ? AND version = ?`, id, version)
	if err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) PendingSyncExpenses(ctx context.Context, limit int) ([]PendingRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version FROM expenses WHERE synced = 0 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending expenses: %w", err)
	}
	defer rows.Close()

	var out []PendingRecord
	for rows.Next() {
		var p PendingRecord
		if err := rows.Scan(&p.ID, &p.Version); err != nil {
			return nil, fmt.Errorf("scan pending expense: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
