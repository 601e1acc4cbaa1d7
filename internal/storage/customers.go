package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clearbooks/internal/core"
)

func (r *SQLiteRepository) CreateCustomer(ctx context.Context, userID int64, c core.Customer) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO customers (user_id, name, email, phone, address, vat_number)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, c.Name, c.Email, c.Phone, c.Address, c.VATNumber)
	if err != nil {
		return 0, fmt.Errorf("insert customer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("customer id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetCustomer(ctx context.Context, userID, id int64) (core.Customer, error) {
	var c core.Customer
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, address, vat_number
		 FROM customers WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.VATNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Customer{}, ErrNotFound
	}
	if err != nil {
		return core.Customer{}, fmt.Errorf("select customer: %w", err)
	}
	return c, nil
}

// GetCustomerName looks a customer up by row ID alone, for labelling
// exported ledger rows.
func (r *SQLiteRepository) GetCustomerName(ctx context.Context, id int64) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx,
		`SELECT name FROM customers WHERE id = ?`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select customer name: %w", err)
	}
	return name, nil
}

func (r *SQLiteRepository) ListCustomers(ctx context.Context, userID int64) ([]core.Customer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, phone, address, vat_number
		 FROM customers WHERE user_id = ? ORDER BY name COLLATE NOCASE`, userID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	customers := []core.Customer{}
	for rows.Next() {
		var c core.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.VATNumber); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *SQLiteRepository) UpdateCustomer(ctx context.Context, userID int64, c core.Customer) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE customers SET name = ?, email = ?, phone = ?, address = ?, vat_number = ?
		 WHERE id = ? AND user_id = ?`,
		c.Name, c.Email, c.Phone, c.Address, c.VATNumber, c.ID, userID)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// DeleteCustomer fails with ErrConflict while documents still
// reference the customer.
func (r *SQLiteRepository) DeleteCustomer(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM customers WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("delete customer: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}
