package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"clearbooks/internal/core"
)

// ErrVATNumberTaken is returned when registering a VAT number that
// already has an account.
var ErrVATNumberTaken = errors.New("vat number already registered")

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User, passwordHash string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (vat_number, password_hash, name, email, address, company_name)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.VATNumber, passwordHash, u.Name, u.Email, u.Address, u.CompanyName)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrVATNumberTaken
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("user id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, vat_number, name, email, address, company_name FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.VATNumber, &u.Name, &u.Email, &u.Address, &u.CompanyName)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("select user: %w", err)
	}
	return u, nil
}

// GetUserByVAT returns the user and their password hash for login.
func (r *SQLiteRepository) GetUserByVAT(ctx context.Context, vatNumber string) (core.User, string, error) {
	var (
		u    core.User
		hash string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, vat_number, password_hash, name, email, address, company_name
		 FROM users WHERE vat_number = ?`, vatNumber).
		Scan(&u.ID, &u.VATNumber, &hash, &u.Name, &u.Email, &u.Address, &u.CompanyName)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, "", ErrNotFound
	}
	if err != nil {
		return core.User{}, "", fmt.Errorf("select user by vat: %w", err)
	}
	return u, hash, nil
}

func (r *SQLiteRepository) GetPasswordHash(ctx context.Context, userID int64) (string, error) {
	var hash string
	err := r.db.QueryRowContext(ctx,
		`SELECT password_hash FROM users WHERE id = ?`, userID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select password hash: %w", err)
	}
	return hash, nil
}

func (r *SQLiteRepository) UpdateUserProfile(ctx context.Context, u core.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, address = ?, company_name = ? WHERE id = ?`,
		u.Name, u.Email, u.Address, u.CompanyName, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func (r *SQLiteRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, formatTime(expiresAt))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession resolves a bearer token. Expired sessions read as not found.
func (r *SQLiteRepository) GetSession(ctx context.Context, token string, now time.Time) (int64, error) {
	var (
		userID    int64
		expiresAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE token = ?`, token).
		Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("select session: %w", err)
	}
	if now.After(parseTime(expiresAt)) {
		return 0, ErrNotFound
	}
	return userID, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func rowsAffectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
