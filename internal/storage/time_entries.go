package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clearbooks/internal/core"
)

// ErrTimerRunning is returned when a second running entry would
// violate the one-running-timer-per-user rule.
var ErrTimerRunning = errors.New("a timer is already running")

func (r *SQLiteRepository) CreateTimeEntry(ctx context.Context, userID int64, e core.TimeEntry) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO time_entries (user_id, description, start_time, end_time, duration_seconds, formatted_duration)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, e.Description, formatTime(e.StartTime), formatNullableTime(e.EndTime),
		e.DurationSeconds, e.FormattedDuration)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrTimerRunning
		}
		return 0, fmt.Errorf("insert time entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("time entry id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetTimeEntry(ctx context.Context, userID, id int64) (core.TimeEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, description, start_time, end_time, duration_seconds, formatted_duration
		 FROM time_entries WHERE id = ? AND user_id = ?`, id, userID)
	return scanTimeEntry(row)
}

// GetRunningEntry returns the single open entry for the user, or
// ErrNotFound when no timer is running.
func (r *SQLiteRepository) GetRunningEntry(ctx context.Context, userID int64) (core.TimeEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, description, start_time, end_time, duration_seconds, formatted_duration
		 FROM time_entries WHERE user_id = ? AND end_time IS NULL`, userID)
	return scanTimeEntry(row)
}

func scanTimeEntry(row *sql.Row) (core.TimeEntry, error) {
	var (
		e     core.TimeEntry
		start string
		end   sql.NullString
	)
	err := row.Scan(&e.ID, &e.Description, &start, &end, &e.DurationSeconds, &e.FormattedDuration)
	if errors.Is(err, sql.ErrNoRows) {
		return core.TimeEntry{}, ErrNotFound
	}
	if err != nil {
		return core.TimeEntry{}, fmt.Errorf("scan time entry: %w", err)
	}
	e.StartTime = parseTime(start)
	e.EndTime = parseNullableTime(end)
	e.IsRunning = e.EndTime == nil
	return e, nil
}

func (r *SQLiteRepository) ListTimeEntries(ctx context.Context, userID int64) ([]core.TimeEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, description, start_time, end_time, duration_seconds, formatted_duration
		 FROM time_entries WHERE user_id = ? ORDER BY start_time DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select time entries: %w", err)
	}
	defer rows.Close()

	var out []core.TimeEntry
	for rows.Next() {
		var (
			e     core.TimeEntry
			start string
			end   sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Description, &start, &end, &e.DurationSeconds, &e.FormattedDuration); err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		e.StartTime = parseTime(start)
		e.EndTime = parseNullableTime(end)
		e.IsRunning = e.EndTime == nil
		out = append(out, e)
	}
	return out, rows.Err()
}

// StopEntry closes a running entry with its final duration. Stopping
// an already-stopped entry reports ErrNotFound.
func (r *SQLiteRepository) StopEntry(ctx context.Context, userID, id int64, end time.Time, durationSeconds int64, formatted string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE time_entries
		 SET end_time = ?, duration_seconds = ?, formatted_duration = ?, synced = 0, version = version + 1
		 WHERE id = ? AND user_id = ? AND end_time IS NULL`,
		formatTime(end), durationSeconds, formatted, id, userID)
	if err != nil {
		return fmt.Errorf("stop time entry: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// DeleteTimeEntry removes a stopped entry. Running entries cannot be
// deleted; stop them first.
func (r *SQLiteRepository) DeleteTimeEntry(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM time_entries WHERE id = ? AND user_id = ? AND end_time IS NOT NULL`,
		id, userID)
	if err != nil {
		return fmt.Errorf("delete time entry: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

func (r *SQLiteRepository) TotalTrackedSeconds(ctx context.Context, userID int64) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(duration_seconds), 0) FROM time_entries
		 WHERE user_id = ? AND end_time IS NOT NULL`, userID).
		Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum tracked seconds: %w", err)
	}
	return total, nil
}

// GetTimeEntryByID fetches an entry regardless of owner, for the
// export worker.
func (r *SQLiteRepository) GetTimeEntryByID(ctx context.Context, id int64) (core.TimeEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, description, start_time, end_time, duration_seconds, formatted_duration
		 FROM time_entries WHERE id = ?`, id)
	return scanTimeEntry(row)
}

// TimeEntryVersion returns the current version counter for an entry.
func (r *SQLiteRepository) TimeEntryVersion(ctx context.Context, id int64) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx,
		`SELECT version FROM time_entries WHERE id = ?`, id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("select time entry version: %w", err)
	}
	return version, nil
}

func (r *SQLiteRepository) MarkTimeEntrySynced(ctx context.Context, id, version int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE time_entries SET synced = 1 WHERE id = ? AND version = ?`, id, version)
	if err != nil {
		return fmt.Errorf("mark time entry synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) PendingSyncTimeEntries(ctx context.Context, limit int) ([]PendingRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version FROM time_entries WHERE synced = 0 AND end_time IS NOT NULL
		 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending time entries: %w", err)
	}
	defer rows.Close()

	var out []PendingRecord
	for rows.Next() {
		var p PendingRecord
		if err := rows.Scan(&p.ID, &p.Version); err != nil {
			return nil, fmt.Errorf("scan pending time entry: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
