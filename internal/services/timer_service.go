package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"clearbooks/internal/amqp"
	"clearbooks/internal/cache"
	"clearbooks/internal/core"
	"clearbooks/internal/storage"
)

var (
	ErrTimerAlreadyRunning = errors.New("a timer is already running")
	ErrEntryStillRunning   = errors.New("stop the timer before deleting the entry")
)

// TimerService manages time-tracking sessions. At most one entry per
// user is open at any moment; the partial unique index enforces it
// even across racing requests.
type TimerService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	now        func() time.Time

	totals *cache.LRUCache[float64]
}

func NewTimerService(repo *storage.SQLiteRepository, amqpClient *amqp.Client) *TimerService {
	return &TimerService{
		storage:    repo,
		amqpClient: amqpClient,
		now:        time.Now,
		totals:     cache.NewLRUCache[float64](1024, 5*time.Minute),
	}
}

// Start opens a new running entry.
func (s *TimerService) Start(ctx context.Context, userID int64, description string) (core.TimeEntry, error) {
	entry := core.TimeEntry{
		Description: description,
		StartTime:   s.now().UTC(),
		IsRunning:   true,
	}
	if err := entry.Validate(); err != nil {
		return core.TimeEntry{}, err
	}

	id, err := s.storage.CreateTimeEntry(ctx, userID, entry)
	if errors.Is(err, storage.ErrTimerRunning) {
		return core.TimeEntry{}, ErrTimerAlreadyRunning
	}
	if err != nil {
		return core.TimeEntry{}, err
	}
	entry.ID = id
	return entry, nil
}

// Stop closes the running entry, deriving its duration from the wall
// clock, and queues it for ledger export.
func (s *TimerService) Stop(ctx context.Context, userID int64) (core.TimeEntry, error) {
	entry, err := s.storage.GetRunningEntry(ctx, userID)
	if err != nil {
		return core.TimeEntry{}, err
	}

	end := s.now().UTC()
	seconds := core.ElapsedSeconds(end, entry.StartTime)
	if seconds < 0 {
		seconds = 0
	}
	formatted := core.FormatDuration(seconds)

	if err := s.storage.StopEntry(ctx, userID, entry.ID, end, seconds, formatted); err != nil {
		return core.TimeEntry{}, err
	}

	entry.EndTime = &end
	entry.IsRunning = false
	entry.DurationSeconds = seconds
	entry.FormattedDuration = formatted

	s.totals.Delete(totalsKey(userID))
	s.publishExport(ctx, entry.ID)
	return entry, nil
}

// Running returns the open entry, or storage.ErrNotFound when idle.
func (s *TimerService) Running(ctx context.Context, userID int64) (core.TimeEntry, error) {
	return s.storage.GetRunningEntry(ctx, userID)
}

func (s *TimerService) List(ctx context.Context, userID int64) ([]core.TimeEntry, error) {
	return s.storage.ListTimeEntries(ctx, userID)
}

// Delete removes a stopped entry. A running entry must be stopped
// first.
func (s *TimerService) Delete(ctx context.Context, userID, id int64) error {
	entry, err := s.storage.GetTimeEntry(ctx, userID, id)
	if err != nil {
		return err
	}
	if entry.IsRunning {
		return ErrEntryStillRunning
	}
	if err := s.storage.DeleteTimeEntry(ctx, userID, id); err != nil {
		return err
	}
	s.totals.Delete(totalsKey(userID))
	return nil
}

// TotalHours sums all stopped entries, in hours.
func (s *TimerService) TotalHours(ctx context.Context, userID int64) (float64, error) {
	key := totalsKey(userID)
	if hours, ok := s.totals.Get(key); ok {
		return hours, nil
	}
	seconds, err := s.storage.TotalTrackedSeconds(ctx, userID)
	if err != nil {
		return 0, err
	}
	hours := core.TotalHours(seconds)
	s.totals.Set(key, hours)
	return hours, nil
}

func (s *TimerService) publishExport(ctx context.Context, id int64) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping export message")
		return
	}
	version, err := s.storage.TimeEntryVersion(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read time entry version",
			"id", id, "error", err)
		return
	}
	if err := s.amqpClient.PublishRecordExport(ctx, amqp.KindTimeEntry, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish export message",
			"kind", amqp.KindTimeEntry, "id", id, "error", err)
	}
}
