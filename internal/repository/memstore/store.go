// Package memstore provides an in-memory notification record store with
// the same contract as the Postgres repository. It backs deterministic
// dispatcher tests and local development without a database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vitacall/notifier/internal/model"
	"github.com/vitacall/notifier/internal/repository/notification"
)

type Store struct {
	mu      sync.Mutex
	records map[uuid.UUID]*model.NotificationRecord
}

func New() *Store {
	return &Store{records: make(map[uuid.UUID]*model.NotificationRecord)}
}

// Enqueue inserts a record, enforcing the same partial uniqueness the
// Postgres index does: at most one non-failed record per
// (recipient, trigger, correlation id), correlation id present.
func (s *Store) Enqueue(_ context.Context, rec model.NotificationRecord) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CorrelationID != "" {
		for _, existing := range s.records {
			if existing.RecipientUserID == rec.RecipientUserID &&
				existing.TriggerCode == rec.TriggerCode &&
				existing.CorrelationID == rec.CorrelationID &&
				existing.Status != model.StatusFailed {
				return uuid.Nil, model.ErrDuplicateNotification
			}
		}
	}

	now := time.Now()

	rec.ID = uuid.New()
	rec.Status = model.StatusPending
	rec.CreatedAt = now
	rec.UpdatedAt = now

	s.records[rec.ID] = &rec

	return rec.ID, nil
}

// ClaimDue claims up to limit due pending records, oldest schedule first.
// Claiming happens under a single lock, so each record is handed to
// exactly one caller even with concurrent claimers.
func (s *Store) ClaimDue(_ context.Context, limit int, now time.Time) ([]model.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*model.NotificationRecord
	for _, rec := range s.records {
		if rec.Status == model.StatusPending && !rec.ScheduledFor.After(now) {
			due = append(due, rec)
		}
	}

	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledFor.Before(due[j].ScheduledFor) })

	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]model.NotificationRecord, 0, len(due))
	for _, rec := range due {
		rec.Status = model.StatusProcessing
		at := now
		rec.ClaimedAt = &at
		rec.UpdatedAt = now
		claimed = append(claimed, *rec)
	}

	return claimed, nil
}

func (s *Store) MarkSent(_ context.Context, id uuid.UUID, providerMessageID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return notification.ErrNotificationNotFound
	}

	rec.Status = model.StatusSent
	rec.ProviderMessageID = providerMessageID
	sentAt := at
	rec.SentAt = &sentAt
	rec.AttemptCount++
	rec.UpdatedAt = at

	return nil
}

func (s *Store) Reschedule(_ context.Context, id uuid.UUID, lastError string, nextAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return notification.ErrNotificationNotFound
	}

	rec.Status = model.StatusPending
	rec.LastError = lastError
	rec.ScheduledFor = nextAt
	rec.AttemptCount++
	rec.ClaimedAt = nil
	rec.UpdatedAt = time.Now()

	return nil
}

func (s *Store) MarkFailed(_ context.Context, id uuid.UUID, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return notification.ErrNotificationNotFound
	}

	rec.Status = model.StatusFailed
	rec.LastError = lastError
	rec.AttemptCount++
	rec.UpdatedAt = time.Now()

	return nil
}

func (s *Store) ReleaseStale(_ context.Context, claimedBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var released int64
	for _, rec := range s.records {
		if rec.Status == model.StatusProcessing && rec.ClaimedAt != nil && rec.ClaimedAt.Before(claimedBefore) {
			rec.Status = model.StatusPending
			rec.ClaimedAt = nil
			rec.UpdatedAt = time.Now()
			released++
		}
	}

	return released, nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (model.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return model.NotificationRecord{}, notification.ErrNotificationNotFound
	}

	return *rec, nil
}

func (s *Store) GetStatusByID(_ context.Context, id uuid.UUID) (string, error) {
	rec, err := s.GetByID(context.Background(), id)
	if err != nil {
		return "", err
	}

	return rec.Status, nil
}

func (s *Store) ListByRecipient(_ context.Context, userID int64) ([]model.NotificationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var recs []model.NotificationRecord
	for _, rec := range s.records {
		if rec.RecipientUserID == userID {
			recs = append(recs, *rec)
		}
	}

	if len(recs) == 0 {
		return nil, notification.ErrNoNotificationsFound
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })

	return recs, nil
}
