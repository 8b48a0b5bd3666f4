package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitacall/notifier/internal/model"
	"github.com/vitacall/notifier/internal/repository/notification"
)

func pendingRecord(userID int64, trigger model.TriggerCode, correlationID string, scheduledFor time.Time) model.NotificationRecord {
	return model.NotificationRecord{
		RecipientUserID: userID,
		TriggerCode:     trigger,
		Channel:         model.ChannelEmail,
		TemplateKey:     "booking_confirmation",
		CorrelationID:   correlationID,
		Locale:          "en",
		ScheduledFor:    scheduledFor,
	}
}

func TestStore_Enqueue_Duplicate(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	_, err := s.Enqueue(ctx, pendingRecord(42, model.TriggerBookConf, "appt-42", now))
	require.NoError(t, err)

	_, err = s.Enqueue(ctx, pendingRecord(42, model.TriggerBookConf, "appt-42", now))
	assert.ErrorIs(t, err, model.ErrDuplicateNotification)

	// Different trigger for the same appointment is a distinct record.
	_, err = s.Enqueue(ctx, pendingRecord(42, model.TriggerRem24h, "appt-42", now))
	assert.NoError(t, err)
}

func TestStore_Enqueue_NoCorrelationNeverDedups(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	_, err := s.Enqueue(ctx, pendingRecord(42, model.TriggerProfileNeeded, "", now))
	require.NoError(t, err)

	_, err = s.Enqueue(ctx, pendingRecord(42, model.TriggerProfileNeeded, "", now))
	assert.NoError(t, err)
}

func TestStore_Enqueue_FailedRecordAllowsReenqueue(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	id, err := s.Enqueue(ctx, pendingRecord(42, model.TriggerBookConf, "appt-42", now))
	require.NoError(t, err)

	require.NoError(t, s.MarkFailed(ctx, id, "provider rejected"))

	_, err = s.Enqueue(ctx, pendingRecord(42, model.TriggerBookConf, "appt-42", now))
	assert.NoError(t, err)
}

func TestStore_ClaimDue_OnlyDuePending(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	dueID, err := s.Enqueue(ctx, pendingRecord(1, model.TriggerBookConf, "a", now.Add(-time.Minute)))
	require.NoError(t, err)

	_, err = s.Enqueue(ctx, pendingRecord(2, model.TriggerBookConf, "b", now.Add(time.Hour)))
	require.NoError(t, err)

	claimed, err := s.ClaimDue(ctx, 10, now)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	assert.Equal(t, dueID, claimed[0].ID)
	assert.Equal(t, model.StatusProcessing, claimed[0].Status)
	require.NotNil(t, claimed[0].ClaimedAt)

	// Already claimed; a second cycle gets nothing.
	claimed, err = s.ClaimDue(ctx, 10, now)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestStore_ClaimDue_ConcurrentClaimersNeverShareRecords(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	const records = 200
	for i := 0; i < records; i++ {
		_, err := s.Enqueue(ctx, pendingRecord(int64(i+1), model.TriggerRem24h, uuid.NewString(), now.Add(-time.Minute)))
		require.NoError(t, err)
	}

	const claimers = 8

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[uuid.UUID]int)
	)

	for i := 0; i < claimers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				claimed, err := s.ClaimDue(ctx, 7, now)
				assert.NoError(t, err)

				if len(claimed) == 0 {
					return
				}

				mu.Lock()
				for _, rec := range claimed {
					seen[rec.ID]++
				}
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Len(t, seen, records)
	for id, count := range seen {
		assert.Equal(t, 1, count, "record %s claimed %d times", id, count)
	}
}

func TestStore_Reschedule(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	id, err := s.Enqueue(ctx, pendingRecord(42, model.TriggerBookConf, "appt-42", now.Add(-time.Minute)))
	require.NoError(t, err)

	_, err = s.ClaimDue(ctx, 1, now)
	require.NoError(t, err)

	nextAt := now.Add(2 * time.Minute)
	require.NoError(t, s.Reschedule(ctx, id, "timeout", nextAt))

	rec, err := s.GetByID(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, rec.Status)
	assert.Equal(t, 1, rec.AttemptCount)
	assert.Equal(t, "timeout", rec.LastError)
	assert.Equal(t, nextAt, rec.ScheduledFor)
	assert.Nil(t, rec.ClaimedAt)

	// Not due again until nextAt.
	claimed, err := s.ClaimDue(ctx, 1, now)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	claimed, err = s.ClaimDue(ctx, 1, nextAt)
	require.NoError(t, err)
	assert.Len(t, claimed, 1)
}

func TestStore_ReleaseStale(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	id, err := s.Enqueue(ctx, pendingRecord(42, model.TriggerBookConf, "appt-42", now.Add(-time.Hour)))
	require.NoError(t, err)

	_, err = s.ClaimDue(ctx, 1, now.Add(-10*time.Minute))
	require.NoError(t, err)

	released, err := s.ReleaseStale(ctx, now.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	rec, err := s.GetByID(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, rec.Status)
	// A claim timeout is not a delivery attempt.
	assert.Equal(t, 0, rec.AttemptCount)
	assert.Nil(t, rec.ClaimedAt)
}

func TestStore_ReleaseStale_FreshClaimsKept(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	_, err := s.Enqueue(ctx, pendingRecord(42, model.TriggerBookConf, "appt-42", now.Add(-time.Hour)))
	require.NoError(t, err)

	_, err = s.ClaimDue(ctx, 1, now)
	require.NoError(t, err)

	released, err := s.ReleaseStale(ctx, now.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, released)
}

func TestStore_MarkSent(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	id, err := s.Enqueue(ctx, pendingRecord(42, model.TriggerBookConf, "appt-42", now))
	require.NoError(t, err)

	require.NoError(t, s.MarkSent(ctx, id, "msg-123", now))

	rec, err := s.GetByID(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, model.StatusSent, rec.Status)
	assert.Equal(t, "msg-123", rec.ProviderMessageID)
	assert.Equal(t, 1, rec.AttemptCount)
	require.NotNil(t, rec.SentAt)
}

func TestStore_MarkSent_NotFound(t *testing.T) {
	s := New()

	err := s.MarkSent(context.Background(), uuid.New(), "msg-123", time.Now())
	assert.ErrorIs(t, err, notification.ErrNotificationNotFound)
}

func TestStore_ListByRecipient(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	_, err := s.Enqueue(ctx, pendingRecord(42, model.TriggerBookConf, "a", now))
	require.NoError(t, err)
	_, err = s.Enqueue(ctx, pendingRecord(42, model.TriggerRem24h, "b", now))
	require.NoError(t, err)
	_, err = s.Enqueue(ctx, pendingRecord(7, model.TriggerBookConf, "c", now))
	require.NoError(t, err)

	recs, err := s.ListByRecipient(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	_, err = s.ListByRecipient(ctx, 99)
	assert.ErrorIs(t, err, notification.ErrNoNotificationsFound)
}
