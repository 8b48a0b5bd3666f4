package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/wb-go/wbf/dbpg"

	"github.com/vitacall/notifier/internal/model"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNoNotificationsFound = errors.New("no notifications found")
)

// Repository provides methods to interact with the notifications table.
// The table is both the work queue and the audit trail; rows are never
// deleted.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new notification repository.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `
	id, recipient_user_id, trigger_code, channel, template_key,
	correlation_id, merge_data, locale, status, scheduled_for,
	attempt_count, last_error, provider_message_id, sent_at, claimed_at,
	created_at, updated_at`

// Enqueue inserts a new notification record and returns its ID.
//
// A partial unique index over (recipient_user_id, trigger_code,
// correlation_id) for non-failed rows enforces the at-most-one-in-flight
// invariant at the store level, so concurrent producers cannot race past
// an application check. Violations map to model.ErrDuplicateNotification.
func (r *Repository) Enqueue(ctx context.Context, rec model.NotificationRecord) (uuid.UUID, error) {
	query := `
		INSERT INTO notifications (
		    recipient_user_id, trigger_code, channel, template_key,
		    correlation_id, merge_data, locale, status, scheduled_for
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9)
		RETURNING id;
    `

	mergeData, err := json.Marshal(rec.MergeData)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal merge data: %w", err)
	}

	var id uuid.UUID
	err = r.db.QueryRowContext(
		ctx, query,
		rec.RecipientUserID, string(rec.TriggerCode), rec.Channel, rec.TemplateKey,
		rec.CorrelationID, mergeData, rec.Locale, model.StatusPending, rec.ScheduledFor,
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return uuid.Nil, model.ErrDuplicateNotification
		}

		return uuid.Nil, fmt.Errorf("failed to enqueue notification: %w", err)
	}

	return id, nil
}

// ClaimDue atomically claims up to limit due pending records, flipping
// them to processing. FOR UPDATE SKIP LOCKED guarantees two dispatcher
// instances never claim the same row.
func (r *Repository) ClaimDue(ctx context.Context, limit int, now time.Time) ([]model.NotificationRecord, error) {
	query := `
		UPDATE notifications
		SET status = 'processing', claimed_at = $2, updated_at = $2
		WHERE id IN (
		    SELECT id FROM notifications
		    WHERE status = 'pending' AND scheduled_for <= $2
		    ORDER BY scheduled_for
		    LIMIT $1
		    FOR UPDATE SKIP LOCKED
		)
		RETURNING` + recordColumns + `;
    `

	rows, err := r.db.QueryContext(ctx, query, limit, now)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due notifications: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// MarkSent transitions a claimed record to its terminal sent state.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID, providerMessageID string, at time.Time) error {
	query := `
		UPDATE notifications
		SET status = 'sent', provider_message_id = $2, sent_at = $3,
		    attempt_count = attempt_count + 1, updated_at = $3
		WHERE id = $1;
    `

	return r.exec(ctx, query, id, providerMessageID, at)
}

// Reschedule returns a claimed record to pending after a transient
// failure, recording the error and the next attempt time.
func (r *Repository) Reschedule(ctx context.Context, id uuid.UUID, lastError string, nextAt time.Time) error {
	query := `
		UPDATE notifications
		SET status = 'pending', last_error = $2, scheduled_for = $3,
		    attempt_count = attempt_count + 1, claimed_at = NULL, updated_at = now()
		WHERE id = $1;
    `

	return r.exec(ctx, query, id, lastError, nextAt)
}

// MarkFailed transitions a record to its terminal failed state.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	query := `
		UPDATE notifications
		SET status = 'failed', last_error = $2,
		    attempt_count = attempt_count + 1, updated_at = now()
		WHERE id = $1;
    `

	return r.exec(ctx, query, id, lastError)
}

// ReleaseStale returns records stuck in processing (claimed before the
// given cutoff, e.g. after a dispatcher crash) back to pending. The
// attempt count is untouched: a claim timeout is not a delivery attempt.
func (r *Repository) ReleaseStale(ctx context.Context, claimedBefore time.Time) (int64, error) {
	query := `
		UPDATE notifications
		SET status = 'pending', claimed_at = NULL, updated_at = now()
		WHERE status = 'processing' AND claimed_at < $1;
    `

	res, err := r.db.ExecContext(ctx, query, claimedBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to release stale notifications: %w", err)
	}

	released, _ := res.RowsAffected()

	return released, nil
}

// GetByID retrieves a single notification record.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (model.NotificationRecord, error) {
	query := `
		SELECT` + recordColumns + `
		FROM notifications
		WHERE id = $1;
    `

	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return model.NotificationRecord{}, fmt.Errorf("failed to get notification: %w", err)
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return model.NotificationRecord{}, err
	}

	if len(recs) == 0 {
		return model.NotificationRecord{}, ErrNotificationNotFound
	}

	return recs[0], nil
}

// GetStatusByID retrieves only the status of a notification record.
func (r *Repository) GetStatusByID(ctx context.Context, id uuid.UUID) (string, error) {
	query := `
		SELECT status
		FROM notifications
		WHERE id = $1;
    `

	var status string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotificationNotFound
		}

		return "", fmt.Errorf("failed to get notification status: %w", err)
	}

	return status, nil
}

// ListByRecipient retrieves a user's notification records, newest first.
// This is the audit read API; status, last_error, attempt_count and
// sent_at on the rows replace ad-hoc SQL diagnostics.
func (r *Repository) ListByRecipient(ctx context.Context, userID int64) ([]model.NotificationRecord, error) {
	query := `
		SELECT` + recordColumns + `
		FROM notifications
		WHERE recipient_user_id = $1
		ORDER BY created_at DESC;
    `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	recs, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	if len(recs) == 0 {
		return nil, ErrNoNotificationsFound
	}

	return recs, nil
}

func (r *Repository) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}

	rows, _ := res.RowsAffected()

	if rows == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

func scanRecords(rows *sql.Rows) ([]model.NotificationRecord, error) {
	var recs []model.NotificationRecord

	for rows.Next() {
		var (
			rec           model.NotificationRecord
			trigger       string
			correlationID sql.NullString
			mergeData     []byte
			lastError     sql.NullString
			providerMsgID sql.NullString
			sentAt        sql.NullTime
			claimedAt     sql.NullTime
		)

		err := rows.Scan(
			&rec.ID, &rec.RecipientUserID, &trigger, &rec.Channel, &rec.TemplateKey,
			&correlationID, &mergeData, &rec.Locale, &rec.Status, &rec.ScheduledFor,
			&rec.AttemptCount, &lastError, &providerMsgID, &sentAt, &claimedAt,
			&rec.CreatedAt, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		rec.TriggerCode = model.TriggerCode(trigger)
		rec.CorrelationID = correlationID.String
		rec.LastError = lastError.String
		rec.ProviderMessageID = providerMsgID.String

		if sentAt.Valid {
			t := sentAt.Time
			rec.SentAt = &t
		}

		if claimedAt.Valid {
			t := claimedAt.Time
			rec.ClaimedAt = &t
		}

		if len(mergeData) > 0 {
			if err := json.Unmarshal(mergeData, &rec.MergeData); err != nil {
				return nil, fmt.Errorf("failed to unmarshal merge data: %w", err)
			}
		}

		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read notifications: %w", err)
	}

	return recs, nil
}
