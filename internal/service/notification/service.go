package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/vitacall/notifier/internal/enrich"
	"github.com/vitacall/notifier/internal/model"
)

//go:generate mockgen -source=service.go -destination=../../mocks/service/notification/mock.go -package=mocks

type notificationRepository interface {
	Enqueue(ctx context.Context, rec model.NotificationRecord) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.NotificationRecord, error)
	GetStatusByID(ctx context.Context, id uuid.UUID) (string, error)
	ListByRecipient(ctx context.Context, userID int64) ([]model.NotificationRecord, error)
}

type userDirectory interface {
	GetUser(ctx context.Context, id int64) (enrich.User, error)
}

type cache interface {
	SetWithRetry(ctx context.Context, strategy retry.Strategy, key string, value interface{}) error
	GetWithRetry(ctx context.Context, strategy retry.Strategy, key string) (string, error)
}

// EnqueueInput is the producer-facing enqueue request.
type EnqueueInput struct {
	RecipientUserID int64
	TriggerCode     model.TriggerCode
	Channel         string
	CorrelationID   string
	MergeData       map[string]string
	Locale          string
	ScheduledFor    time.Time
}

// Service is the producer-facing surface of the pipeline: it creates
// notification records and serves the audit read API.
type Service struct {
	repo          notificationRepository
	users         userDirectory
	cache         cache
	defaultLocale string
}

func NewService(repo notificationRepository, users userDirectory, cache cache, defaultLocale string) *Service {
	return &Service{repo: repo, users: users, cache: cache, defaultLocale: defaultLocale}
}

// EnqueueNotification creates a pending record for the event.
//
// The recipient's locale is captured here, at creation time: later
// preference changes never retroactively alter in-flight notifications.
// A model.ErrDuplicateNotification return means an equivalent record is
// already in flight; callers treat it as success.
func (s *Service) EnqueueNotification(ctx context.Context, strategy retry.Strategy, in EnqueueInput) (uuid.UUID, error) {
	if !in.TriggerCode.Valid() {
		return uuid.Nil, fmt.Errorf("unknown trigger code %q", string(in.TriggerCode))
	}

	templateKey, err := in.TriggerCode.TemplateKey()
	if err != nil {
		return uuid.Nil, err
	}

	locale := in.Locale
	if locale == "" {
		locale = s.resolveLocale(ctx, in.RecipientUserID)
	}

	scheduledFor := in.ScheduledFor
	if scheduledFor.IsZero() {
		scheduledFor = time.Now()
	}

	rec := model.NotificationRecord{
		RecipientUserID: in.RecipientUserID,
		TriggerCode:     in.TriggerCode,
		Channel:         in.Channel,
		TemplateKey:     templateKey,
		CorrelationID:   in.CorrelationID,
		MergeData:       in.MergeData,
		Locale:          locale,
		Status:          model.StatusPending,
		ScheduledFor:    scheduledFor,
	}

	id, err := s.repo.Enqueue(ctx, rec)
	if err != nil {
		if errors.Is(err, model.ErrDuplicateNotification) {
			return uuid.Nil, err
		}

		return uuid.Nil, fmt.Errorf("enqueue notification: %w", err)
	}

	err = s.cache.SetWithRetry(ctx, strategy, id.String(), model.StatusPending)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to cache notification status")
	}

	return id, nil
}

// ReminderInput describes an appointment whose reminders should be
// fanned out.
type ReminderInput struct {
	CorrelationID   string
	AppointmentTime time.Time
	PatientUserID   int64
	DoctorUserID    int64
}

// ScheduleAppointmentReminders fans out the deferred reminder set for a
// booked appointment: 24h email to the patient, 1h email to the doctor,
// 5m SMS to the patient. Duplicates are skipped silently; the uniqueness
// invariant makes re-invocation (webhook retries) harmless.
func (s *Service) ScheduleAppointmentReminders(ctx context.Context, strategy retry.Strategy, in ReminderInput) error {
	reminders := []EnqueueInput{
		{
			RecipientUserID: in.PatientUserID,
			TriggerCode:     model.TriggerRem24h,
			Channel:         model.ChannelEmail,
			CorrelationID:   in.CorrelationID,
			ScheduledFor:    in.AppointmentTime.Add(-24 * time.Hour),
		},
		{
			RecipientUserID: in.DoctorUserID,
			TriggerCode:     model.TriggerRem1hDoc,
			Channel:         model.ChannelEmail,
			CorrelationID:   in.CorrelationID,
			ScheduledFor:    in.AppointmentTime.Add(-time.Hour),
		},
		{
			RecipientUserID: in.PatientUserID,
			TriggerCode:     model.TriggerRem5mPat,
			Channel:         model.ChannelSMS,
			CorrelationID:   in.CorrelationID,
			ScheduledFor:    in.AppointmentTime.Add(-5 * time.Minute),
		},
	}

	for _, reminder := range reminders {
		_, err := s.EnqueueNotification(ctx, strategy, reminder)
		if err != nil {
			if errors.Is(err, model.ErrDuplicateNotification) {
				continue
			}

			return fmt.Errorf("schedule %s reminder: %w", reminder.TriggerCode, err)
		}
	}

	return nil
}

// GetNotificationStatusByID returns the record status, consulting the
// cache first. Only terminal statuses are cached: pending and processing
// change underneath us, and the dispatcher writes straight to the store.
func (s *Service) GetNotificationStatusByID(ctx context.Context, strategy retry.Strategy, id uuid.UUID) (string, error) {
	status, err := s.cache.GetWithRetry(ctx, strategy, id.String())
	if err != nil && !errors.Is(err, redis.Nil) {
		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to get notification status from cache")
	}

	if err == nil && (status == model.StatusSent || status == model.StatusFailed) {
		return status, nil
	}

	status, err = s.repo.GetStatusByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("get notification status: %w", err)
	}

	if status == model.StatusSent || status == model.StatusFailed {
		if err := s.cache.SetWithRetry(ctx, strategy, id.String(), status); err != nil {
			zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to cache notification status")
		}
	}

	return status, nil
}

// GetNotification returns the full record, audit fields included.
func (s *Service) GetNotification(ctx context.Context, id uuid.UUID) (model.NotificationRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return model.NotificationRecord{}, fmt.Errorf("get notification: %w", err)
	}

	return rec, nil
}

// ListNotifications returns a recipient's records, newest first.
func (s *Service) ListNotifications(ctx context.Context, userID int64) ([]model.NotificationRecord, error) {
	recs, err := s.repo.ListByRecipient(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	return recs, nil
}

// resolveLocale looks up the recipient's preferred locale, defaulting
// when the user or their preference is absent.
func (s *Service) resolveLocale(ctx context.Context, userID int64) string {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil || user.Locale == "" {
		return s.defaultLocale
	}

	return user.Locale
}
