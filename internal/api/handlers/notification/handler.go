package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/vitacall/notifier/internal/api/dto"
	"github.com/vitacall/notifier/internal/api/respond"
	"github.com/vitacall/notifier/internal/config"
	"github.com/vitacall/notifier/internal/model"
	notifrepo "github.com/vitacall/notifier/internal/repository/notification"
	notifsvc "github.com/vitacall/notifier/internal/service/notification"
)

type notifService interface {
	EnqueueNotification(context.Context, retry.Strategy, notifsvc.EnqueueInput) (uuid.UUID, error)
	ScheduleAppointmentReminders(context.Context, retry.Strategy, notifsvc.ReminderInput) error
	GetNotificationStatusByID(context.Context, retry.Strategy, uuid.UUID) (string, error)
	GetNotification(ctx context.Context, id uuid.UUID) (model.NotificationRecord, error)
	ListNotifications(ctx context.Context, userID int64) ([]model.NotificationRecord, error)
}

type Handler struct {
	service   notifService
	validator *validator.Validate
	cfg       *config.Config
}

func NewHandler(
	s notifService,
	v *validator.Validate,
	cfg *config.Config,
) *Handler {
	return &Handler{service: s, validator: v, cfg: cfg}
}

// Enqueue accepts a producer event and creates a pending notification.
// A duplicate of an in-flight notification is reported as success with
// no new record.
func (h *Handler) Enqueue(c *ginext.Context) {
	var req dto.EnqueueRequest

	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	trigger := model.TriggerCode(req.TriggerCode)
	if !trigger.Valid() {
		zlog.Logger.Warn().Str("trigger", req.TriggerCode).Msg("unknown trigger code")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("unknown trigger code %q", req.TriggerCode))
		return
	}

	id, err := h.service.EnqueueNotification(c.Request.Context(), h.cfg.Retry, notifsvc.EnqueueInput{
		RecipientUserID: req.RecipientUserID,
		TriggerCode:     trigger,
		Channel:         req.Channel,
		CorrelationID:   req.CorrelationID,
		MergeData:       req.MergeData,
		Locale:          req.Locale,
		ScheduledFor:    req.ScheduledFor,
	})
	if err != nil {
		if errors.Is(err, model.ErrDuplicateNotification) {
			respond.OK(c.Writer, "notification already enqueued")
			return
		}

		zlog.Logger.Error().Err(err).Str("trigger", req.TriggerCode).Msg("failed to enqueue notification")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.Created(c.Writer, id)
}

// ScheduleReminders fans out the reminder set for an appointment. The
// path id becomes the correlation id, so webhook retries are idempotent.
func (h *Handler) ScheduleReminders(c *ginext.Context) {
	appointmentID := c.Param("id")
	if appointmentID == "" {
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("missing appointment id"))
		return
	}

	var req dto.ScheduleRemindersRequest

	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to decode request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid request body"))
		return
	}

	if err := h.validator.Struct(req); err != nil {
		zlog.Logger.Warn().Err(err).Msg("failed to validate request body")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("validation error: %s", err.Error()))
		return
	}

	err := h.service.ScheduleAppointmentReminders(c.Request.Context(), h.cfg.Retry, notifsvc.ReminderInput{
		CorrelationID:   appointmentID,
		AppointmentTime: req.AppointmentTime,
		PatientUserID:   req.PatientUserID,
		DoctorUserID:    req.DoctorUserID,
	})
	if err != nil {
		zlog.Logger.Error().Err(err).Str("appointment_id", appointmentID).Msg("failed to schedule reminders")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.Created(c.Writer, "reminders scheduled")
}

// Get returns the full notification record with audit fields.
func (h *Handler) Get(c *ginext.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	rec, err := h.service.GetNotification(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, notifrepo.ErrNotificationNotFound) {
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("notification not found"))
			return
		}

		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to get notification")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, rec)
}

// GetStatus returns just the record status, served from cache when the
// record has reached a terminal state.
func (h *Handler) GetStatus(c *ginext.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	status, err := h.service.GetNotificationStatusByID(c.Request.Context(), h.cfg.Retry, id)
	if err != nil {
		if errors.Is(err, notifrepo.ErrNotificationNotFound) {
			respond.Fail(c.Writer, http.StatusNotFound, fmt.Errorf("notification not found"))
			return
		}

		zlog.Logger.Error().Err(err).Str("id", id.String()).Msg("failed to get notification status")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, status)
}

// ListByUser returns a recipient's notification history, newest first.
func (h *Handler) ListByUser(c *ginext.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid user id"))
		return
	}

	recs, err := h.service.ListNotifications(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, notifrepo.ErrNoNotificationsFound) {
			respond.OK(c.Writer, []model.NotificationRecord{})
			return
		}

		zlog.Logger.Error().Err(err).Int64("user_id", userID).Msg("failed to list notifications")
		respond.Fail(c.Writer, http.StatusInternalServerError, fmt.Errorf("internal server error"))
		return
	}

	respond.OK(c.Writer, recs)
}

func (h *Handler) parseID(c *ginext.Context) (uuid.UUID, bool) {
	idStr := c.Param("id")

	id, err := uuid.Parse(idStr)
	if err != nil {
		zlog.Logger.Warn().Str("id", idStr).Msg("failed to parse id")
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("invalid id"))
		return uuid.Nil, false
	}

	if id == uuid.Nil {
		respond.Fail(c.Writer, http.StatusBadRequest, fmt.Errorf("missing id"))
		return uuid.Nil, false
	}

	return id, true
}
