package dto

import "time"

// EnqueueRequest is the body of POST /api/notifications.
type EnqueueRequest struct {
	RecipientUserID int64             `json:"recipient_user_id" validate:"required,gt=0"`
	TriggerCode     string            `json:"trigger_code" validate:"required"`
	Channel         string            `json:"channel" validate:"required,oneof=email sms"`
	CorrelationID   string            `json:"correlation_id"`
	MergeData       map[string]string `json:"merge_data"`
	Locale          string            `json:"locale"`
	ScheduledFor    time.Time         `json:"scheduled_for"`
}

// ScheduleRemindersRequest is the body of
// POST /api/appointments/:id/reminders.
type ScheduleRemindersRequest struct {
	AppointmentTime time.Time `json:"appointment_time" validate:"required"`
	PatientUserID   int64     `json:"patient_user_id" validate:"required,gt=0"`
	DoctorUserID    int64     `json:"doctor_user_id" validate:"required,gt=0"`
}
