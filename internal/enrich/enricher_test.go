package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitacall/notifier/internal/model"
)

type stubAppointments struct {
	summary AppointmentSummary
	err     error
}

func (s *stubAppointments) GetAppointmentSummary(context.Context, string) (AppointmentSummary, error) {
	return s.summary, s.err
}

const baseURL = "https://vitacall.example"

func TestEnrich_AppointmentFields(t *testing.T) {
	start := time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)

	e := New(&stubAppointments{summary: AppointmentSummary{
		ID:                   "42",
		DoctorName:           "Dr. Dubois",
		DoctorSpecialization: "Dermatology",
		PatientFirstName:     "Anna",
		StartUTC:             start,
		JoinLink:             baseURL + "/consultation/42",
		Price:                "35 EUR",
	}}, baseURL)

	rec := model.NotificationRecord{
		TriggerCode:   model.TriggerBookConf,
		CorrelationID: "42",
	}
	user := User{ID: 1, FirstName: "Anna", Timezone: "Europe/Paris"}

	out, err := e.Enrich(context.Background(), rec, user)
	require.NoError(t, err)

	assert.Equal(t, "42", out["appointment_id"])
	assert.Equal(t, "Dr. Dubois", out["doctor_name"])
	assert.Equal(t, "Dermatology", out["doctor_specialization"])
	assert.Equal(t, baseURL+"/consultation/42", out["join_link"])
	assert.Equal(t, "2025-10-06T12:00:00Z", out["appointment_datetime_utc"])
	// Paris is UTC+2 in October.
	assert.Equal(t, "Monday, October 6, 2025 at 14:00", out["appointment_datetime_local"])
	assert.Equal(t, baseURL+"/patient/appointments/42/review", out["review_link"])
}

func TestEnrich_ProducerFieldsWin(t *testing.T) {
	e := New(&stubAppointments{summary: AppointmentSummary{
		ID:         "42",
		DoctorName: "Dr. Dubois",
		StartUTC:   time.Now(),
	}}, baseURL)

	rec := model.NotificationRecord{
		TriggerCode:   model.TriggerBookConf,
		CorrelationID: "42",
		MergeData: map[string]string{
			"doctor_name": "Dr. Producer",
			"join_link":   "https://override.example/room",
		},
	}

	out, err := e.Enrich(context.Background(), rec, User{FirstName: "Anna"})
	require.NoError(t, err)

	assert.Equal(t, "Dr. Producer", out["doctor_name"])
	assert.Equal(t, "https://override.example/room", out["join_link"])

	// The record's own merge data is untouched.
	assert.Len(t, rec.MergeData, 2)
}

func TestEnrich_AppointmentGone(t *testing.T) {
	e := New(&stubAppointments{err: ErrNotFound}, baseURL)

	rec := model.NotificationRecord{
		TriggerCode:   model.TriggerRem24h,
		CorrelationID: "gone",
	}

	_, err := e.Enrich(context.Background(), rec, User{})
	assert.ErrorIs(t, err, model.ErrEnrichmentNotFound)
}

func TestEnrich_TransientLookupFailure(t *testing.T) {
	e := New(&stubAppointments{err: errors.New("connection refused")}, baseURL)

	rec := model.NotificationRecord{
		TriggerCode:   model.TriggerRem24h,
		CorrelationID: "42",
	}

	_, err := e.Enrich(context.Background(), rec, User{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrEnrichmentNotFound)
}

func TestEnrich_NoAppointmentLookupWithoutCorrelation(t *testing.T) {
	// A nil directory would panic if the lookup ran.
	e := New(nil, baseURL)

	rec := model.NotificationRecord{TriggerCode: model.TriggerFreeCredit}

	out, err := e.Enrich(context.Background(), rec, User{FirstName: "Anna"})
	require.NoError(t, err)
	assert.Equal(t, "Anna", out["first_name"])
}

func TestEnrich_PersonalizationFallbacks(t *testing.T) {
	e := New(nil, baseURL)

	rec := model.NotificationRecord{TriggerCode: model.TriggerFreeCredit}

	out, err := e.Enrich(context.Background(), rec, User{})
	require.NoError(t, err)

	assert.Equal(t, "Patient", out["first_name"])
	assert.Equal(t, "Patient", out["patient_first_name"])
	assert.Equal(t, "Your doctor", out["doctor_name"])
}

func TestEnrich_UnknownTimezoneFallsBackToUTC(t *testing.T) {
	start := time.Date(2025, 10, 6, 12, 0, 0, 0, time.UTC)

	e := New(&stubAppointments{summary: AppointmentSummary{ID: "42", StartUTC: start}}, baseURL)

	rec := model.NotificationRecord{
		TriggerCode:   model.TriggerRem24h,
		CorrelationID: "42",
	}

	out, err := e.Enrich(context.Background(), rec, User{Timezone: "Mars/Olympus"})
	require.NoError(t, err)
	assert.Equal(t, "Monday, October 6, 2025 at 12:00", out["appointment_datetime_local"])
}
