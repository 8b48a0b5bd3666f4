// Package enrich completes the merge data a template needs from a
// record's partial producer payload plus read-only lookups against
// injected collaborators.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vitacall/notifier/internal/model"
)

// ErrNotFound is returned by directory implementations when the
// requested entity does not exist.
var ErrNotFound = errors.New("not found")

// User is the recipient view the pipeline needs.
type User struct {
	ID        int64
	Email     string
	Phone     string
	FirstName string
	LastName  string
	Locale    string
	Timezone  string
}

// AppointmentSummary is the appointment view resolved from a
// correlation id.
type AppointmentSummary struct {
	ID                   string
	DoctorName           string
	DoctorSpecialization string
	PatientFirstName     string
	StartUTC             time.Time
	JoinLink             string
	Price                string
}

// UserDirectory resolves recipients.
type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (User, error)
}

// AppointmentDirectory resolves appointment correlation ids.
type AppointmentDirectory interface {
	GetAppointmentSummary(ctx context.Context, correlationID string) (AppointmentSummary, error)
}

// Enricher layers derived fields under the producer-supplied merge data.
// It performs no writes anywhere; the record itself is untouched.
type Enricher struct {
	appointments AppointmentDirectory
	baseURL      string
}

func New(appointments AppointmentDirectory, baseURL string) *Enricher {
	return &Enricher{appointments: appointments, baseURL: baseURL}
}

// Enrich returns the complete merge-data set for the record.
//
// Producer-supplied fields always win: a key present in the record's
// merge data is never overwritten by a derived value. Missing fields are
// filled from lookups or documented fallbacks ("Your doctor", "Patient"),
// never left to leak a null placeholder into rendered output.
//
// A correlation id that no longer resolves is wrapped in
// model.ErrEnrichmentNotFound; the condition will not fix itself, so the
// caller fails the record permanently.
func (e *Enricher) Enrich(ctx context.Context, rec model.NotificationRecord, user User) (map[string]string, error) {
	out := make(map[string]string, len(rec.MergeData)+12)
	for k, v := range rec.MergeData {
		out[k] = v
	}

	setIfEmpty(out, "first_name", user.FirstName)
	setIfEmpty(out, "last_name", user.LastName)
	setIfEmpty(out, "patient_first_name", user.FirstName)

	setIfEmpty(out, "profile_link", e.baseURL+"/patient/health-profile")
	setIfEmpty(out, "dashboard_link", e.baseURL+"/doctor/dashboard")
	setIfEmpty(out, "booking_link", e.baseURL+"/patient/book")

	if rec.TriggerCode.NeedsAppointment() && rec.CorrelationID != "" {
		appt, err := e.appointments.GetAppointmentSummary(ctx, rec.CorrelationID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, fmt.Errorf("%w: appointment %s", model.ErrEnrichmentNotFound, rec.CorrelationID)
			}

			return nil, fmt.Errorf("appointment lookup for %s: %w", rec.CorrelationID, err)
		}

		setIfEmpty(out, "appointment_id", appt.ID)
		setIfEmpty(out, "doctor_name", appt.DoctorName)
		setIfEmpty(out, "doctor_specialization", appt.DoctorSpecialization)
		setIfEmpty(out, "patient_name", appt.PatientFirstName)
		setIfEmpty(out, "join_link", appt.JoinLink)
		setIfEmpty(out, "price", appt.Price)

		if !appt.StartUTC.IsZero() {
			setIfEmpty(out, "appointment_datetime_utc", appt.StartUTC.UTC().Format(time.RFC3339))
			setIfEmpty(out, "appointment_datetime_local", localTime(appt.StartUTC, user.Timezone))
		}

		setIfEmpty(out, "review_link", fmt.Sprintf("%s/patient/appointments/%s/review", e.baseURL, appt.ID))
	}

	// Documented fallbacks for personalization fields a template may
	// still reference after a partial lookup.
	setIfEmpty(out, "first_name", "Patient")
	setIfEmpty(out, "patient_first_name", "Patient")
	setIfEmpty(out, "last_name", "Doctor")
	setIfEmpty(out, "patient_name", "your patient")
	setIfEmpty(out, "doctor_name", "Your doctor")

	return out, nil
}

func setIfEmpty(data map[string]string, key, value string) {
	if data[key] == "" && value != "" {
		data[key] = value
	}
}

// localTime renders the UTC appointment time in the user's timezone,
// falling back to UTC when the timezone is absent or unknown.
func localTime(t time.Time, tz string) string {
	loc := time.UTC

	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}

	return t.In(loc).Format("Monday, January 2, 2006 at 15:04")
}
