// Package directory reads recipient and appointment data from the
// platform tables. All queries are read-only.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wb-go/wbf/dbpg"

	"github.com/vitacall/notifier/internal/enrich"
)

// Repository resolves users and appointments for enrichment.
type Repository struct {
	db      *dbpg.DB
	baseURL string
}

// NewRepository creates a new directory repository. baseURL is the
// public platform URL used to build consultation join links.
func NewRepository(db *dbpg.DB, baseURL string) *Repository {
	return &Repository{db: db, baseURL: baseURL}
}

// GetUser retrieves a recipient's contact and preference fields.
func (r *Repository) GetUser(ctx context.Context, id int64) (enrich.User, error) {
	query := `
		SELECT id, email, COALESCE(phone, ''), COALESCE(first_name, ''),
		       COALESCE(last_name, ''), COALESCE(locale, ''), COALESCE(timezone, '')
		FROM users
		WHERE id = $1;
    `

	var u enrich.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Email, &u.Phone, &u.FirstName, &u.LastName, &u.Locale, &u.Timezone,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return enrich.User{}, fmt.Errorf("user %d: %w", id, enrich.ErrNotFound)
		}

		return enrich.User{}, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

// GetAppointmentSummary retrieves the appointment fields templates
// reference, joined with the doctor's and patient's display names.
func (r *Repository) GetAppointmentSummary(ctx context.Context, correlationID string) (enrich.AppointmentSummary, error) {
	query := `
		SELECT a.id,
		       COALESCE('Dr. ' || du.last_name, ''),
		       COALESCE(d.specialization, ''),
		       COALESCE(pu.first_name, ''),
		       a.starts_at,
		       COALESCE(a.price::text, '')
		FROM appointments a
		JOIN users pu ON pu.id = a.patient_user_id
		JOIN doctors d ON d.id = a.doctor_id
		JOIN users du ON du.id = d.user_id
		WHERE a.id::text = $1;
    `

	var s enrich.AppointmentSummary
	err := r.db.QueryRowContext(ctx, query, correlationID).Scan(
		&s.ID, &s.DoctorName, &s.DoctorSpecialization, &s.PatientFirstName, &s.StartUTC, &s.Price,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return enrich.AppointmentSummary{}, fmt.Errorf("appointment %s: %w", correlationID, enrich.ErrNotFound)
		}

		return enrich.AppointmentSummary{}, fmt.Errorf("failed to get appointment: %w", err)
	}

	s.JoinLink = fmt.Sprintf("%s/consultation/%s", r.baseURL, s.ID)

	return s, nil
}
