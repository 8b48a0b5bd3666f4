package model

import "fmt"

// TriggerCode identifies the domain event that caused a notification.
type TriggerCode string

const (
	TriggerBookConf       TriggerCode = "BOOK_CONF"
	TriggerRem24h         TriggerCode = "REM_24H"
	TriggerRem1hDoc       TriggerCode = "REM_1H_DOC"
	TriggerRem10mDoc      TriggerCode = "REM_10M_DOC"
	TriggerRem5mPat       TriggerCode = "REM_5M_PAT"
	TriggerResched        TriggerCode = "RESCHED"
	TriggerCancel         TriggerCode = "CANCEL"
	TriggerSurvey         TriggerCode = "SURVEY"
	TriggerNoShow         TriggerCode = "NO_SHOW"
	TriggerFreeCredit     TriggerCode = "FREE_CREDIT"
	TriggerProfileNeeded  TriggerCode = "PROFILE_NEEDED"
	TriggerPasswordReset  TriggerCode = "PASSWORD_RESET"
	TriggerDoctorApproved TriggerCode = "DOCTOR_APPROVED"
)

// Trigger categories. Security-category messages must never carry
// click/open tracking: rewritten links in password-reset emails trip
// third-party security scanners.
const (
	CategorySecurity      = "security"
	CategoryTransactional = "transactional"
	CategoryReminder      = "reminder"
	CategoryLifecycle     = "lifecycle"
)

type triggerInfo struct {
	templateKey      string
	category         string
	calendarInvite   bool // booking-related emails ship an .ics attachment
	needsAppointment bool
}

var triggers = map[TriggerCode]triggerInfo{
	TriggerBookConf:       {"booking_confirmation", CategoryTransactional, true, true},
	TriggerRem24h:         {"booking_reminder_24h", CategoryReminder, false, true},
	TriggerRem1hDoc:       {"doctor_upcoming_1h", CategoryReminder, false, true},
	TriggerRem10mDoc:      {"sms_doctor_10m", CategoryReminder, false, true},
	TriggerRem5mPat:       {"sms_patient_5m", CategoryReminder, false, true},
	TriggerResched:        {"reschedule_confirmation", CategoryTransactional, true, true},
	TriggerCancel:         {"cancellation_confirmation", CategoryTransactional, false, true},
	TriggerSurvey:         {"post_call_survey", CategoryLifecycle, false, true},
	TriggerNoShow:         {"doctor_no_show_patient", CategoryTransactional, false, true},
	TriggerFreeCredit:     {"welcome_free_credit", CategoryLifecycle, false, false},
	TriggerProfileNeeded:  {"profile_reminder", CategoryLifecycle, false, false},
	TriggerPasswordReset:  {"password_reset", CategorySecurity, false, false},
	TriggerDoctorApproved: {"welcome_doctor", CategoryLifecycle, false, false},
}

// Valid reports whether the trigger code is known.
func (t TriggerCode) Valid() bool {
	_, ok := triggers[t]
	return ok
}

// TemplateKey returns the template identifier for the trigger.
func (t TriggerCode) TemplateKey() (string, error) {
	info, ok := triggers[t]
	if !ok {
		return "", fmt.Errorf("unknown trigger code %q", string(t))
	}

	return info.templateKey, nil
}

// Category returns the notification category for the trigger. Unknown
// triggers are treated as transactional, the most conservative bucket.
func (t TriggerCode) Category() string {
	info, ok := triggers[t]
	if !ok {
		return CategoryTransactional
	}

	return info.category
}

// HasCalendarInvite reports whether messages for this trigger carry an
// .ics calendar attachment.
func (t TriggerCode) HasCalendarInvite() bool {
	return triggers[t].calendarInvite
}

// NeedsAppointment reports whether enrichment must resolve the
// correlation id into appointment details for this trigger.
func (t TriggerCode) NeedsAppointment() bool {
	return triggers[t].needsAppointment
}
