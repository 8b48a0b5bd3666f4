package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Notification statuses. A record starts as pending, is claimed into
// processing by exactly one dispatcher, and ends up sent or failed.
// Transient delivery errors return it to pending with a later ScheduledFor.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSent       = "sent"
	StatusFailed     = "failed"
)

// Delivery channels.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

var (
	// ErrDuplicateNotification is returned by the record store when a
	// non-failed record already exists for the same
	// (recipient, trigger, correlation id) tuple. Producers treat it as
	// success: the notification is already in flight.
	ErrDuplicateNotification = errors.New("duplicate notification")

	// ErrEnrichmentNotFound marks a record whose referenced entity
	// (appointment, user) no longer exists. Not retryable.
	ErrEnrichmentNotFound = errors.New("enrichment source not found")

	// ErrTemplateMissing means even the default-locale template is absent.
	// This is a configuration error, not a per-record one.
	ErrTemplateMissing = errors.New("template missing")
)

// NotificationRecord is both the unit of work and the permanent audit
// record. Records are never deleted; failed and sent rows remain as the
// audit trail.
type NotificationRecord struct {
	ID                uuid.UUID         `json:"id"`
	RecipientUserID   int64             `json:"recipient_user_id"`
	TriggerCode       TriggerCode       `json:"trigger_code"`
	Channel           string            `json:"channel"`
	TemplateKey       string            `json:"template_key"`
	CorrelationID     string            `json:"correlation_id,omitempty"`
	MergeData         map[string]string `json:"merge_data,omitempty"`
	Locale            string            `json:"locale"`
	Status            string            `json:"status"`
	ScheduledFor      time.Time         `json:"scheduled_for"`
	AttemptCount      int               `json:"attempt_count"`
	LastError         string            `json:"last_error,omitempty"`
	ProviderMessageID string            `json:"provider_message_id,omitempty"`
	SentAt            *time.Time        `json:"sent_at,omitempty"`
	ClaimedAt         *time.Time        `json:"claimed_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}
