// Package provider wraps the external delivery APIs behind a single
// adapter and normalizes their failures into a retryable/permanent
// taxonomy the dispatcher can act on.
package provider

import (
	"context"
	"fmt"

	"github.com/vitacall/notifier/internal/model"
)

// SendError is a delivery failure with its retry classification.
// Rate limits, 5xx responses and network timeouts are retryable; invalid
// recipients, rejected content and suspended accounts are not.
type SendError struct {
	Retryable bool
	Reason    string
	Err       error
}

func (e *SendError) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "transient"
	}

	return fmt.Sprintf("%s delivery error: %s: %v", kind, e.Reason, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Attachment is a file attached to an outgoing email.
type Attachment struct {
	Filename    string
	Content     []byte
	ContentType string
}

// Email is a fully rendered outgoing email.
type Email struct {
	To              string
	Subject         string
	HTML            string
	Text            string
	DisableTracking bool
	Attachments     []Attachment
}

// EmailSender delivers a rendered email and returns the provider
// message id.
type EmailSender interface {
	SendEmail(ctx context.Context, msg Email) (string, error)
}

// SMSSender delivers a rendered SMS and returns the provider message id.
type SMSSender interface {
	SendSMS(ctx context.Context, to, text string) (string, error)
}

// Request is one delivery through the adapter.
type Request struct {
	Channel  string
	Category string
	To       string
	Subject  string
	HTML     string
	Text     string

	Attachments []Attachment
}

// Adapter routes a request to the channel's sender and applies the
// fixed tracking policy: security-category messages never carry
// click/open tracking.
type Adapter struct {
	email EmailSender
	sms   SMSSender
}

func NewAdapter(email EmailSender, sms SMSSender) *Adapter {
	return &Adapter{email: email, sms: sms}
}

// Send delivers the request and returns the provider message id.
// Failures are always a *SendError.
func (a *Adapter) Send(ctx context.Context, req Request) (string, error) {
	switch req.Channel {
	case model.ChannelEmail:
		if req.To == "" {
			return "", &SendError{Retryable: false, Reason: "recipient has no email address", Err: fmt.Errorf("empty recipient")}
		}

		return a.email.SendEmail(ctx, Email{
			To:              req.To,
			Subject:         req.Subject,
			HTML:            req.HTML,
			Text:            req.Text,
			DisableTracking: req.Category == model.CategorySecurity,
			Attachments:     req.Attachments,
		})
	case model.ChannelSMS:
		if req.To == "" {
			return "", &SendError{Retryable: false, Reason: "recipient has no phone number", Err: fmt.Errorf("empty recipient")}
		}

		return a.sms.SendSMS(ctx, req.To, req.Text)
	default:
		return "", &SendError{Retryable: false, Reason: "unsupported channel " + req.Channel, Err: fmt.Errorf("unknown channel")}
	}
}

// retryableStatus classifies an HTTP status from a delivery API.
func retryableStatus(status int) bool {
	switch {
	case status == 408 || status == 429:
		return true
	case status >= 500:
		return true
	default:
		return false
	}
}
