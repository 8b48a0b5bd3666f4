package provider

import (
	"context"
	"errors"

	"github.com/vitacall/notifier/pkg/sendgrid"
	"github.com/vitacall/notifier/pkg/smsgate"
	"github.com/vitacall/notifier/pkg/smtpmail"
)

// SendGridSender adapts the transactional email API client.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

func NewSendGridSender(client *sendgrid.Client, fromEmail, fromName string) *SendGridSender {
	return &SendGridSender{client: client, fromEmail: fromEmail, fromName: fromName}
}

func (s *SendGridSender) SendEmail(ctx context.Context, msg Email) (string, error) {
	attachments := make([]sendgrid.Attachment, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		attachments = append(attachments, sendgrid.Attachment{
			Filename:    a.Filename,
			Content:     a.Content,
			ContentType: a.ContentType,
		})
	}

	id, err := s.client.Send(ctx, sendgrid.Message{
		To:              msg.To,
		FromEmail:       s.fromEmail,
		FromName:        s.fromName,
		Subject:         msg.Subject,
		HTML:            msg.HTML,
		Text:            msg.Text,
		DisableTracking: msg.DisableTracking,
		Attachments:     attachments,
	})
	if err != nil {
		var apiErr *sendgrid.APIError
		if errors.As(err, &apiErr) {
			return "", &SendError{
				Retryable: retryableStatus(apiErr.StatusCode),
				Reason:    "email API rejected the message",
				Err:       err,
			}
		}

		// No HTTP status means the request never completed: network
		// failure or timeout, worth retrying.
		return "", &SendError{Retryable: true, Reason: "email API unreachable", Err: err}
	}

	return id, nil
}

// SMTPSender adapts the SMTP transport. SMTP gives no message id; the
// record keeps an empty one.
type SMTPSender struct {
	client    *smtpmail.Client
	fromEmail string
	fromName  string
}

func NewSMTPSender(client *smtpmail.Client, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{client: client, fromEmail: fromEmail, fromName: fromName}
}

func (s *SMTPSender) SendEmail(ctx context.Context, msg Email) (string, error) {
	attachments := make([]smtpmail.Attachment, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		attachments = append(attachments, smtpmail.Attachment{
			Filename:    a.Filename,
			Content:     a.Content,
			ContentType: a.ContentType,
		})
	}

	err := s.client.Send(ctx, s.fromEmail, s.fromName, msg.To, msg.Subject, msg.HTML, msg.Text, attachments)
	if err != nil {
		// SMTP rejection codes are not worth parsing here; the attempt
		// cap bounds how long a genuinely bad address keeps retrying.
		return "", &SendError{Retryable: true, Reason: "smtp delivery failed", Err: err}
	}

	return "", nil
}

// SMSGateSender adapts the SMS gateway client.
type SMSGateSender struct {
	client *smsgate.Client
}

func NewSMSGateSender(client *smsgate.Client) *SMSGateSender {
	return &SMSGateSender{client: client}
}

func (s *SMSGateSender) SendSMS(ctx context.Context, to, text string) (string, error) {
	id, err := s.client.Send(ctx, to, text)
	if err != nil {
		var apiErr *smsgate.APIError
		if errors.As(err, &apiErr) {
			return "", &SendError{
				Retryable: retryableStatus(apiErr.StatusCode),
				Reason:    "sms gateway rejected the message",
				Err:       err,
			}
		}

		return "", &SendError{Retryable: true, Reason: "sms gateway unreachable", Err: err}
	}

	return id, nil
}
