// Package smtpmail sends email over plain SMTP. It is the development
// and fallback transport; production uses the transactional API client.
package smtpmail

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/mail.v2"
)

type Client struct {
	host     string
	port     int
	username string
	password string
}

func NewClient(host string, port int, username, password string) *Client {
	return &Client{
		host:     host,
		port:     port,
		username: username,
		password: password,
	}
}

// Attachment is a file attached to an outgoing message.
type Attachment struct {
	Filename    string
	Content     []byte
	ContentType string
}

// Send delivers a single message. SMTP has no message id to return, so
// the caller gets an empty id on success. The context is honored only
// between attempts; a dial in flight is bounded by the dialer timeout.
func (c *Client) Send(ctx context.Context, from, fromName, to, subject, htmlBody, textBody string, attachments []Attachment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := mail.NewMessage()

	msg.SetAddressHeader("From", from, fromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)

	msg.SetBody("text/plain", textBody)

	if htmlBody != "" {
		msg.AddAlternative("text/html", htmlBody)
	}

	for _, a := range attachments {
		a := a
		msg.Attach(a.Filename, mail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(a.Content)
			return err
		}))
	}

	dialer := mail.NewDialer(c.host, c.port, c.username, c.password)

	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}
