// Package sendgrid provides a client for a SendGrid-compatible
// transactional email API.
//
// It covers the single call the notifier needs: send one message, return
// the provider message id, and expose the HTTP status of failures so the
// caller can classify them.
package sendgrid

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.sendgrid.com"

// Client represents a SendGrid API client.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a client with the given API key. baseURL overrides
// the public API endpoint (used by tests); pass "" for the default.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Attachment is a file attached to an outgoing message.
type Attachment struct {
	Filename    string
	Content     []byte
	ContentType string
}

// Message is a single outgoing email.
type Message struct {
	To        string
	FromEmail string
	FromName  string
	Subject   string
	HTML      string
	Text      string

	// DisableTracking turns off click and open tracking for this
	// message. Link rewriting on security emails (password reset) trips
	// third-party scanners, so those categories must set it.
	DisableTracking bool

	Attachments []Attachment
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sendgrid API error: status %d: %s", e.StatusCode, e.Body)
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
	Attachments      []attachment      `json:"attachments,omitempty"`
	TrackingSettings *trackingSettings `json:"tracking_settings,omitempty"`
}

type personalization struct {
	To []address `json:"to"`
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type attachment struct {
	Content     string `json:"content"` // base64
	Filename    string `json:"filename"`
	Type        string `json:"type,omitempty"`
	Disposition string `json:"disposition"`
}

type trackingSettings struct {
	ClickTracking trackingToggle `json:"click_tracking"`
	OpenTracking  trackingToggle `json:"open_tracking"`
}

type trackingToggle struct {
	Enable bool `json:"enable"`
}

// Send submits the message and returns the provider message id from the
// X-Message-Id response header.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	req := sendRequest{
		Personalizations: []personalization{{To: []address{{Email: msg.To}}}},
		From:             address{Email: msg.FromEmail, Name: msg.FromName},
		Subject:          msg.Subject,
	}

	// SendGrid requires text/plain before text/html.
	if msg.Text != "" {
		req.Content = append(req.Content, content{Type: "text/plain", Value: msg.Text})
	}

	if msg.HTML != "" {
		req.Content = append(req.Content, content{Type: "text/html", Value: msg.HTML})
	}

	for _, a := range msg.Attachments {
		req.Attachments = append(req.Attachments, attachment{
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			Filename:    a.Filename,
			Type:        a.ContentType,
			Disposition: "attachment",
		})
	}

	if msg.DisableTracking {
		req.TrackingSettings = &trackingSettings{
			ClickTracking: trackingToggle{Enable: false},
			OpenTracking:  trackingToggle{Enable: false},
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

		return "", &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return resp.Header.Get("X-Message-Id"), nil
}
