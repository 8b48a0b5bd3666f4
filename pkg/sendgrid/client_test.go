package sendgrid

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Send(t *testing.T) {
	var captured sendRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("X-Message-Id", "msg-123")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)

	id, err := c.Send(context.Background(), Message{
		To:        "anna@example.com",
		FromEmail: "no-reply@vitacall.example",
		FromName:  "VitaCall",
		Subject:   "Your Consultation is Confirmed",
		HTML:      "<p>Hi</p>",
		Text:      "Hi",
		Attachments: []Attachment{
			{Filename: "appointment-42.ics", Content: []byte("BEGIN:VCALENDAR"), ContentType: "text/calendar"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-123", id)

	require.Len(t, captured.Personalizations, 1)
	assert.Equal(t, "anna@example.com", captured.Personalizations[0].To[0].Email)

	// text/plain must come before text/html.
	require.Len(t, captured.Content, 2)
	assert.Equal(t, "text/plain", captured.Content[0].Type)
	assert.Equal(t, "text/html", captured.Content[1].Type)

	require.Len(t, captured.Attachments, 1)
	assert.Equal(t, "appointment-42.ics", captured.Attachments[0].Filename)
	assert.Nil(t, captured.TrackingSettings)
}

func TestClient_Send_DisableTracking(t *testing.T) {
	var captured sendRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)

	_, err := c.Send(context.Background(), Message{
		To:              "anna@example.com",
		FromEmail:       "no-reply@vitacall.example",
		Subject:         "Reset Your Password",
		Text:            "reset link",
		DisableTracking: true,
	})
	require.NoError(t, err)

	require.NotNil(t, captured.TrackingSettings)
	assert.False(t, captured.TrackingSettings.ClickTracking.Enable)
	assert.False(t, captured.TrackingSettings.OpenTracking.Enable)
}

func TestClient_Send_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"errors":[{"message":"rate limited"}]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL)

	_, err := c.Send(context.Background(), Message{To: "anna@example.com", Text: "hi"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "rate limited")
}
