package smsgate

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
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		_ = json.NewEncoder(w).Encode(sendResponse{MessageID: "sms-1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "VitaCall")

	id, err := c.Send(context.Background(), "+33612345678", "Your consultation starts in 5 minutes.")
	require.NoError(t, err)

	assert.Equal(t, "sms-1", id)
	assert.Equal(t, "VitaCall", captured.From)
	assert.Equal(t, "+33612345678", captured.To)
}

func TestClient_Send_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid number"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", "VitaCall")

	_, err := c.Send(context.Background(), "bogus", "hi")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}
