package sms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Leadflow/internal/telemetry"
)

func TestLogSender(t *testing.T) {
	s := NewLogSender(telemetry.DiscardLogger())

	assert.NoError(t, s.Send(context.Background(), "+1000", "hello"))
	assert.ErrorIs(t, s.Send(context.Background(), "", "hello"), ErrEmptyPhone)
	assert.ErrorIs(t, s.Send(context.Background(), "+1000", ""), ErrEmptyText)
}

func TestNew(t *testing.T) {
	s, err := New(HTTPSenderConfig{}, telemetry.DiscardLogger())
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	s, err = New(HTTPSenderConfig{URL: "http://gateway.local/send"}, telemetry.DiscardLogger())
	require.NoError(t, err)
	assert.IsType(t, &HTTPSender{}, s)
}

func TestNewHTTPSender_RequiresURL(t *testing.T) {
	_, err := NewHTTPSender(HTTPSenderConfig{})
	assert.Error(t, err)
}

func TestHTTPSender_Send(t *testing.T) {
	var got sendRequest
	var auth, contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		auth = r.Header.Get("Authorization")
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	s, err := NewHTTPSender(HTTPSenderConfig{URL: server.URL, Token: "secret"})
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), "+1000", "Still interested?"))
	assert.Equal(t, sendRequest{To: "+1000", Text: "Still interested?"}, got)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "application/json", contentType)
}

func TestHTTPSender_NoTokenNoAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
	}))
	defer server.Close()

	s, err := NewHTTPSender(HTTPSenderConfig{URL: server.URL})
	require.NoError(t, err)
	assert.NoError(t, s.Send(context.Background(), "+1000", "hi"))
}

func TestHTTPSender_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid number", http.StatusBadRequest)
	}))
	defer server.Close()

	s, err := NewHTTPSender(HTTPSenderConfig{URL: server.URL})
	require.NoError(t, err)

	err = s.Send(context.Background(), "+1000", "hi")

	var gwErr *GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
	assert.Equal(t, "invalid number", gwErr.Body)
}

func TestHTTPSender_ContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	s, err := NewHTTPSender(HTTPSenderConfig{URL: server.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = s.Send(ctx, "+1000", "hi")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPSender_Validation(t *testing.T) {
	s, err := NewHTTPSender(HTTPSenderConfig{URL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.Send(context.Background(), "", "hi"), ErrEmptyPhone)
}
