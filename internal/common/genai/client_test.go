// internal/common/genai/client_test.go
package genai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarnavarsha1/gmail-outlook-automation/internal/common/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, maxRetries int) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		Timeout:    5 * time.Second,
		MaxRetries: maxRetries,
	}, logger.NewTestLogger(t))
}

func TestComplete(t *testing.T) {
	var gotAuth, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Write([]byte(`{"text": "a fine reply"}`))
	}, 0)

	text, err := client.Complete(context.Background(), "say something", Options{MaxTokens: 64})

	require.NoError(t, err)
	assert.Equal(t, "a fine reply", text)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "/api/ai/generate", gotPath)
}

func TestCompleteRetriesTransientFailures(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"text": "eventually"}`))
	}, 3)

	text, err := client.Complete(context.Background(), "prompt", Options{})

	require.NoError(t, err)
	assert.Equal(t, "eventually", text)
	assert.Equal(t, 3, calls)
}

func TestCompleteExhaustsRetries(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}, 2)

	_, err := client.Complete(context.Background(), "prompt", Options{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompletionFailed)
	assert.Equal(t, 3, calls, "initial attempt plus two retries")
}

func TestCompleteTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`{"text": "too late"}`))
	}))
	t.Cleanup(server.Close)

	client := NewClient(Config{
		BaseURL: server.URL,
		Timeout: 50 * time.Millisecond,
	}, logger.NewTestLogger(t))

	_, err := client.Complete(context.Background(), "prompt", Options{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompletionTimeout)
}

func TestCompleteEmptyText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text": "   "}`))
	}, 0)

	_, err := client.Complete(context.Background(), "prompt", Options{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompletionFailed)
}
