package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend_PayloadShape(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "plansink/1.0", r.Header.Get("User-Agent"))

		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	n := New(server.URL, 2*time.Second)
	n.Send(context.Background(), LevelSuccess, "plan_purchased", "Data added")

	require.NotNil(t, received)
	assert.Equal(t, "[SUCCESS] plan_purchased --> Data added", received["content"])
}

func TestSend_FailuresDoNotPanic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	assert.NotPanics(t, func() {
		New(server.URL, time.Second).Send(context.Background(), LevelError, "x", "boom")
	})

	// Unreachable endpoint and unconfigured notifier are both silent.
	assert.NotPanics(t, func() {
		New("http://127.0.0.1:1/webhook", 200*time.Millisecond).
			Send(context.Background(), LevelError, "x", "boom")
	})
	assert.NotPanics(t, func() {
		New("", time.Second).Send(context.Background(), LevelSkipped, "x", "dup")
	})
}
