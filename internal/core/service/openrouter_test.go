package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"grocery-companion/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRouterService_GenerateResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	svc := NewOpenRouterService(config.OpenRouterConfig{
		APIKey:    "sk-test",
		BaseURL:   srv.URL,
		Model:     "test-model",
		MaxTokens: 100,
		Timeout:   time.Second,
	})

	content, err := svc.GenerateResponse(context.Background(), "hello\n world")
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
}

func TestOpenRouterService_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	svc := NewOpenRouterService(config.OpenRouterConfig{BaseURL: srv.URL, Timeout: time.Second})
	_, err := svc.GenerateResponse(context.Background(), "hello")
	assert.ErrorContains(t, err, "rate limited")
}
