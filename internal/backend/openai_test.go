package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestOpenAIClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewOpenAIClient(OpenAIConfig{
		BackendID: "gpt-4.1",
		Model:     "gpt-4.1",
		APIKey:    "test-key",
		BaseURL:   srv.URL,
	})
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}
	return c
}

func TestOpenAIInvoke(t *testing.T) {
	var gotReq chatRequest
	c := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("auth header = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "ответ"}},
			},
		})
	})

	out, err := c.Invoke(context.Background(), "вопрос", "системная инструкция", Options{MaxTokens: 128})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if out != "ответ" {
		t.Errorf("output = %q", out)
	}

	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" {
		t.Errorf("messages = %+v, want system then user", gotReq.Messages)
	}
	if gotReq.MaxTokens != 128 {
		t.Errorf("max_tokens = %d, want 128", gotReq.MaxTokens)
	}
}

func TestOpenAIErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		sentinel error
	}{
		{"401 maps to authentication", http.StatusUnauthorized, ErrAuthentication},
		{"403 maps to authentication", http.StatusForbidden, ErrAuthentication},
		{"429 maps to rate limit", http.StatusTooManyRequests, ErrRateLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := c.Invoke(context.Background(), "prompt", "", Options{})
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("err = %v, want %v", err, tt.sentinel)
			}
		})
	}
}

func TestOpenAIOpaqueProviderError(t *testing.T) {
	c := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Invoke(context.Background(), "prompt", "", Options{})
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *ProviderError", err)
	}
	if perr.Backend != "gpt-4.1" {
		t.Errorf("Backend = %q", perr.Backend)
	}
	if errors.Is(err, ErrAuthentication) || errors.Is(err, ErrRateLimit) {
		t.Error("500 must stay opaque, not map to a sentinel")
	}
}

func TestOpenAIEmptyChoices(t *testing.T) {
	c := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := c.Invoke(context.Background(), "prompt", "", Options{})
	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Errorf("err = %v, want *ProviderError", err)
	}
}

func TestOpenAIMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewOpenAIClient(OpenAIConfig{Model: "gpt-4.1"})
	if !errors.Is(err, ErrAuthentication) {
		t.Errorf("err = %v, want ErrAuthentication", err)
	}
}
