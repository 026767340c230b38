package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/docentkit/docentkit-backend/internal/platform/logger"
)

func responseBody(text string) []byte {
	body := map[string]any{
		"output": []map[string]any{
			{
				"type": "message",
				"role": "assistant",
				"content": []map[string]any{
					{"type": "output_text", "text": text},
				},
			},
		},
		"usage": map[string]int{"input_tokens": 10, "output_tokens": 5},
	}
	raw, _ := json.Marshal(body)
	return raw
}

func TestGenerateRetriesTransientFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(responseBody("hallo"))
	}))
	defer srv.Close()

	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", srv.URL)
	t.Setenv("OPENAI_MAX_RETRIES", "2")

	c, err := NewClient(logger.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	out, err := c.Generate(context.Background(), "sys", "user", GenerateOptions{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "hallo" {
		t.Fatalf("output = %q", out)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls = %d, want retry once after 503", got)
	}
}

func TestGenerateDoesNotRetryClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", srv.URL)

	c, err := NewClient(logger.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := c.Generate(context.Background(), "sys", "user", GenerateOptions{}); err == nil {
		t.Fatalf("expected error on 400")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("calls = %d, 400 must not be retried", got)
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(logger.NewNop()); err == nil {
		t.Fatalf("missing key must fail loud")
	}
}
