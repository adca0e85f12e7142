package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// completionServer fakes an OpenAI-compatible endpoint. statusFn decides the
// response for each attempt; a zero status means a successful completion.
func completionServer(t *testing.T, statusFn func(attempt int64) int) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var attempts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if status := statusFn(n); status != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			fmt.Fprintf(w, `{"error": {"message": "fake failure", "type": "server_error"}}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"choices": [{"message": {"role": "assistant", "content": "ok"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &attempts
}

func testProvider(srv *httptest.Server) *OpenAIProvider {
	return NewOpenAIProvider(ProviderConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL + "/v1",
		Model:          "gpt-4o-mini",
		RequestTimeout: 2 * time.Second,
		MaxAttempts:    3,
		InitialDelay:   time.Millisecond,
	})
}

func TestChatRetriesTransientFailures(t *testing.T) {
	srv, attempts := completionServer(t, func(attempt int64) int {
		if attempt < 3 {
			return http.StatusServiceUnavailable
		}
		return 0
	})
	p := testProvider(srv)

	res, err := p.Chat(context.Background(), "system", "user", 0.3)
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if res.Content != "ok" {
		t.Errorf("content = %q, want ok", res.Content)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("server saw %d attempts, want 3", got)
	}
	if usage := p.LastUsage(); usage.TotalTokens != 15 {
		t.Errorf("LastUsage().TotalTokens = %d, want 15", usage.TotalTokens)
	}
}

func TestChatExhaustsRetriesOnRateLimit(t *testing.T) {
	srv, attempts := completionServer(t, func(int64) int {
		return http.StatusTooManyRequests
	})
	p := testProvider(srv)

	_, err := p.Chat(context.Background(), "system", "user", 0.3)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("server saw %d attempts, want 3", got)
	}
}

func TestChatDoesNotRetryUnauthorized(t *testing.T) {
	srv, attempts := completionServer(t, func(int64) int {
		return http.StatusUnauthorized
	})
	p := testProvider(srv)

	_, err := p.Chat(context.Background(), "system", "user", 0.3)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("server saw %d attempts, want 1 (no retry on 401)", got)
	}
}

func TestChatBadGatewayMapsToUnavailable(t *testing.T) {
	srv, _ := completionServer(t, func(int64) int {
		return http.StatusBadGateway
	})
	p := testProvider(srv)

	if _, err := p.Chat(context.Background(), "system", "user", 0.3); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestChatTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	p := NewOpenAIProvider(ProviderConfig{
		APIKey:         "test-key",
		BaseURL:        srv.URL + "/v1",
		Model:          "gpt-4o-mini",
		RequestTimeout: 50 * time.Millisecond,
		MaxAttempts:    3,
		InitialDelay:   time.Millisecond,
	})

	start := time.Now()
	_, err := p.Chat(context.Background(), "system", "user", 0.3)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	// A deadline expiry is terminal; it must not burn two more attempts.
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %s, suggesting the call was retried", elapsed)
	}
}

func TestChatCanceledContext(t *testing.T) {
	srv, _ := completionServer(t, func(int64) int { return 0 })
	p := testProvider(srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Chat(ctx, "system", "user", 0.3); err == nil {
		t.Fatal("expected error for canceled context")
	}
}
