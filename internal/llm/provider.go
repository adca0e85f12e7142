package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"

	"carassist-backend/internal/models"
)

// Provider is the transport to an external chat-completion API.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Chat performs one completion round trip. Failures are reported via
	// the sentinel errors in this package (ErrTimeout, ErrRateLimited,
	// ErrUnavailable, ErrConfiguration).
	Chat(ctx context.Context, systemPrompt, userMessage string, temperature float32) (ChatResult, error)

	// LastUsage returns the token usage recorded by the most recent call.
	LastUsage() models.TokenUsage
}

// ChatResult is the typed outcome of one completion call.
type ChatResult struct {
	Content      string
	FinishReason string
	Usage        models.TokenUsage
}

// ProviderConfig holds the transport settings for the OpenAI-compatible API.
type ProviderConfig struct {
	APIKey         string
	BaseURL        string // Optional; empty means the default OpenAI endpoint
	Model          string
	RequestTimeout time.Duration
	MaxAttempts    int           // Total attempts including the first call
	InitialDelay   time.Duration // Backoff base; doubled after each failed attempt
}

// OpenAIProvider talks to an OpenAI-compatible chat-completion endpoint.
//
// Retry policy: HTTP 429, 502 and 503 are retried with exponential backoff
// (InitialDelay x 2^attempt, capped at MaxAttempts). HTTP 401 fails
// immediately as a configuration error. Deadline expiry surfaces as
// ErrTimeout without internal retry.
type OpenAIProvider struct {
	api *openai.Client
	cfg ProviderConfig

	mu        sync.Mutex
	lastUsage models.TokenUsage
}

// Compile-time check that OpenAIProvider implements Provider.
var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a provider over the configured endpoint.
func NewOpenAIProvider(cfg ProviderConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = time.Second
	}
	return &OpenAIProvider{
		api: openai.NewClientWithConfig(clientCfg),
		cfg: cfg,
	}
}

func (p *OpenAIProvider) Chat(ctx context.Context, systemPrompt, userMessage string, temperature float32) (ChatResult, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
	}

	var lastErr error
	for attempt := 0; attempt < p.cfg.MaxAttempts; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if p.cfg.RequestTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, p.cfg.RequestTimeout)
		}

		resp, err := p.api.CreateChatCompletion(callCtx, req)
		if cancel != nil {
			cancel()
		}

		if err == nil {
			if len(resp.Choices) == 0 {
				return ChatResult{}, fmt.Errorf("%w: completion returned no choices", ErrUnavailable)
			}
			usage := models.TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			}
			p.recordUsage(usage)
			log.Printf("[LLMProvider] Completion ok: model=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
				p.cfg.Model, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)
			choice := resp.Choices[0]
			return ChatResult{
				Content:      choice.Message.Content,
				FinishReason: finishReasonString(choice.FinishReason),
				Usage:        usage,
			}, nil
		}

		classified, retryable := p.classify(err)
		if !retryable {
			return ChatResult{}, classified
		}
		lastErr = classified

		if attempt < p.cfg.MaxAttempts-1 {
			delay := p.cfg.InitialDelay << uint(attempt)
			log.Printf("WARN [LLMProvider] Attempt %d/%d failed (%v), retrying in %s",
				attempt+1, p.cfg.MaxAttempts, err, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ChatResult{}, fmt.Errorf("%w: canceled during retry backoff", ErrTimeout)
			}
		}
	}

	log.Printf("ERROR [LLMProvider] All %d attempts failed: %v", p.cfg.MaxAttempts, lastErr)
	return ChatResult{}, lastErr
}

// classify maps a transport error onto the package taxonomy and reports
// whether it is worth retrying.
func (p *OpenAIProvider) classify(err error) (error, bool) {
	// Deadline expiry is surfaced to the caller untouched; the pipeline
	// decides how to react, not the transport.
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err), false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err), false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized:
			// Broken deployment, not a transient condition. Loudest log
			// level we have; never retried.
			log.Printf("CRITICAL [LLMProvider] API key rejected (401): %v", apiErr)
			return fmt.Errorf("%w: %v", ErrConfiguration, apiErr), false
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, apiErr), true
		case http.StatusBadGateway, http.StatusServiceUnavailable:
			return fmt.Errorf("%w: %v", ErrUnavailable, apiErr), true
		}
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, err), false
}

func (p *OpenAIProvider) recordUsage(usage models.TokenUsage) {
	p.mu.Lock()
	p.lastUsage = usage
	p.mu.Unlock()
}

// LastUsage returns the usage recorded by the most recent successful call.
func (p *OpenAIProvider) LastUsage() models.TokenUsage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastUsage
}

func finishReasonString(reason openai.FinishReason) string {
	if reason == openai.FinishReasonLength {
		return models.FinishReasonLength
	}
	return models.FinishReasonStop
}
