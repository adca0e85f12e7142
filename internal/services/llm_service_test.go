package services

import (
	"context"
	"strings"
	"testing"

	"carassist-backend/internal/config"
	"carassist-backend/internal/llm"
	"carassist-backend/internal/models"
)

// fakeProvider returns a canned completion or error.
type fakeProvider struct {
	content string
	finish  string
	err     error
	calls   int
}

func (f *fakeProvider) Chat(ctx context.Context, systemPrompt, userMessage string, temperature float32) (llm.ChatResult, error) {
	f.calls++
	if f.err != nil {
		return llm.ChatResult{}, f.err
	}
	finish := f.finish
	if finish == "" {
		finish = models.FinishReasonStop
	}
	return llm.ChatResult{Content: f.content, FinishReason: finish}, nil
}

func (f *fakeProvider) LastUsage() models.TokenUsage { return models.TokenUsage{} }

func testConfig() *config.Config {
	return &config.Config{
		GuardTemperature:   0.3,
		ExtractTemperature: 0.3,
		FormatTemperature:  0.7,
		RateLimitPerMinute: 10,
		MaxMessageLength:   4000,
		SearchLimit:        10,
	}
}

func TestGuardParsesEnvelope(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		wantRelevant  bool
		wantRejection string
	}{
		{
			name:         "relevant",
			content:      `{"relevant": true}`,
			wantRelevant: true,
		},
		{
			name:          "irrelevant with rejection",
			content:       `{"relevant": false, "rejection_response": "Я помогаю только с подбором автомобилей."}`,
			wantRelevant:  false,
			wantRejection: "Я помогаю только с подбором автомобилей.",
		},
		{
			name:         "fenced json",
			content:      "```json\n{\"relevant\": true}\n```",
			wantRelevant: true,
		},
		{
			name:         "json buried in prose",
			content:      "Sure! Here is my verdict: {\"relevant\": false, \"rejection_response\": \"no\"} Hope that helps.",
			wantRelevant: false,
		},
		{
			// Parse failure fails open: blocking a legitimate request is
			// worse than letting an off-topic one through.
			name:         "garbage fails open",
			content:      "I think the user wants a car, probably?",
			wantRelevant: true,
		},
		{
			name:         "missing relevant field fails open",
			content:      `{"rejection_response": "nope"}`,
			wantRelevant: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewLLMService(&fakeProvider{content: tt.content}, testConfig())
			got, err := svc.Guard(context.Background(), "хочу машину")
			if err != nil {
				t.Fatalf("Guard returned unexpected error: %v", err)
			}
			if got.Relevant != tt.wantRelevant {
				t.Errorf("Relevant = %v, want %v", got.Relevant, tt.wantRelevant)
			}
			if tt.wantRejection != "" && got.RejectionResponse != tt.wantRejection {
				t.Errorf("RejectionResponse = %q, want %q", got.RejectionResponse, tt.wantRejection)
			}
		})
	}
}

func TestGuardPropagatesProviderErrors(t *testing.T) {
	svc := NewLLMService(&fakeProvider{err: llm.ErrUnavailable}, testConfig())
	if _, err := svc.Guard(context.Background(), "msg"); err == nil {
		t.Fatal("expected provider error to propagate, got nil")
	}
}

func TestExtractReadinessRule(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantReady bool
	}{
		{
			name: "price plus two extras is ready",
			content: `{"ready_to_search": true, "summary": "бензиновый кроссовер автомат до 3 000 000",
				"criteria": {"price_max": 3000000, "body_type": "crossover", "engine_type": "petrol", "transmission": "automatic"}}`,
			wantReady: true,
		},
		{
			name: "model claims ready but only one extra",
			content: `{"ready_to_search": true,
				"criteria": {"price_max": 3000000, "body_type": "crossover"}}`,
			wantReady: false,
		},
		{
			name: "model claims ready but no price",
			content: `{"ready_to_search": true,
				"criteria": {"body_type": "crossover", "engine_type": "petrol", "transmission": "automatic"}}`,
			wantReady: false,
		},
		{
			name:      "model not ready",
			content:   `{"ready_to_search": false, "clarification_question": "Какой у вас бюджет?", "criteria": {"body_type": "crossover"}}`,
			wantReady: false,
		},
		{
			name:      "missing criteria object",
			content:   `{"ready_to_search": true}`,
			wantReady: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewLLMService(&fakeProvider{content: tt.content}, testConfig())
			got, err := svc.Extract(context.Background(), "хочу кроссовер")
			if err != nil {
				t.Fatalf("Extract returned unexpected error: %v", err)
			}
			if got.ReadyToSearch != tt.wantReady {
				t.Errorf("ReadyToSearch = %v, want %v", got.ReadyToSearch, tt.wantReady)
			}
			if got.ReadyToSearch {
				if got.Criteria == nil || got.Criteria.PriceMax == nil {
					t.Error("ready result must carry criteria with price_max")
				}
				if got.Criteria.FilledExtras() < 2 {
					t.Errorf("ready result has %d extras, want >= 2", got.Criteria.FilledExtras())
				}
			} else if got.ClarificationQuestion == "" {
				t.Error("not-ready result must carry a clarification question")
			}
		})
	}
}

func TestExtractParseFailureFallsBack(t *testing.T) {
	svc := NewLLMService(&fakeProvider{content: "not json at all"}, testConfig())
	got, err := svc.Extract(context.Background(), "хочу кроссовер")
	if err != nil {
		t.Fatalf("Extract must not error on parse failure, got: %v", err)
	}
	if got.ReadyToSearch {
		t.Error("parse failure must degrade to not-ready")
	}
	if got.ClarificationQuestion != defaultClarificationQuestion {
		t.Errorf("ClarificationQuestion = %q, want the generic fallback", got.ClarificationQuestion)
	}
}

func TestFormatBuildsResultBlock(t *testing.T) {
	provider := &recordingProvider{content: "Нашлось 3 варианта."}
	svc := NewLLMService(provider, testConfig())

	price := int64(2450000)
	result := models.CarSearchResult{
		TotalCount: 3,
		Items: []models.Car{
			{Brand: "Toyota", Model: "RAV4", BodyType: "crossover", EngineType: "petrol",
				Transmission: "automatic", Drive: "awd", Seats: 5, Year: 2021, Price: price},
		},
	}

	text, finish, err := svc.Format(context.Background(), "бензиновый кроссовер до 3 млн", result)
	if err != nil {
		t.Fatalf("Format returned unexpected error: %v", err)
	}
	if text != "Нашлось 3 варианта." {
		t.Errorf("text = %q", text)
	}
	if finish != models.FinishReasonStop {
		t.Errorf("finish = %q, want stop", finish)
	}
	if !strings.Contains(provider.lastUserMessage, "Total matches: 3") {
		t.Errorf("prompt missing total count: %q", provider.lastUserMessage)
	}
	if !strings.Contains(provider.lastUserMessage, "Toyota RAV4") {
		t.Errorf("prompt missing car line: %q", provider.lastUserMessage)
	}
}

func TestFormatEmptyResults(t *testing.T) {
	provider := &recordingProvider{content: "Увы, ничего не нашлось — попробуйте расширить бюджет."}
	svc := NewLLMService(provider, testConfig())

	if _, _, err := svc.Format(context.Background(), "розовый лимузин до 100000", models.CarSearchResult{}); err != nil {
		t.Fatalf("Format returned unexpected error: %v", err)
	}
	if !strings.Contains(provider.lastUserMessage, "Matching cars: none") {
		t.Errorf("prompt must state zero matches explicitly: %q", provider.lastUserMessage)
	}
}

func TestFormatRejectsEmptyCompletion(t *testing.T) {
	svc := NewLLMService(&fakeProvider{content: "   "}, testConfig())
	if _, _, err := svc.Format(context.Background(), "x", models.CarSearchResult{}); err == nil {
		t.Fatal("expected error for empty completion")
	}
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", `Here you go: {"a":1}. Enjoy!`, `{"a":1}`},
		{"no object", "nothing here", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := repairJSON(tt.in); got != tt.want {
				t.Errorf("repairJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// recordingProvider keeps the last prompt pair for assertions.
type recordingProvider struct {
	content         string
	lastSystem      string
	lastUserMessage string
}

func (r *recordingProvider) Chat(ctx context.Context, systemPrompt, userMessage string, temperature float32) (llm.ChatResult, error) {
	r.lastSystem = systemPrompt
	r.lastUserMessage = userMessage
	return llm.ChatResult{Content: r.content, FinishReason: models.FinishReasonStop}, nil
}

func (r *recordingProvider) LastUsage() models.TokenUsage { return models.TokenUsage{} }
