package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"carassist-backend/internal/auth"
	"carassist-backend/internal/config"
	"carassist-backend/internal/llm"
	"carassist-backend/internal/models"
	"carassist-backend/internal/ratelimit"
	"carassist-backend/internal/services"
	"carassist-backend/internal/store"
)

// rejectingProvider always classifies the message as off topic, which keeps
// the pipeline to a single LLM call.
type rejectingProvider struct{}

func (rejectingProvider) Chat(ctx context.Context, systemPrompt, userMessage string, temperature float32) (llm.ChatResult, error) {
	return llm.ChatResult{
		Content:      `{"relevant": false, "rejection_response": "Cars only, sorry."}`,
		FinishReason: models.FinishReasonStop,
	}, nil
}

func (rejectingProvider) LastUsage() models.TokenUsage { return models.TokenUsage{} }

// slowRejectingProvider stalls before answering so the connection stays
// quiet long enough for keep-alive pings.
type slowRejectingProvider struct {
	delay time.Duration
}

func (p slowRejectingProvider) Chat(ctx context.Context, systemPrompt, userMessage string, temperature float32) (llm.ChatResult, error) {
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return llm.ChatResult{}, ctx.Err()
	}
	return rejectingProvider{}.Chat(ctx, systemPrompt, userMessage, temperature)
}

func (slowRejectingProvider) LastUsage() models.TokenUsage { return models.TokenUsage{} }

// stuckProvider never answers within its context deadline and lingers a
// little past it, so the route's own deadline handling always fires first.
type stuckProvider struct{}

func (stuckProvider) Chat(ctx context.Context, systemPrompt, userMessage string, temperature float32) (llm.ChatResult, error) {
	<-ctx.Done()
	time.Sleep(200 * time.Millisecond)
	return llm.ChatResult{}, ctx.Err()
}

func (stuckProvider) LastUsage() models.TokenUsage { return models.TokenUsage{} }

// streamStore serves exactly one chat with one user message.
type streamStore struct {
	store.Store // panic on anything not overridden

	userID uuid.UUID
	chatID uuid.UUID
	msgID  uuid.UUID
}

func (s *streamStore) GetChatByID(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Chat, error) {
	if id != s.chatID || userID != s.userID {
		return nil, store.ErrNotFound
	}
	return &models.Chat{ID: id, UserID: userID}, nil
}

func (s *streamStore) GetMessageByID(ctx context.Context, id uuid.UUID, chatID uuid.UUID) (*models.ChatMessage, error) {
	if id != s.msgID || chatID != s.chatID {
		return nil, store.ErrNotFound
	}
	return &models.ChatMessage{ID: id, ChatID: chatID, Role: models.RoleUser, Content: "what's the weather"}, nil
}

func (s *streamStore) CountMessagesByChat(ctx context.Context, chatID uuid.UUID, role models.MessageRole) (int64, error) {
	return 2, nil
}

func (s *streamStore) CreateMessage(ctx context.Context, arg store.CreateMessageParams) (*models.ChatMessage, error) {
	return &models.ChatMessage{ID: arg.ID, ChatID: arg.ChatID, Role: arg.Role, Content: arg.Content, CreatedAt: time.Now()}, nil
}

func newStreamHandler(t *testing.T, fs *streamStore) *MessageHandlers {
	return newStreamHandlerWith(t, fs, rejectingProvider{}, nil)
}

func newStreamHandlerWith(t *testing.T, fs *streamStore, provider llm.Provider, tune func(*config.Config)) *MessageHandlers {
	t.Helper()
	cfg := &config.Config{
		GuardTemperature:   0.3,
		ExtractTemperature: 0.3,
		FormatTemperature:  0.7,
		RateLimitPerMinute: 10,
		MaxMessageLength:   4000,
		SearchLimit:        10,
		PingInterval:       time.Minute,
		MaxResponseTime:    10 * time.Second,
	}
	if tune != nil {
		tune(cfg)
	}
	llmSvc := services.NewLLMService(provider, cfg)
	msgSvc := services.NewMessageService(fs, llmSvc, services.NewCarSearchService(fs), ratelimit.New(10), cfg)
	return NewMessageHandlers(msgSvc, cfg)
}

func streamRequest(t *testing.T, h *MessageHandlers, userID uuid.UUID, target string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/v1/chats/{chatID}/messages/stream", h.HandleStream)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(auth.WithUserID(req.Context(), userID))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// sseEvent is one parsed frame off the wire.
type sseEvent struct {
	name string
	data string
}

func parseSSE(t *testing.T, body string) []sseEvent {
	t.Helper()
	var events []sseEvent
	var cur sseEvent
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			cur.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			cur.data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if cur.name != "" {
				events = append(events, cur)
				cur = sseEvent{}
			}
		}
	}
	return events
}

func TestHandleStreamEmitsOrderedEvents(t *testing.T) {
	fs := &streamStore{userID: uuid.New(), chatID: uuid.New(), msgID: uuid.New()}
	h := newStreamHandler(t, fs)

	rec := streamRequest(t, h, fs.userID,
		"/v1/chats/"+fs.chatID.String()+"/messages/stream?messageId="+fs.msgID.String())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", cc)
	}

	events := parseSSE(t, rec.Body.String())
	if len(events) < 3 {
		t.Fatalf("got %d events, want at least message_start, deltas and message_end:\n%s",
			len(events), rec.Body.String())
	}
	if events[0].name != string(models.EventMessageStart) {
		t.Errorf("first event = %q, want message_start", events[0].name)
	}
	last := events[len(events)-1]
	if last.name != string(models.EventMessageEnd) {
		t.Errorf("last event = %q, want message_end", last.name)
	}
	if !strings.Contains(last.data, `"finish_reason":"stop"`) {
		t.Errorf("message_end data = %q", last.data)
	}

	var text strings.Builder
	for _, ev := range events {
		if ev.name == string(models.EventContentDelta) {
			var payload struct {
				Delta string `json:"delta"`
			}
			if err := json.Unmarshal([]byte(ev.data), &payload); err != nil {
				t.Fatalf("bad delta payload %q: %v", ev.data, err)
			}
			text.WriteString(payload.Delta)
		}
	}
	if text.String() != "Cars only, sorry." {
		t.Errorf("reassembled text = %q", text.String())
	}
}

func TestHandleStreamUnknownMessage(t *testing.T) {
	fs := &streamStore{userID: uuid.New(), chatID: uuid.New(), msgID: uuid.New()}
	h := newStreamHandler(t, fs)

	rec := streamRequest(t, h, fs.userID,
		"/v1/chats/"+fs.chatID.String()+"/messages/stream?messageId="+uuid.NewString())

	// The SSE connection is already open; the failure arrives as a terminal
	// error event, not an HTTP status.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	events := parseSSE(t, rec.Body.String())
	if len(events) != 1 || events[0].name != string(models.EventError) {
		t.Fatalf("events = %+v, want a single error event", events)
	}
	if !strings.Contains(events[0].data, `"code":"not_found"`) {
		t.Errorf("error data = %q", events[0].data)
	}
}

func TestHandleStreamInjectsPingsWhileQuiet(t *testing.T) {
	fs := &streamStore{userID: uuid.New(), chatID: uuid.New(), msgID: uuid.New()}
	h := newStreamHandlerWith(t, fs, slowRejectingProvider{delay: 150 * time.Millisecond}, func(c *config.Config) {
		c.PingInterval = 20 * time.Millisecond
	})

	rec := streamRequest(t, h, fs.userID,
		"/v1/chats/"+fs.chatID.String()+"/messages/stream?messageId="+fs.msgID.String())

	events := parseSSE(t, rec.Body.String())
	var pings int
	for _, ev := range events {
		if ev.name == string(models.EventPing) {
			pings++
		}
	}
	if pings == 0 {
		t.Errorf("no ping injected during a quiet interval:\n%s", rec.Body.String())
	}
	// Pings are keep-alives, not terminals; the run still completes.
	if last := events[len(events)-1]; last.name != string(models.EventMessageEnd) {
		t.Errorf("last event = %q, want message_end", last.name)
	}
}

func TestHandleStreamDeadlineEmitsTimeout(t *testing.T) {
	fs := &streamStore{userID: uuid.New(), chatID: uuid.New(), msgID: uuid.New()}
	h := newStreamHandlerWith(t, fs, stuckProvider{}, func(c *config.Config) {
		c.MaxResponseTime = 50 * time.Millisecond
	})

	rec := streamRequest(t, h, fs.userID,
		"/v1/chats/"+fs.chatID.String()+"/messages/stream?messageId="+fs.msgID.String())

	events := parseSSE(t, rec.Body.String())
	if len(events) == 0 {
		t.Fatal("no events written before the deadline")
	}
	if events[0].name != string(models.EventMessageStart) {
		t.Errorf("first event = %q, want message_start", events[0].name)
	}
	last := events[len(events)-1]
	if last.name != string(models.EventError) {
		t.Fatalf("last event = %q, want error", last.name)
	}
	if !strings.Contains(last.data, `"code":"timeout"`) {
		t.Errorf("error data = %q, want code timeout", last.data)
	}
}

func TestHandleStreamRejectsBadInput(t *testing.T) {
	fs := &streamStore{userID: uuid.New(), chatID: uuid.New(), msgID: uuid.New()}
	h := newStreamHandler(t, fs)

	tests := []struct {
		name   string
		target string
	}{
		{"bad chat id", "/v1/chats/not-a-uuid/messages/stream?messageId=" + fs.msgID.String()},
		{"missing message id", "/v1/chats/" + fs.chatID.String() + "/messages/stream"},
		{"bad message id", "/v1/chats/" + fs.chatID.String() + "/messages/stream?messageId=nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := streamRequest(t, h, fs.userID, tt.target)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestSSEWriterWireFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := sseWriter{w: rec, flusher: rec}

	if err := sw.WriteEvent(models.StatusEvent(models.StageSearching)); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}

	want := "event: status\ndata: {\"stage\":\"searching\"}\n\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("wire output = %q, want %q", got, want)
	}
	if !rec.Flushed {
		t.Error("event was not flushed")
	}
}
