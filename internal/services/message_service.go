package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"carassist-backend/internal/config"
	"carassist-backend/internal/llm"
	"carassist-backend/internal/models"
	"carassist-backend/internal/ratelimit"
	"carassist-backend/internal/store"
)

// ErrRateLimited is returned when a user exceeds their per-minute message
// allowance. Maps to HTTP 429.
var ErrRateLimited = errors.New("rate limit exceeded")

// titleGrace bounds the wait for an in-flight title after the last delta.
// The title channel is closed on every path, so runs without title
// generation pass through instantly.
const titleGrace = 250 * time.Millisecond

// MessageService orchestrates the lifecycle of one assistant response:
// admission -> guard -> extract -> search -> format -> persist, emitting an
// ordered stream of events along the way.
//
// Each run is independent; there is no cross-run synchronization. Two
// concurrent sends to the same chat are therefore not serialized and their
// persisted messages may interleave. Known limitation of this design.
type MessageService struct {
	store   store.Store
	llm     *LLMService
	search  *CarSearchService
	limiter *ratelimit.Limiter
	cfg     *config.Config
}

// NewMessageService creates a new MessageService.
func NewMessageService(s store.Store, llmSvc *LLMService, search *CarSearchService, limiter *ratelimit.Limiter, cfg *config.Config) *MessageService {
	return &MessageService{
		store:   s,
		llm:     llmSvc,
		search:  search,
		limiter: limiter,
		cfg:     cfg,
	}
}

// SubmitMessage validates and persists a user message. The assistant
// response is not produced here: the client opens the stream endpoint with
// the returned message id to start the orchestration run.
//
// The rate limit is only peeked at this point so the client gets a prompt
// HTTP 429 before anything is persisted; the token itself is consumed when
// the run is admitted.
func (s *MessageService) SubmitMessage(ctx context.Context, userID, chatID uuid.UUID, content string) (*models.ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message content cannot be blank", ErrValidation)
	}
	if utf8.RuneCountInString(content) > s.cfg.MaxMessageLength {
		return nil, fmt.Errorf("%w: message content exceeds %d characters", ErrValidation, s.cfg.MaxMessageLength)
	}

	if !s.limiter.Allowed(userID) {
		log.Printf("[MessageService] SubmitMessage denied for user %s: rate limited", userID)
		return nil, ErrRateLimited
	}

	// Ownership check; also surfaces not-found for foreign chats.
	if _, err := s.store.GetChatByID(ctx, chatID, userID); err != nil {
		return nil, err
	}

	msg, err := s.store.CreateMessage(ctx, store.CreateMessageParams{
		ID:      uuid.New(),
		ChatID:  chatID,
		Role:    models.RoleUser,
		Content: content,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}

	return msg, nil
}

// StreamResponse runs the orchestration pipeline for a previously submitted
// user message and returns its ordered event sequence. The channel is
// closed after the terminal event; nothing is ever emitted after it.
// Canceling ctx abandons the run; work not yet persisted stays unpersisted.
func (s *MessageService) StreamResponse(ctx context.Context, userID, chatID, messageID uuid.UUID) <-chan models.StreamEvent {
	events := make(chan models.StreamEvent, 8)
	go func() {
		defer close(events)
		s.run(ctx, userID, chatID, messageID, events)
	}()
	return events
}

func (s *MessageService) run(ctx context.Context, userID, chatID, messageID uuid.UUID, events chan<- models.StreamEvent) {
	emit := func(ev models.StreamEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	// Resolve the user message; the chat lookup doubles as the ownership
	// check for the stream request.
	if _, err := s.store.GetChatByID(ctx, chatID, userID); err != nil {
		emit(models.StreamErrorEvent(models.StreamErrNotFound, "Chat not found."))
		return
	}
	userMsg, err := s.store.GetMessageByID(ctx, messageID, chatID)
	if err != nil || userMsg.Role != models.RoleUser {
		emit(models.StreamErrorEvent(models.StreamErrNotFound, "Message not found."))
		return
	}

	if !emit(models.MessageStartEvent(userMsg.ID, chatID)) {
		return
	}

	// Admitted: the single token consume for this message.
	if !s.limiter.TryAdmit(userID) {
		log.Printf("[MessageService] Run for message %s denied: rate limited", messageID)
		emit(models.StreamErrorEvent(models.StreamErrRateLimit, "Too many messages, please wait a minute."))
		return
	}

	// Title generation is fire-and-forget; its result interleaves with
	// content deltas whenever it lands.
	titleCh := s.startTitleGeneration(ctx, userID, chatID, userMsg.Content)

	responseText, finishReason, failed := s.produceResponse(ctx, userMsg.Content, emit)
	if failed {
		return
	}

	// Persisting: content is complete at this point, never partial. Skip
	// when the client is already gone.
	if ctx.Err() != nil {
		log.Printf("[MessageService] Run for message %s canceled before persist", messageID)
		return
	}
	assistantMsg, err := s.store.CreateMessage(ctx, store.CreateMessageParams{
		ID:      uuid.New(),
		ChatID:  chatID,
		Role:    models.RoleAssistant,
		Content: responseText,
	})
	if err != nil {
		log.Printf("ERROR [MessageService] Failed to persist assistant message for chat %s: %v", chatID, err)
		emit(models.StreamErrorEvent(models.StreamErrPersistFailed, "Failed to save the response."))
		return
	}

	// Deltas are produced by chunking the final text. The provider call is
	// non-streaming, so this emulates incremental generation; swapping in a
	// real streaming provider only needs to replace this loop, the event
	// protocol stays the same.
	for _, chunk := range chunkWords(responseText) {
		select {
		case title, ok := <-titleCh:
			if ok {
				if !emit(models.TitleUpdatedEvent(chatID, title)) {
					return
				}
			}
			titleCh = nil
		default:
		}

		if !emit(models.ContentDeltaEvent(chunk)) {
			return
		}
		select {
		case <-time.After(s.cfg.StreamChunkDelay):
		case <-ctx.Done():
			return
		}
	}

	// A title still in flight after the last delta gets a short grace
	// window; short streams would otherwise finish before it can be
	// announced.
	if titleCh != nil {
		select {
		case title, ok := <-titleCh:
			if ok {
				if !emit(models.TitleUpdatedEvent(chatID, title)) {
					return
				}
			}
		case <-time.After(titleGrace):
		case <-ctx.Done():
			return
		}
	}

	emit(models.MessageEndEvent(assistantMsg.ID, finishReason))
}

// produceResponse walks the guard/extract/search/format stages and returns
// the final response text. A true `failed` means a terminal error event was
// already emitted (or the run was canceled) and the caller must stop.
func (s *MessageService) produceResponse(ctx context.Context, userMessage string, emit func(models.StreamEvent) bool) (text, finishReason string, failed bool) {
	finishReason = models.FinishReasonStop

	// GuardChecking
	guard, err := s.llm.Guard(ctx, userMessage)
	if err != nil {
		s.emitLLMError(emit, "guard", err)
		return "", "", true
	}
	if !guard.Relevant {
		// Rejected: a legitimate answer, streamed and persisted like any
		// other response.
		rejection := guard.RejectionResponse
		if rejection == "" {
			rejection = "I can only help with choosing a car from our catalog."
		}
		return rejection, finishReason, false
	}

	// Extracting
	if !emit(models.StatusEvent(models.StageExtracting)) {
		return "", "", true
	}
	extract, err := s.llm.Extract(ctx, userMessage)
	if err != nil {
		s.emitLLMError(emit, "extract", err)
		return "", "", true
	}
	if !extract.ReadyToSearch {
		// NeedsClarification: no search performed.
		return extract.ClarificationQuestion, finishReason, false
	}

	// Searching
	if !emit(models.StatusEvent(models.StageSearching)) {
		return "", "", true
	}
	result, err := s.search.Search(ctx, *extract.Criteria, s.cfg.SearchLimit)
	if err != nil {
		log.Printf("ERROR [MessageService] Catalog search failed: %v", err)
		emit(models.StreamErrorEvent(models.StreamErrSearchFailed, "Catalog search failed, please try again."))
		return "", "", true
	}

	// Formatting
	if !emit(models.StatusEvent(models.StageFormatting)) {
		return "", "", true
	}
	summary := extract.Summary
	if summary == "" {
		summary = userMessage
	}
	text, finishReason, err = s.llm.Format(ctx, summary, result)
	if err != nil {
		s.emitLLMError(emit, "format", err)
		return "", "", true
	}

	return text, finishReason, false
}

// emitLLMError maps a provider-level failure onto the single terminal error
// event for the stream. Configuration problems are reported generically;
// the real cause stays in the server logs.
func (s *MessageService) emitLLMError(emit func(models.StreamEvent) bool, stage string, err error) {
	log.Printf("ERROR [MessageService] LLM %s stage failed: %v", stage, err)
	switch {
	case errors.Is(err, llm.ErrTimeout):
		emit(models.StreamErrorEvent(models.StreamErrLLMTimeout, "The assistant took too long to respond."))
	case errors.Is(err, llm.ErrRateLimited):
		emit(models.StreamErrorEvent(models.StreamErrLLMRateLimit, "The assistant is overloaded, please retry shortly."))
	case errors.Is(err, llm.ErrUnavailable):
		emit(models.StreamErrorEvent(models.StreamErrLLMUnavailable, "The assistant is temporarily unavailable."))
	case errors.Is(err, llm.ErrConfiguration):
		emit(models.StreamErrorEvent(models.StreamErrLLM, "The assistant is temporarily unavailable."))
	default:
		emit(models.StreamErrorEvent(models.StreamErrInternal, "Something went wrong, please try again."))
	}
}

// startTitleGeneration kicks off asynchronous title generation when the
// given message is the first user message in its chat. The returned channel
// delivers at most one title and is closed either way; failures are logged
// and swallowed, a missing title never affects the response.
func (s *MessageService) startTitleGeneration(ctx context.Context, userID, chatID uuid.UUID, content string) <-chan string {
	out := make(chan string, 1)

	count, err := s.store.CountMessagesByChat(ctx, chatID, models.RoleUser)
	if err != nil || count > 1 {
		close(out)
		return out
	}

	go func() {
		defer close(out)
		title, err := s.llm.Title(ctx, content)
		if err != nil {
			log.Printf("WARN [MessageService] Title generation failed for chat %s: %v", chatID, err)
			return
		}
		if err := s.store.UpdateChatTitle(ctx, chatID, userID, title); err != nil {
			log.Printf("WARN [MessageService] Failed to persist title for chat %s: %v", chatID, err)
			return
		}
		out <- title
	}()

	return out
}

// chunkWords splits text into word-sized fragments whose concatenation is
// exactly the input, whitespace included. Each fragment carries its leading
// word plus any whitespace that follows it.
func chunkWords(text string) []string {
	var chunks []string
	var b strings.Builder
	prevSpace := false
	for _, r := range text {
		isSpace := r == ' ' || r == '\n' || r == '\t' || r == '\r'
		if prevSpace && !isSpace && b.Len() > 0 {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		b.WriteRune(r)
		prevSpace = isSpace
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}
