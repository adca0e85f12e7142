package models

import "github.com/google/uuid"

// StreamEventType identifies one of the server-sent event kinds emitted
// while an assistant response is being produced.
type StreamEventType string

const (
	EventMessageStart StreamEventType = "message_start"
	EventStatus       StreamEventType = "status"
	EventContentDelta StreamEventType = "content_delta"
	EventTitleUpdated StreamEventType = "title_updated"
	EventMessageEnd   StreamEventType = "message_end"
	EventError        StreamEventType = "error"
	EventPing         StreamEventType = "ping"
)

// Pipeline stages reported through status events. Each one is emitted
// before the corresponding work begins so the client can render progress.
const (
	StageExtracting = "extracting"
	StageSearching  = "searching"
	StageFormatting = "formatting"
)

// Finish reasons carried by message_end.
const (
	FinishReasonStop   = "stop"
	FinishReasonLength = "length"
)

// Stream error codes. These are the only codes a client ever sees; the
// underlying cause of configuration errors is deliberately not exposed.
const (
	StreamErrRateLimit      = "rate_limit"
	StreamErrLLMTimeout     = "llm_timeout"
	StreamErrLLMRateLimit   = "llm_rate_limit"
	StreamErrLLMUnavailable = "llm_unavailable"
	StreamErrLLM            = "llm_error"
	StreamErrSearchFailed   = "search_failed"
	StreamErrPersistFailed  = "persist_failed"
	StreamErrNotFound       = "not_found"
	StreamErrTimeout        = "timeout"
	StreamErrInternal       = "internal"
)

// StreamEvent is one element of the ordered event sequence for a single
// orchestration run. Data holds the JSON payload for the event type.
type StreamEvent struct {
	Type StreamEventType
	Data any
}

// MessageStartData echoes the ids of the run being streamed.
type MessageStartData struct {
	MessageID uuid.UUID `json:"message_id"`
	ChatID    uuid.UUID `json:"chat_id"`
}

// StatusData names the stage about to run.
type StatusData struct {
	Stage string `json:"stage"`
}

// ContentDeltaData carries one fragment of the assistant response.
type ContentDeltaData struct {
	Delta string `json:"delta"`
}

// TitleUpdatedData announces an asynchronously generated chat title.
type TitleUpdatedData struct {
	ChatID uuid.UUID `json:"chat_id"`
	Title  string    `json:"title"`
}

// MessageEndData terminates a successful stream.
type MessageEndData struct {
	MessageID    uuid.UUID `json:"message_id"`
	FinishReason string    `json:"finish_reason"`
}

// StreamErrorData terminates a failed stream.
type StreamErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func MessageStartEvent(messageID, chatID uuid.UUID) StreamEvent {
	return StreamEvent{Type: EventMessageStart, Data: MessageStartData{MessageID: messageID, ChatID: chatID}}
}

func StatusEvent(stage string) StreamEvent {
	return StreamEvent{Type: EventStatus, Data: StatusData{Stage: stage}}
}

func ContentDeltaEvent(delta string) StreamEvent {
	return StreamEvent{Type: EventContentDelta, Data: ContentDeltaData{Delta: delta}}
}

func TitleUpdatedEvent(chatID uuid.UUID, title string) StreamEvent {
	return StreamEvent{Type: EventTitleUpdated, Data: TitleUpdatedData{ChatID: chatID, Title: title}}
}

func MessageEndEvent(messageID uuid.UUID, finishReason string) StreamEvent {
	return StreamEvent{Type: EventMessageEnd, Data: MessageEndData{MessageID: messageID, FinishReason: finishReason}}
}

func StreamErrorEvent(code, message string) StreamEvent {
	return StreamEvent{Type: EventError, Data: StreamErrorData{Code: code, Message: message}}
}

func PingEvent() StreamEvent {
	return StreamEvent{Type: EventPing, Data: struct{}{}}
}

// IsTerminal reports whether the event ends its stream. Exactly one
// terminal event is emitted per run and nothing follows it.
func (e StreamEvent) IsTerminal() bool {
	return e.Type == EventMessageEnd || e.Type == EventError
}
