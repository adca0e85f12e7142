package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"carassist-backend/internal/models"
)

// HandleStream handles GET /v1/chats/{chatID}/messages/stream.
//
// It maps one orchestration run onto a server-sent-events connection:
// message_start, then status/content_delta events as they are produced,
// with ping events injected after each quiet interval, finishing with
// exactly one terminal event (message_end or error). The connection is
// closed on completion, on error, on client disconnect and when the
// configured max response time elapses.
func (h *MessageHandlers) HandleStream(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	chatID, err := uuid.Parse(chi.URLParam(r, "chatID"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid chat ID")
		return
	}
	messageID, err := uuid.Parse(r.URL.Query().Get("messageId"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid or missing messageId")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		RespondWithError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// The whole run is bounded: the client is never left waiting past the
	// configured max response time. Canceling this context abandons the
	// orchestration, including any in-flight LLM call.
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.MaxResponseTime)
	defer cancel()

	events := h.messageService.StreamResponse(ctx, userID, chatID, messageID)
	sw := sseWriter{w: w, flusher: flusher}

	ping := time.NewTimer(h.cfg.PingInterval)
	defer ping.Stop()

	for {
		select {
		case ev, open := <-events:
			if !open {
				return
			}
			if err := sw.WriteEvent(ev); err != nil {
				log.Printf("WARN [StreamHandler] Write failed for message %s: %v", messageID, err)
				return
			}
			if ev.IsTerminal() {
				return
			}
			resetTimer(ping, h.cfg.PingInterval)

		case <-ping.C:
			// Idle-connection keep-alive; only injected when nothing else
			// was sent during the interval.
			if err := sw.WriteEvent(models.PingEvent()); err != nil {
				return
			}
			ping.Reset(h.cfg.PingInterval)

		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				_ = sw.WriteEvent(models.StreamErrorEvent(models.StreamErrTimeout, "Response timed out."))
			}
			return
		}
	}
}

// sseWriter serializes stream events into the SSE wire format.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// WriteEvent writes one event as `event: <type>` plus a JSON data line and
// flushes it immediately.
func (s sseWriter) WriteEvent(ev models.StreamEvent) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", ev.Type, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// resetTimer drains and restarts a timer that may or may not have fired.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
