// Package stream serves the transcript protocol over HTTP: ndjson
// replay of stored conversations and live chat exchanges.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/postpilothq/postpilot/internal/domain"
	"github.com/postpilothq/postpilot/internal/server/middleware"
	"github.com/postpilothq/postpilot/internal/transcript"
)

// chatTimeout bounds one chat exchange end to end.
const chatTimeout = 2 * time.Minute

// maxChatBody caps the chat request body size.
const maxChatBody = 64 << 10

// ChatService is the part of the chat service the stream handlers use.
type ChatService interface {
	History(ctx context.Context, userID, conversationID uuid.UUID) ([]transcript.Record, error)
	Send(ctx context.Context, userID, conversationID uuid.UUID, prompt string, onRecord func(transcript.Record) error) (transcript.Record, error)
}

// Handler serves the ndjson endpoints.
type Handler struct {
	chats ChatService
}

func NewHandler(chats ChatService) *Handler {
	return &Handler{chats: chats}
}

// Replay writes the conversation's transcript, one record per line.
// Records are already reconciled by the store; the client applies the
// same upsert-by-key rule to live feeds.
func (h *Handler) Replay(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"title":"Forbidden","status":403,"detail":"missing user context"}`, http.StatusForbidden)
		return
	}

	conversationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"title":"Bad Request","status":400,"detail":"invalid conversation id"}`, http.StatusBadRequest)
		return
	}

	records, err := h.chats.History(r.Context(), userID, conversationID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, `{"title":"Not Found","status":404,"detail":"conversation not found"}`, http.StatusNotFound)
			return
		}
		log.Error().
			Err(err).
			Str("conversation_id", conversationID.String()).
			Msg("stream.Handler.Replay: load history")
		http.Error(w, `{"title":"Internal Server Error","status":500,"detail":"failed to load transcript"}`, http.StatusInternalServerError)
		return
	}

	writeNDJSONHeaders(w)
	flusher, _ := w.(http.Flusher)
	for _, rec := range records {
		if err := writeRecord(w, flusher, rec); err != nil {
			// Client gone; nothing to clean up.
			return
		}
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

// Chat appends the user's message and streams the exchange: the user
// echo first, then the assistant's reply as one growing record, one
// revision per line.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"title":"Forbidden","status":403,"detail":"missing user context"}`, http.StatusForbidden)
		return
	}

	conversationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"title":"Bad Request","status":400,"detail":"invalid conversation id"}`, http.StatusBadRequest)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		http.Error(w, `{"title":"Bad Request","status":400,"detail":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, `{"title":"Bad Request","status":400,"detail":"message is required"}`, http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"title":"Internal Server Error","status":500,"detail":"streaming not supported"}`, http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), chatTimeout)
	defer cancel()

	writeNDJSONHeaders(w)

	streamed := false
	_, err = h.chats.Send(ctx, userID, conversationID, req.Message, func(rec transcript.Record) error {
		if err := writeRecord(w, flusher, rec); err != nil {
			return err
		}
		streamed = true
		return nil
	})
	if err != nil {
		if streamed {
			// The response is already flowing; the stream just ends early.
			log.Error().
				Err(err).
				Str("conversation_id", conversationID.String()).
				Msg("stream.Handler.Chat: exchange aborted mid-stream")
			return
		}
		if errors.Is(err, domain.ErrConflict) {
			http.Error(w, `{"title":"Conflict","status":409,"detail":"conversation belongs to another user"}`, http.StatusConflict)
			return
		}
		log.Error().
			Err(err).
			Str("conversation_id", conversationID.String()).
			Msg("stream.Handler.Chat: send")
		http.Error(w, `{"title":"Internal Server Error","status":500,"detail":"failed to run chat exchange"}`, http.StatusInternalServerError)
	}
}

func writeNDJSONHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
}

func writeRecord(w http.ResponseWriter, flusher http.Flusher, rec transcript.Record) error {
	line, err := transcript.EncodeLine(rec)
	if err != nil {
		return err
	}
	if _, err := w.Write(line); err != nil {
		return err
	}
	if flusher != nil {
		flusher.Flush()
	}
	return nil
}
