package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tailortalk-ai/booking-assistant/internal/conversation"
	"github.com/tailortalk-ai/booking-assistant/internal/nlp"
	"github.com/tailortalk-ai/booking-assistant/pkg/logging"
)

// Assistant is the conversational surface the HTTP layer fronts.
type Assistant interface {
	HandleMessage(ctx context.Context, userID, text string, now time.Time) (*conversation.Directive, error)
	ParseDateTime(text string, now time.Time) *nlp.ParseResult
}

// ChatHandler serves the chat, parse, and availability endpoints.
type ChatHandler struct {
	assistant    Assistant
	availability conversation.AvailabilityProvider
	logger       *logging.Logger
	location     *time.Location
	now          func() time.Time
}

// NewChatHandler builds the handler. The location anchors "tomorrow" and
// friends for every request.
func NewChatHandler(assistant Assistant, availability conversation.AvailabilityProvider, loc *time.Location, logger *logging.Logger) *ChatHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ChatHandler{
		assistant:    assistant,
		availability: availability,
		logger:       logger.Named("http"),
		location:     loc,
		now:          time.Now,
	}
}

type chatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// HandleChat processes one conversational turn.
// POST /chat {"user_id": "...", "message": "..."}
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	directive, err := h.assistant.HandleMessage(r.Context(), req.UserID, req.Message, h.now().In(h.location))
	if err != nil {
		var collab *conversation.CollaboratorError
		if errors.As(err, &collab) {
			// The directive still carries a user-facing reply; surface it and
			// log the underlying failure.
			h.logger.Error("collaborator failure", "op", collab.Op, "error", collab.Err)
			writeJSON(w, http.StatusOK, directive)
			return
		}
		h.logger.Error("chat turn failed", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}
	writeJSON(w, http.StatusOK, directive)
}

// HandleParse runs the extractor alone, without touching any session.
// GET /parse?text=5th+july+at+3:30pm
func (h *ChatHandler) HandleParse(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, "text query parameter is required")
		return
	}
	res := h.assistant.ParseDateTime(text, h.now().In(h.location))
	writeJSON(w, http.StatusOK, res)
}

// HandleAvailability lists open slots for a date, defaulting to tomorrow.
// GET /availability?date=2025-07-05
func (h *ChatHandler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = h.now().In(h.location).AddDate(0, 0, 1).Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	slots, err := h.availability.Slots(r.Context(), date)
	if err != nil {
		h.logger.Error("availability lookup failed", "date", date, "error", err)
		writeError(w, http.StatusBadGateway, "failed to check availability")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":  date,
		"slots": slots,
	})
}

// HealthCheck reports process liveness.
// GET /health
func (h *ChatHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
