package webchat

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/tailortalk-ai/booking-assistant/internal/http/handlers"
	"github.com/tailortalk-ai/booking-assistant/pkg/logging"
)

// Handler serves the browser chat widget over a websocket. Each socket owns
// one session; messages are handled synchronously and the reply is pushed
// back on the same connection.
type Handler struct {
	assistant handlers.Assistant
	logger    *logging.Logger
	location  *time.Location
	now       func() time.Time
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type      string `json:"type"` // "message", "ping"
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string `json:"type"` // "message", "session", "pong", "error"
	Text      string `json:"text,omitempty"`
	Role      string `json:"role,omitempty"`
	Step      string `json:"step,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// NewHandler creates a web chat handler.
func NewHandler(assistant handlers.Assistant, loc *time.Location, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		assistant: assistant,
		logger:    logger.Named("webchat"),
		location:  loc,
		now:       time.Now,
	}
}

// ServeWS returns the websocket endpoint handler.
func (h *Handler) ServeWS() http.Handler {
	return websocket.Handler(h.serve)
}

func (h *Handler) serve(conn *websocket.Conn) {
	defer conn.Close()

	sessionID := strings.TrimSpace(conn.Request().URL.Query().Get("session_id"))
	if sessionID == "" {
		sessionID = generateSessionID()
	}
	if err := h.send(conn, OutboundMessage{Type: "session", SessionID: sessionID}); err != nil {
		return
	}

	for {
		var raw string
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			if err != io.EOF {
				h.logger.Debug("websocket closed", "session_id", sessionID, "error", err)
			}
			return
		}

		var in InboundMessage
		if err := json.Unmarshal([]byte(raw), &in); err != nil {
			_ = h.send(conn, OutboundMessage{Type: "error", Text: "invalid message"})
			continue
		}

		switch in.Type {
		case "ping":
			_ = h.send(conn, OutboundMessage{Type: "pong"})
		case "message":
			h.handleMessage(conn, sessionID, in.Text)
		default:
			_ = h.send(conn, OutboundMessage{Type: "error", Text: fmt.Sprintf("unknown message type %q", in.Type)})
		}
	}
}

func (h *Handler) handleMessage(conn *websocket.Conn, sessionID, text string) {
	if strings.TrimSpace(text) == "" {
		_ = h.send(conn, OutboundMessage{Type: "error", Text: "empty message"})
		return
	}

	now := h.now().In(h.location)
	directive, err := h.assistant.HandleMessage(conn.Request().Context(), UserID(sessionID), text, now)
	if err != nil && directive == nil {
		h.logger.Error("webchat turn failed", "session_id", sessionID, "error", err)
		_ = h.send(conn, OutboundMessage{Type: "error", Text: "something went wrong, please try again"})
		return
	}
	if err != nil {
		// Collaborator failures still produce a user-facing reply.
		h.logger.Error("webchat collaborator failure", "session_id", sessionID, "error", err)
	}

	_ = h.send(conn, OutboundMessage{
		Type:      "message",
		Role:      "assistant",
		Text:      directive.Reply,
		Step:      string(directive.Step),
		Timestamp: now.Format(time.RFC3339),
	})
}

func (h *Handler) send(conn *websocket.Conn, msg OutboundMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return websocket.Message.Send(conn, string(data))
}

// UserID builds the canonical user ID for a webchat session.
func UserID(sessionID string) string {
	return fmt.Sprintf("webchat:%s", sessionID)
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}
