package webchat

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/tailortalk-ai/booking-assistant/internal/conversation"
	"github.com/tailortalk-ai/booking-assistant/internal/nlp"
)

type scriptedAssistant struct {
	reply    string
	step     conversation.Step
	lastUser string
}

func (s *scriptedAssistant) HandleMessage(_ context.Context, userID, _ string, _ time.Time) (*conversation.Directive, error) {
	s.lastUser = userID
	return &conversation.Directive{Reply: s.reply, Step: s.step}, nil
}

func (s *scriptedAssistant) ParseDateTime(string, time.Time) *nlp.ParseResult {
	return &nlp.ParseResult{}
}

func dialTestSocket(t *testing.T, assistant *scriptedAssistant, query string) *websocket.Conn {
	t.Helper()
	h := NewHandler(assistant, time.UTC, nil)
	srv := httptest.NewServer(h.ServeWS())
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func receive(t *testing.T, conn *websocket.Conn) OutboundMessage {
	t.Helper()
	var raw string
	require.NoError(t, websocket.Message.Receive(conn, &raw))
	var msg OutboundMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	return msg
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, websocket.Message.Send(conn, string(data)))
}

func TestWebchatAssignsSession(t *testing.T) {
	conn := dialTestSocket(t, &scriptedAssistant{}, "")

	msg := receive(t, conn)
	assert.Equal(t, "session", msg.Type)
	assert.NotEmpty(t, msg.SessionID)
}

func TestWebchatKeepsProvidedSession(t *testing.T) {
	conn := dialTestSocket(t, &scriptedAssistant{}, "?session_id=abc123")

	msg := receive(t, conn)
	assert.Equal(t, "session", msg.Type)
	assert.Equal(t, "abc123", msg.SessionID)
}

func TestWebchatMessageRoundTrip(t *testing.T) {
	assistant := &scriptedAssistant{reply: "Which date would you like?", step: conversation.StepAwaitingDate}
	conn := dialTestSocket(t, assistant, "?session_id=abc123")
	receive(t, conn) // session frame

	sendJSON(t, conn, InboundMessage{Type: "message", Text: "book a meeting"})
	msg := receive(t, conn)

	assert.Equal(t, "message", msg.Type)
	assert.Equal(t, "assistant", msg.Role)
	assert.Equal(t, "Which date would you like?", msg.Text)
	assert.Equal(t, string(conversation.StepAwaitingDate), msg.Step)
	assert.Equal(t, "webchat:abc123", assistant.lastUser)
	assert.NotEmpty(t, msg.Timestamp)
}

func TestWebchatPing(t *testing.T) {
	conn := dialTestSocket(t, &scriptedAssistant{}, "")
	receive(t, conn)

	sendJSON(t, conn, InboundMessage{Type: "ping"})
	msg := receive(t, conn)
	assert.Equal(t, "pong", msg.Type)
}

func TestWebchatRejectsBadFrames(t *testing.T) {
	conn := dialTestSocket(t, &scriptedAssistant{}, "")
	receive(t, conn)

	require.NoError(t, websocket.Message.Send(conn, "not json"))
	msg := receive(t, conn)
	assert.Equal(t, "error", msg.Type)

	sendJSON(t, conn, InboundMessage{Type: "message", Text: "   "})
	msg = receive(t, conn)
	assert.Equal(t, "error", msg.Type)

	sendJSON(t, conn, InboundMessage{Type: "mystery"})
	msg = receive(t, conn)
	assert.Equal(t, "error", msg.Type)
}
