package conversation

import (
	"context"
	"sync"
	"time"
)

// DefaultHistoryLimit caps per-session history when no limit is configured.
const DefaultHistoryLimit = 20

// Session owns one user's slot state and a bounded, append-only message
// history. History is trimmed FIFO: the oldest entries go first, never
// intermediate ones.
type Session struct {
	UserID    string        `json:"user_id"`
	Slots     SlotState     `json:"slot_state"`
	History   []ChatMessage `json:"history"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	historyLimit int
}

// Append adds a message and trims the oldest entries beyond the limit.
func (s *Session) Append(role, content string, ts time.Time) {
	limit := s.historyLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	s.History = append(s.History, ChatMessage{Role: role, Content: content, Timestamp: ts})
	if excess := len(s.History) - limit; excess > 0 {
		s.History = append([]ChatMessage(nil), s.History[excess:]...)
	}
	s.UpdatedAt = ts
}

// SessionDefaults seed newly created sessions.
type SessionDefaults struct {
	DurationMinutes int
	MeetingType     string
	HistoryLimit    int
}

func (d SessionDefaults) normalize() SessionDefaults {
	if d.DurationMinutes <= 0 {
		d.DurationMinutes = 60
	}
	if d.MeetingType == "" {
		d.MeetingType = "Meeting"
	}
	if d.HistoryLimit <= 0 {
		d.HistoryLimit = DefaultHistoryLimit
	}
	return d
}

func newSession(userID string, d SessionDefaults, now time.Time) *Session {
	return &Session{
		UserID: userID,
		Slots: SlotState{
			DurationMinutes: d.DurationMinutes,
			MeetingType:     d.MeetingType,
			Step:            StepStart,
		},
		CreatedAt:    now,
		UpdatedAt:    now,
		historyLimit: d.HistoryLimit,
	}
}

// SessionStore hands out exclusive access to one user's session. WithSession
// creates the session on first use and guarantees at most one in-flight
// mutation per user; sessions of different users proceed in parallel.
type SessionStore interface {
	WithSession(ctx context.Context, userID string, fn func(*Session) error) error
}

// MemorySessionStore keeps sessions in process memory for the process
// lifetime, with a per-user mutex serializing mutations.
type MemorySessionStore struct {
	defaults SessionDefaults
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*memorySession
}

type memorySession struct {
	mu   sync.Mutex
	sess *Session
}

// NewMemorySessionStore builds an empty in-memory store.
func NewMemorySessionStore(defaults SessionDefaults) *MemorySessionStore {
	return &MemorySessionStore{
		defaults: defaults.normalize(),
		now:      time.Now,
		sessions: make(map[string]*memorySession),
	}
}

// WithSession runs fn with exclusive access to the user's session.
func (s *MemorySessionStore) WithSession(ctx context.Context, userID string, fn func(*Session) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	entry, ok := s.sessions[userID]
	if !ok {
		entry = &memorySession{sess: newSession(userID, s.defaults, s.now())}
		s.sessions[userID] = entry
	}
	s.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.sess)
}

// Len reports how many sessions exist. Used by diagnostics and tests.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
