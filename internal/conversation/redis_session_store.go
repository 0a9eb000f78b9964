package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// RedisSessionStore persists sessions as JSON blobs with a TTL, so dialogue
// state survives process restarts. Mutation serialization is process-local: a
// per-user mutex guards the load-mutate-save cycle, matching the single
// process deployment model.
type RedisSessionStore struct {
	redis    *redis.Client
	tracer   trace.Tracer
	defaults SessionDefaults
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRedisSessionStore builds a Redis-backed store. A nil client panics;
// callers choose the memory store when Redis is not configured.
func NewRedisSessionStore(client *redis.Client, defaults SessionDefaults, ttl time.Duration) *RedisSessionStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessionStore{
		redis:    client,
		tracer:   otel.Tracer("booking.internal.conversation.sessions"),
		defaults: defaults.normalize(),
		ttl:      ttl,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

// WithSession loads (or creates) the session, runs fn with exclusive access,
// and saves the result back with a refreshed TTL.
func (s *RedisSessionStore) WithSession(ctx context.Context, userID string, fn func(*Session) error) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ctx, span := s.tracer.Start(ctx, "conversation.with_session")
	defer span.End()

	sess, err := s.load(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if sess == nil {
		sess = newSession(userID, s.defaults, s.now())
	}
	sess.historyLimit = s.defaults.HistoryLimit

	if err := fn(sess); err != nil {
		return err
	}

	if err := s.save(ctx, sess); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *RedisSessionStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

func (s *RedisSessionStore) load(ctx context.Context, userID string) (*Session, error) {
	data, err := s.redis.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("conversation: failed to load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("conversation: failed to decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisSessionStore) save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("conversation: failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sess.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("conversation: failed to persist session: %w", err)
	}
	return nil
}

func sessionKey(userID string) string {
	return fmt.Sprintf("session:%s", userID)
}
