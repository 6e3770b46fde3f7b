package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-attendance-portal/internal/models"
	appErrors "github.com/noah-isme/sma-attendance-portal/pkg/errors"
)

const sessionKeyPrefix = "portal:session:"

// SessionRepository keeps browser sessions in Redis under an opaque id.
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewSessionRepository constructs a Redis-backed session store.
func NewSessionRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) *SessionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionRepository{client: client, ttl: ttl, logger: logger}
}

// Save stores the session until the earlier of the store TTL and the token expiry.
func (r *SessionRepository) Save(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	key := sessionKeyPrefix + session.ID
	if err := r.client.Set(ctx, key, payload, sessionTTL(session, r.ttl, time.Now())).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Get returns the stored session or ErrSessionNotFound.
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	key := sessionKeyPrefix + id
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		r.logger.Warn("discarding unreadable session", zap.String("key", key), zap.Error(err))
		_ = r.client.Del(ctx, key).Err()
		return nil, appErrors.ErrSessionNotFound
	}
	return &session, nil
}

// Delete removes the session.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	key := sessionKeyPrefix + id
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// MemorySessionRepository is the single-process fallback used when Redis is not configured.
type MemorySessionRepository struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memorySession
	swept    time.Time
}

type memorySession struct {
	session models.Session
	expires time.Time
}

// NewMemorySessionRepository constructs an in-process session store.
func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{ttl: ttl, now: time.Now, sessions: make(map[string]memorySession)}
}

// Save stores a copy of the session.
func (r *MemorySessionRepository) Save(_ context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.sweep(now)
	r.sessions[session.ID] = memorySession{session: *session, expires: now.Add(sessionTTL(session, r.ttl, now))}
	return nil
}

// sweep drops expired entries at most once per minute. Callers hold r.mu.
func (r *MemorySessionRepository) sweep(now time.Time) {
	if now.Sub(r.swept) < time.Minute {
		return
	}
	r.swept = now
	for id, entry := range r.sessions {
		if !now.Before(entry.expires) {
			delete(r.sessions, id)
		}
	}
}

// Get returns the stored session or ErrSessionNotFound.
func (r *MemorySessionRepository) Get(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[id]
	if !ok {
		return nil, appErrors.ErrSessionNotFound
	}
	if !r.now().Before(entry.expires) {
		delete(r.sessions, id)
		return nil, appErrors.ErrSessionNotFound
	}
	session := entry.session
	return &session, nil
}

// Delete removes the session.
func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func sessionTTL(session *models.Session, max time.Duration, now time.Time) time.Duration {
	ttl := max
	if !session.ExpiresAt.IsZero() {
		if remaining := session.ExpiresAt.Sub(now); remaining < ttl {
			ttl = remaining
		}
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}
