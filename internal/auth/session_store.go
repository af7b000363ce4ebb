package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"filemanager/internal/cache"
)

const (
	sessionKeyPrefix = "auth_"
	// DefaultSessionTTL is the fixed lifetime of a session.
	DefaultSessionTTL = 24 * time.Hour
)

// SessionStore maps opaque tokens to user ids.
type SessionStore interface {
	// Create starts a session for userID and returns its token.
	Create(ctx context.Context, userID uint) (string, error)
	// Resolve returns the user behind token. ok is false when the token is
	// unknown or expired; that is not an error.
	Resolve(ctx context.Context, token string) (userID uint, ok bool, err error)
	// Destroy ends a session. Destroying an unknown token is not an error.
	Destroy(ctx context.Context, token string) error
}

// RedisSessionStore keeps sessions in Redis with a fixed, non-sliding TTL.
type RedisSessionStore struct {
	cache *cache.Client
	ttl   time.Duration
}

// Ensure RedisSessionStore implements SessionStore
var _ SessionStore = (*RedisSessionStore)(nil)

// NewSessionStore creates a new session store. A non-positive ttl falls back to DefaultSessionTTL.
func NewSessionStore(cache *cache.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{cache: cache, ttl: ttl}
}

// Create stores a new random token for userID.
func (s *RedisSessionStore) Create(ctx context.Context, userID uint) (string, error) {
	token := generateToken()
	value := []byte(strconv.FormatUint(uint64(userID), 10))
	if err := s.cache.Set(ctx, sessionKey(token), value, s.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Resolve looks up the user id stored for token.
func (s *RedisSessionStore) Resolve(ctx context.Context, token string) (uint, bool, error) {
	if token == "" {
		return 0, false, nil
	}
	data, err := s.cache.Get(ctx, sessionKey(token))
	if err != nil {
		return 0, false, fmt.Errorf("resolve session: %w", err)
	}
	if data == nil {
		return 0, false, nil
	}

	id, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil || id == 0 {
		// A corrupt value is treated as no session.
		return 0, false, nil
	}
	return uint(id), true, nil
}

// Destroy removes the session for token.
func (s *RedisSessionStore) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.cache.Delete(ctx, sessionKey(token)); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func sessionKey(token string) string {
	return sessionKeyPrefix + token
}

// generateToken returns a random v4 UUID. uuid.New reads from crypto/rand.
func generateToken() string {
	return uuid.New().String()
}
