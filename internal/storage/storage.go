package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgellow/login-front/internal/config"
)

// ErrAttemptNotFound is returned when a login attempt doesn't exist, was
// already taken, or has expired
var ErrAttemptNotFound = errors.New("login attempt not found")

// ErrAttemptExists is returned when an attempt id is stored twice
var ErrAttemptExists = errors.New("login attempt already exists")

// Attempt is a Facebook login that left for the login dialog and has not
// come back yet. PageQuery is the query string of the login page the
// attempt started from.
type Attempt struct {
	ID        string    `json:"id"`
	AppID     string    `json:"app_id"`
	PageQuery string    `json:"page_query,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the attempt can no longer be completed at now
func (a Attempt) Expired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && !now.Before(a.ExpiresAt)
}

// AttemptStore keeps pending login attempts between the redirect to the
// provider and the provider's redirect back.
type AttemptStore interface {
	// Put stores a new attempt
	Put(ctx context.Context, attempt Attempt) error
	// Take returns the attempt and removes it. Concurrent calls for the same
	// id succeed at most once.
	Take(ctx context.Context, id string) (Attempt, error)
	// CleanupExpired removes expired attempts and returns how many it removed
	CleanupExpired(ctx context.Context) (int, error)
	Close() error
}

// NewStore creates the attempt store selected by cfg
func NewStore(ctx context.Context, cfg config.StorageConfig) (AttemptStore, error) {
	switch cfg.Kind {
	case config.StorageKindMemory, "":
		return NewMemoryStore(), nil
	case config.StorageKindRedis:
		return NewRedisStore(ctx, cfg.RedisAddr, string(cfg.RedisPassword), cfg.RedisDB)
	case config.StorageKindFirestore:
		return NewFirestoreStore(ctx, cfg.GCPProject, cfg.FirestoreDatabase, cfg.FirestoreCollection)
	default:
		return nil, fmt.Errorf("unknown storage kind %q", cfg.Kind)
	}
}

func ttlUntil(expiresAt time.Time, now time.Time) time.Duration {
	if expiresAt.IsZero() {
		return 0
	}
	return expiresAt.Sub(now)
}
