package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/pharmadesk/station/domain"
	"github.com/pharmadesk/station/repository"
)

type sessionRepository struct {
	client *redislib.Client
	prefix string
	ttl    time.Duration
}

// NewSessionRepository creates a Redis-backed session repository. The
// fallback TTL applies when a session carries no usable expiry of its own.
func NewSessionRepository(client *redislib.Client, ttl time.Duration) repository.SessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &sessionRepository{
		client: client,
		prefix: "station:session:",
		ttl:    ttl,
	}
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	result, err := r.client.Get(ctx, r.key(id)).Result()
	if err != nil {
		if err == redislib.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Save(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidPayload
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, r.key(session.ID), payload, r.entryTTL(session)).Err()
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}

// entryTTL ties the stored record's lifetime to the credentials it holds:
// remember-me sessions live as long as the refresh token, timed sessions only
// as long as the access token allows.
func (r *sessionRepository) entryTTL(session *domain.Session) time.Duration {
	expiry := session.AccessToken.ExpiresAt
	if session.RememberMe && session.RefreshToken != nil {
		expiry = session.RefreshToken.ExpiresAt
	}
	ttl := time.Until(expiry)
	if ttl <= 0 {
		ttl = r.ttl
	}
	return ttl
}

func (r *sessionRepository) key(id string) string {
	return fmt.Sprintf("%s%s", r.prefix, id)
}
