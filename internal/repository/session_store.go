package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "voter_session:"

// VoterSession is the tracking record tied to an issued access token.
// It lives in Redis for the token's lifetime and is removed when the
// ballot commits.
type VoterSession struct {
	CredentialID string    `json:"credential_id"`
	ElectionID   string    `json:"election_id"`
	IssuedAt     time.Time `json:"issued_at"`
}

// SessionStore manages access-token session records. All operations
// are best-effort from the callers' point of view; the credential row
// remains the source of truth.
type SessionStore interface {
	Put(ctx context.Context, accessToken string, session VoterSession, ttl time.Duration) error
	Get(ctx context.Context, accessToken string) (*VoterSession, error)
	Delete(ctx context.Context, accessToken string) error
}

type redisSessionStore struct {
	client *redis.Client
}

// NewSessionStore builds a Redis-backed session store.
func NewSessionStore(client *redis.Client) SessionStore {
	return &redisSessionStore{client: client}
}

func (s *redisSessionStore) Put(ctx context.Context, accessToken string, session VoterSession, ttl time.Duration) error {
	if s.client == nil {
		return errors.New("redis client not configured")
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKeyPrefix+accessToken, payload, ttl).Err()
}

func (s *redisSessionStore) Get(ctx context.Context, accessToken string) (*VoterSession, error) {
	if s.client == nil {
		return nil, errors.New("redis client not configured")
	}
	payload, err := s.client.Get(ctx, sessionKeyPrefix+accessToken).Bytes()
	if err != nil {
		return nil, err
	}
	var session VoterSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *redisSessionStore) Delete(ctx context.Context, accessToken string) error {
	if s.client == nil {
		return errors.New("redis client not configured")
	}
	return s.client.Del(ctx, sessionKeyPrefix+accessToken).Err()
}
