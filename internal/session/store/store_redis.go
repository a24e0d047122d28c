package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"veritok/internal/session/models"
	"veritok/internal/sentinel"
)

const sessionKeyPrefix = "session:"

// sessionJSON is the JSON-serializable representation of a Session.
// Explicit tags keep the wire format stable across model changes.
type sessionJSON struct {
	ID                 string                     `json:"id"`
	Status             string                     `json:"status"`
	RawAttributes      map[string]string          `json:"raw_attributes,omitempty"`
	VerificationResult *models.VerificationResult `json:"verification_result,omitempty"`
	CreatedAt          int64                      `json:"created_at"`  // Unix nano
	ExpiresAt          int64                      `json:"expires_at"`  // Unix nano
}

func sessionToJSON(s *models.Session) *sessionJSON {
	return &sessionJSON{
		ID:                 s.ID,
		Status:             string(s.Status),
		RawAttributes:      s.RawAttributes,
		VerificationResult: s.VerificationResult,
		CreatedAt:          s.CreatedAt.UnixNano(),
		ExpiresAt:          s.ExpiresAt.UnixNano(),
	}
}

func sessionFromJSON(j *sessionJSON) *models.Session {
	return &models.Session{
		ID:                 j.ID,
		Status:             models.SessionStatus(j.Status),
		RawAttributes:      j.RawAttributes,
		VerificationResult: j.VerificationResult,
		CreatedAt:          time.Unix(0, j.CreatedAt),
		ExpiresAt:          time.Unix(0, j.ExpiresAt),
	}
}

// RedisStore persists sessions in Redis. The retention policy rides on the
// key TTL, so DeleteExpired is a no-op here.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed session store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (s *RedisStore) FindByID(ctx context.Context, id string) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("session %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	var j sessionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return sessionFromJSON(&j), nil
}

func (s *RedisStore) Save(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(sessionToJSON(session))
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired: %w", session.ID, sentinel.ErrInvalidState)
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// ClaimForVerification uses an optimistic WATCH transaction so two deliveries
// of the same session id cannot both observe pending.
func (s *RedisStore) ClaimForVerification(ctx context.Context, id string) (*models.Session, error) {
	var claimed *models.Session
	key := sessionKey(id)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("session %s: %w", id, sentinel.ErrNotFound)
			}
			return fmt.Errorf("get session: %w", err)
		}
		var j sessionJSON
		if err := json.Unmarshal(data, &j); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if models.SessionStatus(j.Status) != models.StatusPending {
			return fmt.Errorf("session %s is %s, not pending: %w", id, j.Status, sentinel.ErrInvalidState)
		}
		j.Status = string(models.StatusVerifying)
		updated, err := json.Marshal(&j)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, redis.KeepTTL)
			return nil
		})
		if err != nil {
			return err
		}
		claimed = sessionFromJSON(&j)
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		// lost the race to a concurrent claim
		return nil, fmt.Errorf("session %s claim contended: %w", id, sentinel.ErrInvalidState)
	}
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (s *RedisStore) Complete(ctx context.Context, id string, result *models.VerificationResult) error {
	key := sessionKey(id)
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("session %s: %w", id, sentinel.ErrNotFound)
		}
		return fmt.Errorf("get session: %w", err)
	}
	var j sessionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}
	j.Status = string(models.StatusCompleted)
	j.VerificationResult = result
	updated, err := json.Marshal(&j)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, key, updated, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis evicts sessions via the key TTL.
func (s *RedisStore) DeleteExpired(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}
