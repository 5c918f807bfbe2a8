package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AnthoniusHendriyanto/otp-auth-service/internal/auth/domain"
	"github.com/redis/go-redis/v9"
)

const pendingKeyPrefix = "pending:"

// PendingStore keeps PendingCredentials under an opaque session id with a sliding TTL.
type PendingStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPendingStore(client *redis.Client, ttl time.Duration) *PendingStore {
	return &PendingStore{client: client, ttl: ttl}
}

func (s *PendingStore) key(sid string) string {
	return pendingKeyPrefix + sid
}

// Get returns nil, nil when the session is unknown or has expired.
func (s *PendingStore) Get(ctx context.Context, sid string) (*domain.PendingCredentials, error) {
	if sid == "" {
		return nil, nil
	}
	raw, err := s.client.Get(ctx, s.key(sid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read pending credentials: %w", err)
	}

	var p domain.PendingCredentials
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode pending credentials: %w", err)
	}
	return &p, nil
}

func (s *PendingStore) Save(ctx context.Context, sid string, p *domain.PendingCredentials) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode pending credentials: %w", err)
	}
	if err := s.client.Set(ctx, s.key(sid), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save pending credentials: %w", err)
	}
	return nil
}

func (s *PendingStore) Delete(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(sid)).Err(); err != nil {
		return fmt.Errorf("failed to delete pending credentials: %w", err)
	}
	return nil
}
