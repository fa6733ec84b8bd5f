package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/marks/internal/domain"
)

// GetSession returns the client's session, or nil when there is none.
func (s *Store) GetSession(ctx context.Context, clientID string) (*domain.Session, error) {
	data, err := s.client.Get(ctx, SessionKey(clientID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// PutSession stores the client's session; Redis expires it after ttl.
func (s *Store) PutSession(ctx context.Context, clientID string, session domain.Session, ttl time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, SessionKey(clientID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, clientID string) error {
	if err := s.client.Del(ctx, SessionKey(clientID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PutState remembers which client started an OAuth flow.
func (s *Store) PutState(ctx context.Context, state, clientID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, StateKey(state), clientID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save oauth state: %w", err)
	}
	return nil
}

// TakeState consumes an OAuth state atomically.
func (s *Store) TakeState(ctx context.Context, state string) (string, error) {
	clientID, err := s.client.GetDel(ctx, StateKey(state)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("failed to take oauth state: %w", err)
	}
	return clientID, nil
}
