package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gbaghdasaryan1/subscription-client/internal/domain"
)

// RedisStore implements Store on a Redis/Valkey instance. It exists for
// kiosk and terminal deployments where the client runs on shared hardware
// and the session must live in the site's keystore rather than on disk.
// Keys are namespaced per device.
type RedisStore struct {
	client *redis.Client
	device string
}

// NewRedisStore creates a Redis-backed credential store scoped to the given
// device identifier.
func NewRedisStore(client *redis.Client, device string) *RedisStore {
	return &RedisStore{client: client, device: device}
}

func (s *RedisStore) key(item string) string {
	return fmt.Sprintf("device:%s:%s", s.device, item)
}

// SaveSession writes the token first and the profile second, mirroring the
// file store's partial-write tolerance.
func (s *RedisStore) SaveSession(ctx context.Context, session *domain.Session) error {
	if session == nil || session.Token == "" {
		return errors.New("credstore: session token must not be empty")
	}

	if err := s.client.Set(ctx, s.key(keyAuthToken), session.Token, 0).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	if session.User != nil {
		data, err := json.Marshal(session.User)
		if err != nil {
			return fmt.Errorf("marshal profile: %w", err)
		}
		if err := s.client.Set(ctx, s.key(keyUserData), data, 0).Err(); err != nil {
			return fmt.Errorf("redis set profile: %w", err)
		}
	}
	return nil
}

// Token returns the stored bearer token or ErrNotFound.
func (s *RedisStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key(keyAuthToken)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("redis get token: %w", err)
	}
	return token, nil
}

// Profile returns the cached user profile or ErrNotFound.
func (s *RedisStore) Profile(ctx context.Context) (*domain.UserProfile, error) {
	data, err := s.client.Get(ctx, s.key(keyUserData)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get profile: %w", err)
	}

	var profile domain.UserProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &profile, nil
}

// IsAuthenticated reports token presence; read failures count as not
// authenticated.
func (s *RedisStore) IsAuthenticated(ctx context.Context) bool {
	token, err := s.Token(ctx)
	return err == nil && token != ""
}

// SaveSubscriptions caches the last fetched subscription snapshot.
func (s *RedisStore) SaveSubscriptions(ctx context.Context, subs []domain.Subscription) error {
	data, err := json.Marshal(subs)
	if err != nil {
		return fmt.Errorf("marshal subscriptions: %w", err)
	}
	if err := s.client.Set(ctx, s.key(keySubscriptionData), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set subscriptions: %w", err)
	}
	return nil
}

// Subscriptions returns the cached subscription snapshot or ErrNotFound.
func (s *RedisStore) Subscriptions(ctx context.Context) ([]domain.Subscription, error) {
	data, err := s.client.Get(ctx, s.key(keySubscriptionData)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get subscriptions: %w", err)
	}

	var subs []domain.Subscription
	if err := json.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("unmarshal subscriptions: %w", err)
	}
	return subs, nil
}

// ClearSession deletes the token first so a partial clear fails closed.
func (s *RedisStore) ClearSession(ctx context.Context) error {
	var errs []error
	for _, item := range []string{keyAuthToken, keyUserData, keySubscriptionData} {
		if err := s.client.Del(ctx, s.key(item)).Err(); err != nil {
			errs = append(errs, fmt.Errorf("redis del %s: %w", item, err))
		}
	}
	return errors.Join(errs...)
}
