package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/gbaghdasaryan1/subscription-client/internal/domain"
)

// MemoryStore is an in-process Store used by tests and throwaway sessions.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string][]byte{}}
}

func (s *MemoryStore) set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = data
	return nil
}

func (s *MemoryStore) get(key string, out any) error {
	s.mu.RLock()
	data, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(data, out)
}

// SaveSession stores the token and profile.
func (s *MemoryStore) SaveSession(ctx context.Context, session *domain.Session) error {
	if session == nil || session.Token == "" {
		return errors.New("credstore: session token must not be empty")
	}
	if err := s.set(keyAuthToken, session.Token); err != nil {
		return err
	}
	if session.User != nil {
		return s.set(keyUserData, session.User)
	}
	return nil
}

// Token returns the stored bearer token or ErrNotFound.
func (s *MemoryStore) Token(ctx context.Context) (string, error) {
	var token string
	if err := s.get(keyAuthToken, &token); err != nil {
		return "", err
	}
	return token, nil
}

// Profile returns the cached user profile or ErrNotFound.
func (s *MemoryStore) Profile(ctx context.Context) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	if err := s.get(keyUserData, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// IsAuthenticated reports token presence.
func (s *MemoryStore) IsAuthenticated(ctx context.Context) bool {
	token, err := s.Token(ctx)
	return err == nil && token != ""
}

// SaveSubscriptions caches the subscription snapshot.
func (s *MemoryStore) SaveSubscriptions(ctx context.Context, subs []domain.Subscription) error {
	return s.set(keySubscriptionData, subs)
}

// Subscriptions returns the cached subscription snapshot or ErrNotFound.
func (s *MemoryStore) Subscriptions(ctx context.Context) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	if err := s.get(keySubscriptionData, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// ClearSession removes everything; calling it twice is a no-op.
func (s *MemoryStore) ClearSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, keyAuthToken)
	delete(s.items, keyUserData)
	delete(s.items, keySubscriptionData)
	return nil
}
