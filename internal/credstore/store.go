// Package credstore is the device-side persistence layer for the session
// and cached subscription data. It is the sole source of truth for "is a
// session active": a token in the store means authenticated, regardless of
// whether the cached profile made it to disk.
package credstore

import (
	"context"
	"errors"

	"github.com/gbaghdasaryan1/subscription-client/internal/domain"
)

// ErrNotFound is returned by reads when the requested item has never been
// stored or has been cleared.
var ErrNotFound = errors.New("credential not found")

// Storage keys. Each item is independently settable and clearable.
const (
	keyAuthToken        = "auth_token"
	keyUserData         = "user_data"
	keySubscriptionData = "subscription_data"
)

// Store persists the session across process restarts.
//
// SaveSession performs two independent writes, token first, so an
// interrupted save degrades to a token-only state that still counts as
// authenticated. ClearSession deletes the token first for the same reason:
// a partial clear always fails closed. ClearSession is idempotent.
type Store interface {
	SaveSession(ctx context.Context, session *domain.Session) error
	Token(ctx context.Context) (string, error)
	Profile(ctx context.Context) (*domain.UserProfile, error)
	IsAuthenticated(ctx context.Context) bool
	SaveSubscriptions(ctx context.Context, subs []domain.Subscription) error
	Subscriptions(ctx context.Context) ([]domain.Subscription, error)
	ClearSession(ctx context.Context) error
}
