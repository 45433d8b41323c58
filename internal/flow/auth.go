package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gbaghdasaryan1/subscription-client/internal/credstore"
	"github.com/gbaghdasaryan1/subscription-client/internal/domain"
	"github.com/gbaghdasaryan1/subscription-client/pkg/clienterrors"
	"github.com/gbaghdasaryan1/subscription-client/pkg/logger"
)

// Authenticator drives the session flows outside registration: login,
// logout, password change, account deletion, and the cached subscription
// snapshot. The credential store is written only on login success and
// cleared only by logout or account deletion.
type Authenticator struct {
	api    AuthAPI
	store  credstore.Store
	logger *slog.Logger
}

// NewAuthenticator creates the session flow driver.
func NewAuthenticator(api AuthAPI, store credstore.Store, log *slog.Logger) *Authenticator {
	return &Authenticator{api: api, store: store, logger: log}
}

// Login authenticates and persists the session. Both fields are required;
// the identifier is trimmed and lowercased before it goes out.
func (a *Authenticator) Login(ctx context.Context, identifier, password string) (*domain.Session, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))

	fields := map[string]string{}
	if identifier == "" {
		fields["EmailOrPhone"] = "is required"
	}
	if strings.TrimSpace(password) == "" {
		fields["Password"] = "is required"
	}
	if len(fields) > 0 {
		return nil, clienterrors.InvalidInput("fill in all fields", fields)
	}

	session, err := a.api.Login(ctx, identifier, password)
	if err != nil {
		return nil, err
	}

	if err := a.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	ctx = logger.WithUserID(ctx, userID(session))
	logger.WithContext(ctx, a.logger).InfoContext(ctx, "login succeeded")
	return session, nil
}

// Logout clears the local session. The backend keeps no session state for
// this client, so no remote call is involved.
func (a *Authenticator) Logout(ctx context.Context) error {
	if err := a.store.ClearSession(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	a.logger.InfoContext(ctx, "logged out")
	return nil
}

// ChangePassword rotates the password for the authenticated user.
func (a *Authenticator) ChangePassword(ctx context.Context, current, next string) error {
	if len(next) < domain.MinPasswordLength {
		return clienterrors.InvalidInput("new password is too short", map[string]string{
			"NewPassword": fmt.Sprintf("must be at least %d characters", domain.MinPasswordLength),
		})
	}
	return a.api.ChangePassword(ctx, current, next)
}

// DeleteAccount removes the account on the backend and then clears the
// local session. The local clear runs even though the remote call already
// succeeded; a failure there is reported so the UI can warn.
func (a *Authenticator) DeleteAccount(ctx context.Context) error {
	profile, err := a.store.Profile(ctx)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	if err := a.api.DeleteAccount(ctx, profile.ID); err != nil {
		return err
	}

	if err := a.store.ClearSession(ctx); err != nil {
		return fmt.Errorf("clear session after account deletion: %w", err)
	}
	a.logger.InfoContext(ctx, "account deleted", slog.String("user_id", profile.ID))
	return nil
}

// RefreshSubscriptions fetches the subscription list and caches it for
// offline display. A cache write failure is logged, not fatal; the fetched
// data is still returned.
func (a *Authenticator) RefreshSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	profile, err := a.store.Profile(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	subs, err := a.api.Subscriptions(ctx, profile.ID)
	if err != nil {
		return nil, err
	}

	if err := a.store.SaveSubscriptions(ctx, subs); err != nil {
		a.logger.WarnContext(ctx, "subscription cache write failed", slog.String("error", err.Error()))
	}
	return subs, nil
}

// CachedSubscriptions returns the last cached snapshot without touching the
// network.
func (a *Authenticator) CachedSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	return a.store.Subscriptions(ctx)
}
