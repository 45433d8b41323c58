// Package gate decides whether a protected surface may render. The decision
// is derived from token presence in the credential store and nothing else;
// token validity is the backend's problem and shows up as a 401 later.
package gate

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gbaghdasaryan1/subscription-client/internal/credstore"
)

// Decision is the outcome of a gate check.
type Decision int

const (
	// RedirectLogin sends the user to the login screen.
	RedirectLogin Decision = iota
	// Allow renders the protected surface.
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "redirect_login"
}

// Gate guards protected surfaces. It fails closed: any store read failure
// is treated the same as having no token.
type Gate struct {
	store  credstore.Store
	logger *slog.Logger
}

// New creates a gate over the given credential store.
func New(store credstore.Store, log *slog.Logger) *Gate {
	return &Gate{store: store, logger: log}
}

// RequireSession returns Allow when a token is present in the store and
// RedirectLogin otherwise. It never returns an error: an unreadable store
// means redirect.
func (g *Gate) RequireSession(ctx context.Context) Decision {
	token, err := g.store.Token(ctx)
	if err != nil {
		if !errors.Is(err, credstore.ErrNotFound) {
			g.logger.WarnContext(ctx, "credential store unreadable, treating as signed out",
				slog.String("error", err.Error()))
		}
		return RedirectLogin
	}
	if token == "" {
		return RedirectLogin
	}
	return Allow
}
