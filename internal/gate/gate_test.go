package gate

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gbaghdasaryan1/subscription-client/internal/credstore"
	"github.com/gbaghdasaryan1/subscription-client/internal/domain"
	"github.com/gbaghdasaryan1/subscription-client/pkg/logger"
)

type brokenStore struct {
	credstore.Store
}

func (brokenStore) Token(ctx context.Context) (string, error) {
	return "", errors.New("storage corrupted")
}

func newGate(store credstore.Store) *Gate {
	return New(store, logger.NewWithWriter("gate-test", "error", io.Discard))
}

func TestRequireSession_NoToken(t *testing.T) {
	g := newGate(credstore.NewMemoryStore())
	assert.Equal(t, RedirectLogin, g.RequireSession(context.Background()))
}

func TestRequireSession_TokenPresent(t *testing.T) {
	ctx := context.Background()
	store := credstore.NewMemoryStore()
	require.NoError(t, store.SaveSession(ctx, &domain.Session{Token: "tok123"}))

	g := newGate(store)
	assert.Equal(t, Allow, g.RequireSession(ctx))
}

func TestRequireSession_TokenWithoutProfileStillAllows(t *testing.T) {
	// Token presence alone decides; a missing cached profile must not
	// lock the user out.
	ctx := context.Background()
	store := credstore.NewMemoryStore()
	require.NoError(t, store.SaveSession(ctx, &domain.Session{Token: "tok123"}))

	g := newGate(store)
	_, err := store.Profile(ctx)
	require.ErrorIs(t, err, credstore.ErrNotFound)
	assert.Equal(t, Allow, g.RequireSession(ctx))
}

func TestRequireSession_UnreadableStoreFailsClosed(t *testing.T) {
	g := newGate(brokenStore{})
	assert.Equal(t, RedirectLogin, g.RequireSession(context.Background()))
}

func TestRequireSession_AfterLogout(t *testing.T) {
	ctx := context.Background()
	store := credstore.NewMemoryStore()
	require.NoError(t, store.SaveSession(ctx, &domain.Session{Token: "tok123"}))
	require.NoError(t, store.ClearSession(ctx))

	g := newGate(store)
	assert.Equal(t, RedirectLogin, g.RequireSession(ctx))
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "allow", Allow.String())
	assert.Equal(t, "redirect_login", RedirectLogin.String())
}
