package stubserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gbaghdasaryan1/subscription-client/internal/authapi"
	"github.com/gbaghdasaryan1/subscription-client/internal/credstore"
	"github.com/gbaghdasaryan1/subscription-client/internal/domain"
	"github.com/gbaghdasaryan1/subscription-client/internal/flow"
	"github.com/gbaghdasaryan1/subscription-client/internal/modal"
	"github.com/gbaghdasaryan1/subscription-client/pkg/clienterrors"
	"github.com/gbaghdasaryan1/subscription-client/pkg/httpclient"
	"github.com/gbaghdasaryan1/subscription-client/pkg/logger"
)

func newStub(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	log := logger.NewWithWriter("stub-test", "error", io.Discard)
	stub := New(Config{JWTSecret: "test-secret"}, log)
	ts := httptest.NewServer(stub)
	t.Cleanup(ts.Close)
	return stub, ts
}

func newClient(baseURL string, tokens authapi.TokenSource) *authapi.Client {
	log := logger.NewWithWriter("client-test", "error", io.Discard)
	return authapi.New(baseURL, httpclient.New(httpclient.DefaultConfig()), tokens, log)
}

// registerAccount walks the full protocol against the stub and returns the
// issued session.
func registerAccount(t *testing.T, stub *Server, ts *httptest.Server, email, password string) *domain.Session {
	t.Helper()
	ctx := context.Background()
	store := credstore.NewMemoryStore()
	api := newClient(ts.URL, store)
	machine := flow.NewRegistration(api, store, modal.NewCoordinator(), logger.NewWithWriter("flow", "error", io.Discard))

	require.NoError(t, machine.Update(func(f *domain.RegistrationForm) {
		f.FullName = "Ivan Petrov"
		f.Email = email
		f.Gender = domain.GenderMale
		f.Password = password
		f.AcceptTerms = true
	}))
	require.NoError(t, machine.Submit(ctx))

	code, ok := stub.LastOTP(email)
	require.True(t, ok)
	require.NoError(t, machine.SubmitCode(ctx, code))
	require.Equal(t, flow.StateComplete, machine.State())

	token, err := store.Token(ctx)
	require.NoError(t, err)
	profile, err := store.Profile(ctx)
	require.NoError(t, err)
	return &domain.Session{Token: token, User: profile}
}

func TestEndToEnd_Registration(t *testing.T) {
	stub, ts := newStub(t)

	session := registerAccount(t, stub, ts, "ivan@mail.ru", "sekret1")
	assert.NotEmpty(t, session.Token)
	require.NotNil(t, session.User)
	assert.Equal(t, "ivan@mail.ru", session.User.Email)
}

func TestEndToEnd_WrongCodeThenCorrect(t *testing.T) {
	ctx := context.Background()
	stub, ts := newStub(t)
	store := credstore.NewMemoryStore()
	api := newClient(ts.URL, store)
	overlay := modal.NewCoordinator()
	machine := flow.NewRegistration(api, store, overlay, logger.NewWithWriter("flow", "error", io.Discard))

	require.NoError(t, machine.Update(func(f *domain.RegistrationForm) {
		f.FullName = "Ivan Petrov"
		f.Email = "ivan@mail.ru"
		f.Gender = domain.GenderMale
		f.Password = "sekret1"
		f.AcceptTerms = true
	}))
	require.NoError(t, machine.Submit(ctx))

	err := machine.SubmitCode(ctx, "999999")
	require.Error(t, err)
	assert.ErrorIs(t, err, flow.ErrWrongCode)
	assert.True(t, overlay.State().IsOpen)
	assert.False(t, store.IsAuthenticated(ctx))

	code, ok := stub.LastOTP("ivan@mail.ru")
	require.True(t, ok)
	require.NoError(t, machine.SubmitCode(ctx, code))
	assert.True(t, store.IsAuthenticated(ctx))
}

func TestEndToEnd_RegisterWithoutVerifyFails(t *testing.T) {
	ctx := context.Background()
	stub, ts := newStub(t)
	api := newClient(ts.URL, nil)

	form := &domain.RegistrationForm{
		FullName:    "Ivan Petrov",
		Email:       "ivan@mail.ru",
		Gender:      domain.GenderMale,
		Password:    "sekret1",
		AcceptTerms: true,
	}

	require.NoError(t, api.RequestOTP(ctx, form.Challenge()))
	code, ok := stub.LastOTP("ivan@mail.ru")
	require.True(t, ok)

	// Finalizing with the right code but no prior verify must be refused.
	form.Code = code
	_, err := api.FinalizeRegistration(ctx, form)
	require.Error(t, err)
	assert.True(t, errors.Is(err, clienterrors.ErrValidation))
}

func TestEndToEnd_OTPResendCooldown(t *testing.T) {
	ctx := context.Background()
	_, ts := newStub(t)
	api := newClient(ts.URL, nil)

	ch := domain.OTPChallenge{Target: "ivan@mail.ru", Method: domain.OTPMethodMail}
	require.NoError(t, api.RequestOTP(ctx, ch))

	err := api.RequestOTP(ctx, ch)
	require.Error(t, err)
	assert.True(t, errors.Is(err, clienterrors.ErrValidation))
}

func TestEndToEnd_OTPRequestForTakenIdentifier(t *testing.T) {
	ctx := context.Background()
	stub, ts := newStub(t)
	registerAccount(t, stub, ts, "ivan@mail.ru", "sekret1")

	api := newClient(ts.URL, nil)
	err := api.RequestOTP(ctx, domain.OTPChallenge{Target: "ivan@mail.ru", Method: domain.OTPMethodMail})
	require.Error(t, err)

	var cerr *clienterrors.Error
	require.ErrorAs(t, err, &cerr)
	assert.True(t, errors.Is(err, clienterrors.ErrValidation))
	assert.Contains(t, cerr.Fields, "EmailOrPhone")
}

func TestEndToEnd_LoginFlow(t *testing.T) {
	ctx := context.Background()
	stub, ts := newStub(t)
	registerAccount(t, stub, ts, "ivan@mail.ru", "sekret1")

	store := credstore.NewMemoryStore()
	api := newClient(ts.URL, store)
	auth := flow.NewAuthenticator(api, store, logger.NewWithWriter("flow", "error", io.Discard))

	// Identifier normalization happens client-side.
	session, err := auth.Login(ctx, " Ivan@Mail.RU ", "sekret1")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.True(t, store.IsAuthenticated(ctx))

	_, err = auth.Login(ctx, "ivan@mail.ru", "wrong-password")
	require.Error(t, err)
	assert.True(t, errors.Is(err, clienterrors.ErrAuthentication))
}

func TestEndToEnd_SubscriptionsRequireAuth(t *testing.T) {
	ctx := context.Background()
	stub, ts := newStub(t)
	session := registerAccount(t, stub, ts, "ivan@mail.ru", "sekret1")

	// Without a token the request is refused.
	bare := newClient(ts.URL, nil)
	_, err := bare.Subscriptions(ctx, session.User.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, clienterrors.ErrAuthentication))

	// With the session token the trial subscription comes back.
	store := credstore.NewMemoryStore()
	require.NoError(t, store.SaveSession(ctx, session))
	api := newClient(ts.URL, store)

	subs, err := api.Subscriptions(ctx, session.User.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "Trial", subs[0].PlanName)
	assert.Equal(t, domain.SubscriptionActive, subs[0].Status)
}

func TestEndToEnd_ChangePasswordAndRelogin(t *testing.T) {
	ctx := context.Background()
	stub, ts := newStub(t)
	session := registerAccount(t, stub, ts, "ivan@mail.ru", "sekret1")

	store := credstore.NewMemoryStore()
	require.NoError(t, store.SaveSession(ctx, session))
	api := newClient(ts.URL, store)
	auth := flow.NewAuthenticator(api, store, logger.NewWithWriter("flow", "error", io.Discard))

	// Wrong current password is a field-level rejection.
	err := auth.ChangePassword(ctx, "not-it", "newsekret")
	require.Error(t, err)
	assert.True(t, errors.Is(err, clienterrors.ErrValidation))

	require.NoError(t, auth.ChangePassword(ctx, "sekret1", "newsekret"))

	_, err = auth.Login(ctx, "ivan@mail.ru", "sekret1")
	require.Error(t, err)
	_, err = auth.Login(ctx, "ivan@mail.ru", "newsekret")
	require.NoError(t, err)
}

func TestEndToEnd_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	stub, ts := newStub(t)
	session := registerAccount(t, stub, ts, "ivan@mail.ru", "sekret1")

	store := credstore.NewMemoryStore()
	require.NoError(t, store.SaveSession(ctx, session))
	api := newClient(ts.URL, store)
	auth := flow.NewAuthenticator(api, store, logger.NewWithWriter("flow", "error", io.Discard))

	require.NoError(t, auth.DeleteAccount(ctx))
	assert.False(t, store.IsAuthenticated(ctx))

	_, err := stub.Session("ivan@mail.ru", "sekret1")
	require.Error(t, err)
}

func TestEndToEnd_CannotTouchAnotherAccount(t *testing.T) {
	ctx := context.Background()
	stub, ts := newStub(t)
	first := registerAccount(t, stub, ts, "ivan@mail.ru", "sekret1")
	second := registerAccount(t, stub, ts, "olga@mail.ru", "sekret2")

	store := credstore.NewMemoryStore()
	require.NoError(t, store.SaveSession(ctx, first))
	api := newClient(ts.URL, store)

	err := api.DeleteAccount(ctx, second.User.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, clienterrors.ErrAuthentication))

	_, err = api.Subscriptions(ctx, second.User.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, clienterrors.ErrAuthentication))
}

func TestHealthz(t *testing.T) {
	_, ts := newStub(t)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
