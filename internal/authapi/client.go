// Package authapi is the stateless request/response wrapper around the
// backend's auth endpoints. Every call is an independent round trip against
// a single configurable origin; failures come back normalized into the
// clienterrors taxonomy, never as raw transport errors.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/gbaghdasaryan1/subscription-client/internal/domain"
	"github.com/gbaghdasaryan1/subscription-client/pkg/clienterrors"
	"github.com/gbaghdasaryan1/subscription-client/pkg/logger"
	"github.com/gbaghdasaryan1/subscription-client/pkg/tracing"
)

// maxErrorBody caps how much of an error response body is read.
const maxErrorBody = 1 << 20

// Doer executes a single HTTP request. Satisfied by both httpclient.Client
// and httpclient.CircuitBreakerClient.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// TokenSource supplies the bearer token for outbound requests. The
// credential store satisfies this; absence of a token simply omits the
// Authorization header.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client calls the backend auth API.
type Client struct {
	baseURL string
	http    Doer
	tokens  TokenSource
	logger  *slog.Logger
	tracer  trace.Tracer
}

// New creates an auth API client for the given origin. tokens may be nil
// for clients that never attach credentials.
func New(baseURL string, doer Doer, tokens TokenSource, log *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    doer,
		tokens:  tokens,
		logger:  log,
		tracer:  tracing.Tracer("authapi"),
	}
}

// --- wire types ---

type loginRequest struct {
	EmailOrPhone string `json:"emailOrPhone"`
	Password     string `json:"password"`
}

type authPayload struct {
	AccessToken string              `json:"access_token"`
	User        *domain.UserProfile `json:"user"`
}

type otpRequest struct {
	EmailOrPhone string `json:"emailOrPhone"`
	Method       string `json:"method"`
}

type verifyOTPRequest struct {
	Target string `json:"target"`
	OTP    string `json:"otp"`
}

type verifyOTPResponse struct {
	Verified bool `json:"verified"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// --- operations ---

// Login exchanges credentials for a session. Invalid credentials surface as
// an Authentication error.
func (c *Client) Login(ctx context.Context, identifier, password string) (*domain.Session, error) {
	var payload authPayload
	err := c.do(ctx, "login", http.MethodPost, "/auth/login",
		loginRequest{EmailOrPhone: identifier, Password: password}, &payload)
	if err != nil {
		return nil, err
	}
	if payload.AccessToken == "" {
		return nil, clienterrors.Unknown(0, "malformed response from the server", nil)
	}
	return &domain.Session{Token: payload.AccessToken, User: payload.User}, nil
}

// RequestOTP asks the backend to dispatch a one-time code to the challenge
// target. Safe to call repeatedly; the backend rate-limits.
func (c *Client) RequestOTP(ctx context.Context, ch domain.OTPChallenge) error {
	return c.do(ctx, "request_otp", http.MethodPost, "/auth/verification-otp",
		otpRequest{EmailOrPhone: ch.Target, Method: ch.Method}, nil)
}

// VerifyOTP reports whether the code matches the one dispatched for target.
// It does not create a session.
func (c *Client) VerifyOTP(ctx context.Context, target, code string) (bool, error) {
	var payload verifyOTPResponse
	err := c.do(ctx, "verify_otp", http.MethodPost, "/auth/verify-otp",
		verifyOTPRequest{Target: target, OTP: code}, &payload)
	if err != nil {
		return false, err
	}
	return payload.Verified, nil
}

// FinalizeRegistration creates the account and returns its first session.
// Only meaningful after VerifyOTP returned true for the form's identifier;
// the backend is the enforcement point.
func (c *Client) FinalizeRegistration(ctx context.Context, form *domain.RegistrationForm) (*domain.Session, error) {
	var payload authPayload
	err := c.do(ctx, "register", http.MethodPost, "/auth/register", form, &payload)
	if err != nil {
		return nil, err
	}
	if payload.AccessToken == "" {
		return nil, clienterrors.Unknown(0, "malformed response from the server", nil)
	}
	return &domain.Session{Token: payload.AccessToken, User: payload.User}, nil
}

// ChangePassword rotates the authenticated user's password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	return c.do(ctx, "change_password", http.MethodPost, "/auth/change-password",
		changePasswordRequest{CurrentPassword: current, NewPassword: next}, nil)
}

// DeleteAccount removes the account on the backend. The caller clears the
// local session afterwards.
func (c *Client) DeleteAccount(ctx context.Context, userID string) error {
	return c.do(ctx, "delete_account", http.MethodDelete, "/users/"+userID, nil, nil)
}

// Subscriptions fetches the user's subscription list.
func (c *Client) Subscriptions(ctx context.Context, userID string) ([]domain.Subscription, error) {
	var subs []domain.Subscription
	if err := c.do(ctx, "subscriptions", http.MethodGet, "/subscriptions/"+userID, nil, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// --- request plumbing ---

func (c *Client) do(ctx context.Context, endpoint, method, path string, body, out any) error {
	ctx, span := c.tracer.Start(ctx, "authapi."+endpoint)
	defer span.End()

	correlationID := uuid.NewString()
	ctx = logger.WithCorrelationID(ctx, correlationID)

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return clienterrors.Unknown(0, fmt.Sprintf("encode request: %v", err), err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return clienterrors.Unknown(0, fmt.Sprintf("create request: %v", err), err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Correlation-ID", correlationID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Outbound interceptor: attach the bearer token when the store has one,
	// omit the header otherwise.
	if c.tokens != nil {
		if token, err := c.tokens.Token(ctx); err == nil && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		cerr := clienterrors.FromTransport(err)
		c.observe(ctx, endpoint, cerr)
		return cerr
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		cerr := errorFromResponse(resp)
		c.observe(ctx, endpoint, cerr)
		return cerr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			cerr := clienterrors.Unknown(resp.StatusCode, "malformed response from the server", err)
			c.observe(ctx, endpoint, cerr)
			return cerr
		}
	}

	c.observe(ctx, endpoint, nil)
	return nil
}

// errorBody is the loose shape of backend error responses. The backend is
// not consistent about which key carries the message, so all known spellings
// are tried in order.
type errorBody struct {
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Detail  string            `json:"detail"`
	Msg     string            `json:"msg"`
	Fields  map[string]string `json:"fields"`
	Errors  map[string]string `json:"errors"`
}

func (b *errorBody) message() string {
	for _, m := range []string{b.Message, b.Error, b.Detail, b.Msg} {
		if m != "" {
			return m
		}
	}
	return ""
}

func (b *errorBody) fields() map[string]string {
	if len(b.Fields) > 0 {
		return b.Fields
	}
	return b.Errors
}

func errorFromResponse(resp *http.Response) *clienterrors.Error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return clienterrors.FromStatus(resp.StatusCode,
			fmt.Sprintf("server returned status %d", resp.StatusCode), nil)
	}

	var body errorBody
	if json.Unmarshal(raw, &body) == nil {
		if msg := body.message(); msg != "" {
			return clienterrors.FromStatus(resp.StatusCode, msg, body.fields())
		}
	}

	return clienterrors.FromStatus(resp.StatusCode,
		fmt.Sprintf("server returned status %d", resp.StatusCode), nil)
}

func (c *Client) observe(ctx context.Context, endpoint string, err error) {
	outcome := outcomeLabel(err)
	requestsTotal.WithLabelValues(endpoint, outcome).Inc()

	if err != nil {
		logger.WithContext(ctx, c.logger).WarnContext(ctx, "auth api call failed",
			slog.String("endpoint", endpoint),
			slog.String("outcome", outcome),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.WithContext(ctx, c.logger).DebugContext(ctx, "auth api call ok",
		slog.String("endpoint", endpoint),
	)
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, clienterrors.ErrTimeout):
		return "timeout"
	case errors.Is(err, clienterrors.ErrNetwork):
		return "network"
	case errors.Is(err, clienterrors.ErrAuthentication):
		return "authentication"
	case errors.Is(err, clienterrors.ErrValidation):
		return "validation"
	case errors.Is(err, clienterrors.ErrServer):
		return "server"
	default:
		return "unknown"
	}
}
