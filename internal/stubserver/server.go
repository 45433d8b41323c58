// Package stubserver is a self-contained backend speaking the auth API the
// client expects: OTP-gated registration, login, password change, account
// deletion, and subscription listing. State is in memory; codes are never
// actually delivered, they are logged and readable through LastOTP.
package stubserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gbaghdasaryan1/subscription-client/internal/domain"
)

// Config holds the knobs for the stub backend.
type Config struct {
	JWTSecret   string
	TokenExpiry time.Duration
}

// Server implements the auth backend contract over in-memory state.
type Server struct {
	registry *registry
	otp      *otpIssuer
	tokens   *tokenManager
	logger   *slog.Logger
	router   chi.Router
}

// New creates a stub backend.
func New(cfg Config, log *slog.Logger) *Server {
	if cfg.TokenExpiry == 0 {
		cfg.TokenExpiry = 24 * time.Hour
	}

	s := &Server{
		registry: newRegistry(),
		otp:      newOTPIssuer(),
		tokens:   newTokenManager(cfg.JWTSecret, cfg.TokenExpiry),
		logger:   log,
	}

	r := chi.NewRouter()
	r.Use(recovery(log))
	r.Use(requestLogging(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/verification-otp", s.handleRequestOTP)
	r.Post("/auth/verify-otp", s.handleVerifyOTP)
	r.Post("/auth/register", s.handleRegister)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Post("/auth/change-password", s.handleChangePassword)
		r.Delete("/users/{id}", s.handleDeleteAccount)
		r.Get("/subscriptions/{userId}", s.handleSubscriptions)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// LastOTP returns the code most recently dispatched to target. This is the
// delivery channel: the stub has no SMS or mail transport.
func (s *Server) LastOTP(target string) (string, bool) {
	return s.otp.lastCode(target)
}

// Session issues a token for an existing account, bypassing login. Test
// convenience only.
func (s *Server) Session(identifier, password string) (*domain.Session, error) {
	acc, err := s.registry.authenticate(identifier, password)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.issue(acc.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Session{Token: token, User: acc.profile()}, nil
}
