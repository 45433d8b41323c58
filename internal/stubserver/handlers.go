package stubserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/gbaghdasaryan1/subscription-client/internal/domain"
	"github.com/gbaghdasaryan1/subscription-client/pkg/logger"
	"github.com/gbaghdasaryan1/subscription-client/pkg/validator"
)

// --- wire types ---

type loginRequest struct {
	EmailOrPhone string `json:"emailOrPhone" validate:"required"`
	Password     string `json:"password" validate:"required"`
}

type otpRequest struct {
	EmailOrPhone string `json:"emailOrPhone" validate:"required"`
	Method       string `json:"method" validate:"required,oneof=sms mail"`
}

type verifyOTPRequest struct {
	Target string `json:"target" validate:"required"`
	OTP    string `json:"otp" validate:"required,min=4"`
}

type registerRequest struct {
	FullName    string `json:"fullName" validate:"required"`
	Phone       string `json:"phone" validate:"omitempty,min=5"`
	Email       string `json:"email" validate:"omitempty,email"`
	Gender      string `json:"gender" validate:"required,oneof=male female"`
	Password    string `json:"password" validate:"required,min=6"`
	AcceptTerms bool   `json:"acceptTerms"`
	Code        string `json:"code" validate:"required,min=4"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

type authResponse struct {
	AccessToken string              `json:"access_token"`
	User        *domain.UserProfile `json:"user"`
}

// errorResponse is the flat error shape the mobile client parses.
type errorResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, fields map[string]string) {
	writeJSON(w, status, errorResponse{Message: message, Fields: fields})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := validator.DecodeAndValidate(r, dst); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, "request validation failed", verr.Fields())
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return false
	}
	return true
}

// --- handlers ---

// handleLogin implements POST /auth/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}

	acc, err := s.registry.authenticate(req.EmailOrPhone, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	token, err := s.tokens.issue(acc.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issue failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{AccessToken: token, User: acc.profile()})
}

// handleRequestOTP implements POST /auth/verification-otp. The code is not
// delivered anywhere; it is logged and kept for LastOTP.
func (s *Server) handleRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decode(w, r, &req) {
		return
	}

	if s.registry.identifierTaken(req.EmailOrPhone) {
		writeError(w, http.StatusUnprocessableEntity, "already registered", map[string]string{
			"EmailOrPhone": "an account with this identifier already exists",
		})
		return
	}

	code, err := s.otp.issue(req.EmailOrPhone)
	if err != nil {
		if errors.Is(err, errOTPCooldown) {
			writeError(w, http.StatusUnprocessableEntity, err.Error(), nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "code generation failed", nil)
		return
	}

	logger.FromContext(r.Context()).InfoContext(r.Context(), "otp dispatched",
		slog.String("target", req.EmailOrPhone),
		slog.String("method", req.Method),
		slog.String("code", code),
	)
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// handleVerifyOTP implements POST /auth/verify-otp. A mismatched code is a
// negative answer, not an error.
func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if !decode(w, r, &req) {
		return
	}

	switch err := s.otp.check(req.Target, req.OTP); {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
	case errors.Is(err, errOTPMismatch):
		writeJSON(w, http.StatusOK, map[string]bool{"verified": false})
	default:
		writeError(w, http.StatusBadRequest, "no code dispatched for this target", nil)
	}
}

// handleRegister implements POST /auth/register. The OTP must have been
// verified for the form's challenge target; the code is consumed here.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Email == "" && req.Phone == "" {
		writeError(w, http.StatusBadRequest, "request validation failed", map[string]string{
			"Email": "either email or phone is required",
			"Phone": "either email or phone is required",
		})
		return
	}
	if !req.AcceptTerms {
		writeError(w, http.StatusBadRequest, "request validation failed", map[string]string{
			"AcceptTerms": "the terms of service must be accepted",
		})
		return
	}

	target := req.Email
	if target == "" {
		target = req.Phone
	}
	if err := s.otp.consume(strings.ToLower(target), req.Code); err != nil {
		writeError(w, http.StatusBadRequest, "confirmation code is invalid or expired", map[string]string{
			"Code": "invalid or expired",
		})
		return
	}

	acc, err := s.registry.create(newAccount{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Gender:   req.Gender,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, errAccountExists) {
			writeError(w, http.StatusUnprocessableEntity, "already registered", map[string]string{
				"EmailOrPhone": "an account with this identifier already exists",
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "account creation failed", nil)
		return
	}

	token, err := s.tokens.issue(acc.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issue failed", nil)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{AccessToken: token, User: acc.profile()})
}

// handleChangePassword implements POST /auth/change-password.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decode(w, r, &req) {
		return
	}

	err := s.registry.changePassword(authedUserID(r.Context()), req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, errBadCredentials):
		writeError(w, http.StatusBadRequest, "current password is incorrect", map[string]string{
			"CurrentPassword": "incorrect",
		})
	case errors.Is(err, errAccountNotFound):
		writeError(w, http.StatusUnauthorized, "account no longer exists", nil)
	default:
		writeError(w, http.StatusInternalServerError, "password change failed", nil)
	}
}

// handleDeleteAccount implements DELETE /users/{id}. Accounts may only
// delete themselves.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id != authedUserID(r.Context()) {
		writeError(w, http.StatusForbidden, "cannot delete another account", nil)
		return
	}

	if err := s.registry.delete(id); err != nil {
		writeError(w, http.StatusNotFound, "account not found", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSubscriptions implements GET /subscriptions/{userId}.
func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID != authedUserID(r.Context()) {
		writeError(w, http.StatusForbidden, "cannot read another account's subscriptions", nil)
		return
	}
	writeJSON(w, http.StatusOK, s.registry.subscriptionsFor(userID))
}
