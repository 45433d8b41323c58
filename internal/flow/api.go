// Package flow drives the multi-step client protocols: the registration →
// OTP-verify → finalize sequence and the login/logout/account flows. It owns
// sequencing and failure recovery; rendering and navigation stay outside.
package flow

import (
	"context"

	"github.com/gbaghdasaryan1/subscription-client/internal/domain"
)

// AuthAPI is the remote auth surface the flows depend on. Implemented by
// authapi.Client; replaced by mocks in tests.
type AuthAPI interface {
	Login(ctx context.Context, identifier, password string) (*domain.Session, error)
	RequestOTP(ctx context.Context, ch domain.OTPChallenge) error
	VerifyOTP(ctx context.Context, target, code string) (bool, error)
	FinalizeRegistration(ctx context.Context, form *domain.RegistrationForm) (*domain.Session, error)
	ChangePassword(ctx context.Context, current, next string) error
	DeleteAccount(ctx context.Context, userID string) error
	Subscriptions(ctx context.Context, userID string) ([]domain.Subscription, error)
}
