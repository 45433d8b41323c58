package domain

import (
	"errors"
	"strings"

	"github.com/gbaghdasaryan1/subscription-client/pkg/clienterrors"
	"github.com/gbaghdasaryan1/subscription-client/pkg/validator"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// RegistrationForm holds the in-progress registration input. It lives for a
// single attempt: created empty, mutated field by field, consumed when the
// flow finalizes or is abandoned.
type RegistrationForm struct {
	FullName    string `json:"fullName" validate:"required"`
	Phone       string `json:"phone" validate:"omitempty,min=5"`
	Email       string `json:"email" validate:"omitempty,email"`
	Gender      string `json:"gender" validate:"required,oneof=male female"`
	Password    string `json:"password" validate:"required,min=6"`
	AcceptTerms bool   `json:"acceptTerms"`

	// Code is the OTP the user typed; populated only during the verify step.
	Code string `json:"code,omitempty"`
}

// Normalize trims whitespace and lowercases the email, matching what the
// backend expects for identifier comparison.
func (f *RegistrationForm) Normalize() {
	f.FullName = strings.TrimSpace(f.FullName)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
}

// Validate applies the local submission rules. It returns a
// clienterrors.Validation error with per-field messages; no network call may
// be made when it fails.
func (f *RegistrationForm) Validate() error {
	f.Normalize()

	fields := map[string]string{}

	if err := validator.Validate(f); err != nil {
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			for k, v := range verr.Fields() {
				fields[k] = v
			}
		} else {
			return clienterrors.InvalidInput(err.Error(), nil)
		}
	}

	// Email and phone are mutually optional but one must be present.
	if f.Email == "" && f.Phone == "" {
		fields["Email"] = "either email or phone is required"
		fields["Phone"] = "either email or phone is required"
	}

	if !f.AcceptTerms {
		fields["AcceptTerms"] = "the terms of service must be accepted"
	}

	if len(fields) > 0 {
		return clienterrors.InvalidInput("check the registration form", fields)
	}
	return nil
}

// Challenge picks the OTP target from the form: email wins when both are
// supplied, phone otherwise.
func (f *RegistrationForm) Challenge() OTPChallenge {
	if f.Email != "" {
		return OTPChallenge{Target: f.Email, Method: OTPMethodMail}
	}
	return OTPChallenge{Target: f.Phone, Method: OTPMethodSMS}
}
