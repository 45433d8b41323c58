package domain

// OTP delivery methods understood by the backend.
const (
	OTPMethodSMS  = "sms"
	OTPMethodMail = "mail"
)

// OTPChallenge identifies where a one-time code was dispatched. It is
// ephemeral and never persisted; the backend is authoritative on code
// expiry and validity.
type OTPChallenge struct {
	Target string // email address or phone number
	Method string // OTPMethodSMS or OTPMethodMail
}
