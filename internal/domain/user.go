package domain

import "time"

// Gender values accepted at registration.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// UserProfile is the cached copy of the account record the backend returns on
// login and registration. It is display data only; authentication state is
// derived from token presence, never from having a profile.
type UserProfile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Session is the durable record of a logged-in user on this device: the
// opaque bearer token plus the profile it was issued for. Sessions are
// replaced wholesale, never mutated in place.
type Session struct {
	Token string       `json:"token"`
	User  *UserProfile `json:"user,omitempty"`
}
