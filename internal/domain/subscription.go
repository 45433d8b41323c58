package domain

import "time"

// Subscription statuses reported by the backend.
const (
	SubscriptionActive  = "active"
	SubscriptionExpired = "expired"
	SubscriptionPaused  = "paused"
)

// Subscription is a plan purchased by the user. The client only renders it
// and caches the last fetched snapshot for offline display (the QR screen).
type Subscription struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	PlanName   string    `json:"planName"`
	Status     string    `json:"status"`
	VisitsLeft int       `json:"visitsLeft"`
	StartsAt   time.Time `json:"startsAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// IsActive reports whether the subscription currently grants access.
func (s *Subscription) IsActive(now time.Time) bool {
	return s.Status == SubscriptionActive && now.Before(s.ExpiresAt)
}
