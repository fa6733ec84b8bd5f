package domain

import "time"

// Session is the authenticated identity mirrored from the backend.
// Only UserID is consumed by the view; the rest is display and bookkeeping.
type Session struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
// A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Identity is what an OAuth provider tells us about the signed-in user.
type Identity struct {
	Subject string
	Email   string
}
