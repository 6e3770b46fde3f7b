package models

import "time"

// Identity is the backend auth user.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the backend session held server-side for one browser.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	// ValidatedAt is when the backend last confirmed the access token.
	ValidatedAt time.Time `json:"validated_at"`
}

// Expired reports whether the backend access token is no longer usable.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// SessionEventType names a session change.
type SessionEventType string

const (
	SessionSignedIn  SessionEventType = "SIGNED_IN"
	SessionSignedOut SessionEventType = "SIGNED_OUT"
)

// SessionEvent is published whenever a browser signs in or out.
type SessionEvent struct {
	Type    SessionEventType
	UserID  string
	Session *Session
	At      time.Time
}
