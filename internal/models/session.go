package models

import "time"

// SessionUser is the identity attached to a session
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Session is the authenticated session established with the sync service
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type,omitempty"`
	ExpiresAt    time.Time   `json:"expires_at"`
	User         SessionUser `json:"user"`
}

// ExpiresWithin reports whether the session expires before now+margin.
// A zero ExpiresAt never expires.
func (s Session) ExpiresWithin(now time.Time, margin time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(margin).Before(s.ExpiresAt)
}
