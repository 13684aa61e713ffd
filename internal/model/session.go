package model

import "time"

// SessionToken is an opaque bearer token
type SessionToken string

// Session binds a token to an identity. Guest sessions carry a guest
// identity; authenticated sessions carry the user's ID.
type Session struct {
	Token     SessionToken
	Identity  Identity
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the session has passed its expiry
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
