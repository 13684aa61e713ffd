package model

import "time"

// User represents a registered account
// Stored separately from participants; a user can race many times
type User struct {
	ID           UserID
	Username     string // login username (immutable)
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
