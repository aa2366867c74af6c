// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account.
//
// Timestamps on users and sessions are epoch milliseconds, while cheat items
// use ISO-8601 strings. Clients already depend on both shapes, so they are
// kept as they are.
type User struct {
	ID           int64   `json:"id"`
	Email        string  `json:"email"`
	PasswordHash string  `json:"-"`
	AccountName  *string `json:"account_name"` // nil until the user picks one
	CreatedAt    int64   `json:"created_at"`
}

// Identity is the public view of a user attached to an authenticated request.
type Identity struct {
	ID          int64   `json:"id"`
	Email       string  `json:"email"`
	AccountName *string `json:"account_name"`
}

func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, AccountName: u.AccountName}
}

// Session is a server-side login record keyed by an opaque token.
// User is filled in by lookups that join the owning account.
type Session struct {
	Token     string
	UserID    int64
	CreatedAt int64
	ExpiresAt int64
	User      Identity
}

func NewSession(token string, userID int64, now time.Time, ttl time.Duration) *Session {
	created := now.UnixMilli()
	return &Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: created,
		ExpiresAt: created + ttl.Milliseconds(),
	}
}

// Expired reports whether the session is no longer usable at now.
// A session whose expiry equals now is already expired.
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt <= now.UnixMilli()
}
