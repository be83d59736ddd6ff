// Package models defines client-side data models used by the Health Records CLI.
package models

import "time"

// Tokens is the renewable part of a session. Both tokens are replaced on
// every refresh.
type Tokens struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
}

// UserProfile is the last known profile of the signed-in user.
type UserProfile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Session is what the client persists between runs.
type Session struct {
	Tokens
	User UserProfile
}
