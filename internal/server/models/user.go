// Package models defines server-side data models persisted in the database.
package models

import "time"

// User is a credential record. PasswordHash never leaves the repository and
// session service; use Info for anything sent to a client.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// UserInfo is the public profile of a user.
type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Info returns the public profile of u.
func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}
