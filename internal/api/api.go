// Package api holds the JSON wire types shared by the REST server and the
// client.
package api

import (
	"encoding/json"
	"time"
)

// Route paths.
const (
	LoginPath   = "/api/v1/auth/login"
	RefreshPath = "/api/v1/auth/refresh"
	LogoutPath  = "/api/v1/auth/logout"
	MePath      = "/api/v1/auth/me"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// LoginResponse is the payload of both login and refresh.
type LoginResponse struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	ExpiresAt             time.Time `json:"expiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
	User                  UserInfo  `json:"user"`
}

// Envelope wraps every response body. Success is derived from StatusCode;
// a "success" field in incoming JSON is ignored.
type Envelope[T any] struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Data       *T       `json:"data"`
	Errors     []string `json:"errors,omitempty"`
}

func (e Envelope[T]) Success() bool {
	return e.StatusCode >= 200 && e.StatusCode < 300
}

type envelopeJSON[T any] struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Data       *T       `json:"data"`
	Errors     []string `json:"errors,omitempty"`
	Success    bool     `json:"success"`
}

func (e Envelope[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelopeJSON[T]{
		StatusCode: e.StatusCode,
		Message:    e.Message,
		Data:       e.Data,
		Errors:     e.Errors,
		Success:    e.Success(),
	})
}

// Empty is the data of responses that carry no payload; it encodes as {}.
type Empty struct{}
