package auth

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the payload of an access token. Subject holds the numeric
// user id, ID the jti.
type AccessClaims struct {
	Username string `json:"unique_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`

	// Present only on refresh tokens; used to reject them as bearer tokens.
	TokenType string `json:"token_type,omitempty"`

	jwt.RegisteredClaims
}

// UserID parses the subject as a user id.
func (c *AccessClaims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// RefreshClaims is the payload of a refresh token.
type RefreshClaims struct {
	TokenType string `json:"token_type"`

	jwt.RegisteredClaims
}

func (c *RefreshClaims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}
