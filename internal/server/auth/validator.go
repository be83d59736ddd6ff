package auth

import (
	"errors"

	"github.com/dmitrijs2005/healthrecords/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

type Validator struct {
	key    []byte
	parser *jwt.Parser
}

// NewValidator accepts only HS256 tokens signed with cfg.SigningKey and
// carrying cfg.Issuer and cfg.Audience. Expiry is checked with zero leeway
// unless WithLeeway is given.
func NewValidator(cfg Config, opts ...Option) (*Validator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(o.leeway),
		jwt.WithTimeFunc(o.now),
	)

	return &Validator{key: []byte(cfg.SigningKey), parser: parser}, nil
}

// Validate reports whether token is well formed, correctly signed, issued by
// the configured issuer for the configured audience and not expired.
func (v *Validator) Validate(token string) bool {
	if token == "" {
		return false
	}
	_, err := v.parse(token, &jwt.RegisteredClaims{})
	return err == nil
}

// ParseAccess validates token and returns its access claims. Refresh tokens
// are rejected.
func (v *Validator) ParseAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, err := v.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// ParseRefresh validates token and returns its refresh claims. Tokens whose
// token_type is not "refresh" are rejected.
func (v *Validator) ParseRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if _, err := v.parse(token, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != common.RefreshTokenType {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

func (v *Validator) parse(token string, claims jwt.Claims) (*jwt.Token, error) {
	t, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !t.Valid {
		return nil, common.ErrInvalidToken
	}
	return t, nil
}
