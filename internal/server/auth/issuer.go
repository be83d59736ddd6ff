package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/healthrecords/internal/common"
	"github.com/dmitrijs2005/healthrecords/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenPair is a freshly issued access/refresh pair with the expirations
// embedded in the tokens.
type TokenPair struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
}

type Issuer struct {
	cfg  Config
	key  []byte
	opts options
}

// NewIssuer fails when the signing key, issuer or audience is missing.
func NewIssuer(cfg Config, opts ...Option) (*Issuer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Issuer{cfg: cfg, key: []byte(cfg.SigningKey), opts: buildOptions(opts)}, nil
}

func (i *Issuer) AccessTokenExpiration() time.Time {
	return i.opts.now().Add(i.cfg.AccessTokenLifetime)
}

func (i *Issuer) RefreshTokenExpiration() time.Time {
	return i.opts.now().Add(i.cfg.RefreshTokenLifetime)
}

func (i *Issuer) IssueAccessToken(user *models.User) (string, error) {
	token, _, err := i.issueAccess(user, i.opts.now())
	return token, err
}

func (i *Issuer) IssueRefreshToken(user *models.User) (string, error) {
	token, _, err := i.issueRefresh(user, i.opts.now())
	return token, err
}

// IssuePair issues both tokens against a single clock reading.
func (i *Issuer) IssuePair(user *models.User) (*TokenPair, error) {
	now := i.opts.now()

	access, accessExp, err := i.issueAccess(user, now)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := i.issueRefresh(user, now)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:           access,
		RefreshToken:          refresh,
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: refreshExp,
	}, nil
}

func (i *Issuer) issueAccess(user *models.User, now time.Time) (string, time.Time, error) {
	exp := jwt.NewNumericDate(now.Add(i.cfg.AccessTokenLifetime))
	claims := AccessClaims{
		Username:         user.Username,
		Email:            user.Email,
		Role:             user.Role,
		RegisteredClaims: i.registered(user, now, exp),
	}
	token, err := i.sign(claims)
	return token, exp.Time, err
}

func (i *Issuer) issueRefresh(user *models.User, now time.Time) (string, time.Time, error) {
	exp := jwt.NewNumericDate(now.Add(i.cfg.RefreshTokenLifetime))
	claims := RefreshClaims{
		TokenType:        common.RefreshTokenType,
		RegisteredClaims: i.registered(user, now, exp),
	}
	token, err := i.sign(claims)
	return token, exp.Time, err
}

func (i *Issuer) registered(user *models.User, now time.Time, exp *jwt.NumericDate) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(user.ID, 10),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: exp,
		Issuer:    i.cfg.Issuer,
		Audience:  jwt.ClaimStrings{i.cfg.Audience},
	}
}

func (i *Issuer) sign(claims jwt.Claims) (string, error) {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}
