// Package auth issues and validates the HS256 access and refresh tokens of a
// user session and hashes passwords with bcrypt.
package auth

import (
	"time"

	"github.com/dmitrijs2005/healthrecords/internal/common"
)

// Config carries the signing contract shared by Issuer and Validator.
type Config struct {
	SigningKey           string
	Issuer               string
	Audience             string
	AccessTokenLifetime  time.Duration
	RefreshTokenLifetime time.Duration
}

func (c Config) validate() error {
	if c.SigningKey == "" {
		return common.ErrMissingSigningKey
	}
	if c.Issuer == "" {
		return common.ErrMissingIssuer
	}
	if c.Audience == "" {
		return common.ErrMissingAudience
	}
	return nil
}

type options struct {
	now    func() time.Time
	leeway time.Duration
}

// Option tunes an Issuer or a Validator.
type Option func(*options)

// WithTimeFunc overrides the clock.
func WithTimeFunc(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLeeway allows clock skew on expiry checks. Ignored by Issuer.
func WithLeeway(d time.Duration) Option {
	return func(o *options) { o.leeway = d }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
