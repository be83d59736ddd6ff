// Package config handles configuration for the server component,
// including defaults, JSON overlay, environment variables and command-line flags.
package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/healthrecords/internal/common"
)

// Config holds runtime settings for the Health Records auth server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the JSON API.
//   - EndpointAddrGRPC: bind address for the gRPC health endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory user store.
//   - SigningKey / Issuer / Audience: JWT signing material. No defaults; a
//     missing value is a fatal startup error.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - LoginRateLimit: login attempts per minute per client IP (0 disables).
//   - TrustedProxies: CIDRs or addresses of reverse proxies whose
//     X-Forwarded-For header is honoured. Empty means the socket peer is the client.
//   - Seed*: optional account created on startup when it does not exist yet.
//   - Development: include fault details in 500 responses.
type Config struct {
	EndpointAddrHTTP             string
	EndpointAddrGRPC             string
	DatabaseDSN                  string
	SigningKey                   string
	Issuer                       string
	Audience                     string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	LoginRateLimit               int
	TrustedProxies               []string
	SeedUsername                 string
	SeedEmail                    string
	SeedPassword                 string
	SeedRole                     string
	Development                  bool
}

// Default token lifetimes.
const (
	DefaultAccessTokenValidity  = 15 * time.Minute
	DefaultRefreshTokenValidity = 7 * 24 * time.Hour
)

// LoadDefaults populates Config with development defaults. Signing material
// is deliberately left empty.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":50051"
	c.AccessTokenValidityDuration = DefaultAccessTokenValidity
	c.RefreshTokenValidityDuration = DefaultRefreshTokenValidity
	c.LoginRateLimit = 10
	c.SeedRole = common.DefaultRole
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if c.SigningKey == "" {
		return common.ErrMissingSigningKey
	}
	if c.Issuer == "" {
		return common.ErrMissingIssuer
	}
	if c.Audience == "" {
		return common.ErrMissingAudience
	}
	if c.AccessTokenValidityDuration <= 0 {
		return fmt.Errorf("access token validity must be positive, got %s", c.AccessTokenValidityDuration)
	}
	if c.RefreshTokenValidityDuration <= 0 {
		return fmt.Errorf("refresh token validity must be positive, got %s", c.RefreshTokenValidityDuration)
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
