package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/healthrecords/internal/flagx"
)

// parseEnv overlays values from the process environment. Both the plain
// (JWT_SIGNING_KEY) and the sectioned (JWT__SigningKey) spellings are
// accepted for the JWT settings. Non-numeric lifetimes panic.
func parseEnv(config *Config) {
	envString(&config.EndpointAddrHTTP, "HTTP_ADDRESS")
	envString(&config.EndpointAddrGRPC, "GRPC_ADDRESS")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.SigningKey, "JWT_SIGNING_KEY", "JWT__SigningKey")
	envString(&config.Issuer, "JWT_ISSUER", "JWT__Issuer")
	envString(&config.Audience, "JWT_AUDIENCE", "JWT__Audience")
	envString(&config.SeedUsername, "SEED_USERNAME")
	envString(&config.SeedEmail, "SEED_EMAIL")
	envString(&config.SeedPassword, "SEED_PASSWORD")
	envString(&config.SeedRole, "SEED_ROLE")

	if v, ok := flagx.LookupEnv("JWT_ACCESS_TOKEN_EXPIRATION_MINUTES", "JWT__AccessTokenExpirationMinutes"); ok {
		config.AccessTokenValidityDuration = time.Duration(mustAtoi("access token expiration minutes", v)) * time.Minute
	}
	if v, ok := flagx.LookupEnv("JWT_REFRESH_TOKEN_EXPIRATION_DAYS", "JWT__RefreshTokenExpirationDays"); ok {
		config.RefreshTokenValidityDuration = time.Duration(mustAtoi("refresh token expiration days", v)) * 24 * time.Hour
	}
	if v, ok := flagx.LookupEnv("LOGIN_RATE_LIMIT"); ok {
		config.LoginRateLimit = mustAtoi("login rate limit", v)
	}
	if v, ok := flagx.LookupEnv("TRUSTED_PROXIES"); ok {
		config.TrustedProxies = splitList(v)
	}
	if v, ok := flagx.LookupEnv("APP_ENVIRONMENT"); ok {
		config.Development = strings.EqualFold(v, "development")
	}
}

func envString(dst *string, names ...string) {
	if v, ok := flagx.LookupEnv(names...); ok {
		*dst = v
	}
}

// splitList splits a comma separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func mustAtoi(what, v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		panic(fmt.Errorf("invalid %s %q: %w", what, v, err))
	}
	return n
}
