package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/healthrecords/internal/flagx"
	"github.com/dmitrijs2005/healthrecords/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration file.
// Durations accept "15m"-style strings or integer nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP             string          `json:"endpoint_addr_http"`
	EndpointAddrGRPC             string          `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string          `json:"database_dsn"`
	SigningKey                   string          `json:"signing_key"`
	Issuer                       string          `json:"issuer"`
	Audience                     string          `json:"audience"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	LoginRateLimit               *int            `json:"login_rate_limit"`
	TrustedProxies               []string        `json:"trusted_proxies"`
	SeedUsername                 string          `json:"seed_username"`
	SeedEmail                    string          `json:"seed_email"`
	SeedPassword                 string          `json:"seed_password"`
	SeedRole                     string          `json:"seed_role"`
	Development                  bool            `json:"development"`
}

// parseJson overlays values from the file named by -c / -config onto config.
// Absent keys leave the current value untouched. An unreadable file or
// malformed JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()

	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SigningKey, c.SigningKey)
	setString(&config.Issuer, c.Issuer)
	setString(&config.Audience, c.Audience)
	setString(&config.SeedUsername, c.SeedUsername)
	setString(&config.SeedEmail, c.SeedEmail)
	setString(&config.SeedPassword, c.SeedPassword)
	setString(&config.SeedRole, c.SeedRole)

	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.LoginRateLimit != nil {
		config.LoginRateLimit = *c.LoginRateLimit
	}
	if len(c.TrustedProxies) > 0 {
		config.TrustedProxies = c.TrustedProxies
	}
	if c.Development {
		config.Development = true
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
