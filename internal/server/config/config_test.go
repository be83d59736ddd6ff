package config

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/healthrecords/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Empty(t, c.DatabaseDSN)
	assert.Empty(t, c.SigningKey, "signing key must never be defaulted")
	assert.Empty(t, c.Issuer)
	assert.Empty(t, c.Audience)
	assert.Equal(t, 15*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTokenValidityDuration)
	assert.Equal(t, 10, c.LoginRateLimit)
	assert.Equal(t, "User", c.SeedRole)
	assert.False(t, c.Development)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	c := LoadConfig()

	require.NotNil(t, c, "LoadConfig must not return nil")
	assert.Equal(t, 15*time.Minute, c.AccessTokenValidityDuration)
	assert.Equal(t, 7*24*time.Hour, c.RefreshTokenValidityDuration)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.LoadDefaults()
		c.SigningKey = "a-signing-key-of-reasonable-length"
		c.Issuer = "HealthRecords.API"
		c.Audience = "HealthRecords.Client"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "complete", mutate: func(c *Config) {}},
		{name: "no signing key", mutate: func(c *Config) { c.SigningKey = "" }, wantErr: common.ErrMissingSigningKey},
		{name: "no issuer", mutate: func(c *Config) { c.Issuer = "" }, wantErr: common.ErrMissingIssuer},
		{name: "no audience", mutate: func(c *Config) { c.Audience = "" }, wantErr: common.ErrMissingAudience},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("non-positive lifetimes", func(t *testing.T) {
		c := valid()
		c.AccessTokenValidityDuration = 0
		require.Error(t, c.Validate())

		c = valid()
		c.RefreshTokenValidityDuration = -time.Hour
		require.Error(t, c.Validate())
	})
}
