package config

import (
	"errors"
	"time"
)

// JWTConfig configures JWT verification against a JWKS endpoint.
type JWTConfig struct {
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
	JWKSURL  string `mapstructure:"jwks_url"`

	ClockSkew              time.Duration `mapstructure:"clock_skew"`
	JWKSRefreshInterval    time.Duration `mapstructure:"jwks_refresh_interval"`
	JWKSMinRefreshInterval time.Duration `mapstructure:"jwks_min_refresh_interval"`

	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// DefaultJWTConfig returns the verifier defaults. Issuer, audience and JWKS URL are deployment-provided.
func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		ClockSkew: 30 * time.Second,
		// Refresh periodically to pick up key rotation even if an old key is still cached.
		JWKSRefreshInterval: 5 * time.Minute,
		// Bound refresh frequency when a token presents an unknown kid.
		JWKSMinRefreshInterval: 10 * time.Second,
		HTTPTimeout:            5 * time.Second,
	}
}

func (c JWTConfig) Validate() error {
	if c.Issuer == "" || c.Audience == "" || c.JWKSURL == "" {
		return errors.New("missing required settings: jwt.issuer, jwt.audience, jwt.jwks_url")
	}
	if c.ClockSkew < 0 || c.JWKSRefreshInterval <= 0 || c.JWKSMinRefreshInterval <= 0 || c.HTTPTimeout <= 0 {
		return errors.New("jwt durations must be positive")
	}
	return nil
}
