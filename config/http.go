package config

import (
	"fmt"
	"time"
)

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr                string `json:"addr"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
	// RequestTimeoutSeconds bounds each request's storage work.
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeoutSeconds <= 0 {
		c.ReadTimeoutSeconds = 10
	}
	if c.WriteTimeoutSeconds <= 0 {
		c.WriteTimeoutSeconds = 15
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = 5
	}
}

func (c HTTPConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	return nil
}

func (c HTTPConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// AuthConfig selects how the acting user is identified. With a JWT secret the
// actor is the numeric "sub" claim of an HS256 bearer token; without one the
// X-Actor-ID header is trusted, which is only meant for a gateway that already
// authenticated the caller.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret"`
	Issuer    string `json:"issuer"`
}

func (c AuthConfig) Enabled() bool { return c.JWTSecret != "" }

func (c AuthConfig) Validate() error {
	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		return fmt.Errorf("jwt_secret must be at least 16 bytes")
	}
	return nil
}
