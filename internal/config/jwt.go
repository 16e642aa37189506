package config

import "fmt"

// JWTConfig holds configuration for host token generation and validation.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// NewJWTConfig creates a validated JWT configuration.
func NewJWTConfig(secret string, expirationHours int) (*JWTConfig, error) {
	config := &JWTConfig{
		Secret:          secret,
		ExpirationHours: expirationHours,
	}
	if err := config.normalize(); err != nil {
		return nil, err
	}
	return config, nil
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.Secret == "" {
		return fmt.Errorf("auth.jwt_secret is required but not set")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("auth.expiration_hours must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
