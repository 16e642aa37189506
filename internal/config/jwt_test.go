package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTConfig(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		hours   int
		wantErr string
	}{
		{name: "valid", secret: "secret", hours: 24},
		{name: "one hour", secret: "secret", hours: 1},
		{name: "missing secret", secret: "", hours: 24, wantErr: "jwt_secret is required"},
		{name: "zero hours", secret: "secret", hours: 0, wantErr: "at least 1 hour"},
		{name: "negative hours", secret: "secret", hours: -3, wantErr: "at least 1 hour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewJWTConfig(tt.secret, tt.hours)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.secret, cfg.Secret)
			assert.Equal(t, tt.hours, cfg.ExpirationHours)
		})
	}
}
