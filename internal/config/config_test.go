package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                  "development",
		Port:                 "8080",
		JWTSecret:            "secure-secret-at-least-32-chars-long",
		DBPassword:           "secure-password",
		DBSSLMode:            "require",
		AuthMode:             AuthModeToken,
		TokenTTL:             time.Hour,
		SessionTTL:           time.Hour,
		ImageMaxUploadSizeMB: 16,
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateAuthMode(t *testing.T) {
	c := validConfig()
	c.AuthMode = "cookie-jar"
	assert.Error(t, c.Validate())

	c = validConfig()
	c.AuthMode = AuthModeSession
	c.SessionTTL = 0
	assert.Error(t, c.Validate())

	c = validConfig()
	c.AuthMode = AuthModeToken
	c.TokenTTL = 0
	assert.Error(t, c.Validate())

	c = validConfig()
	c.AuthMode = AuthModeSession
	assert.NoError(t, c.Validate())
}

func TestConfig_ValidateProductionSecrets(t *testing.T) {
	c := validConfig()
	c.Env = "production"
	c.JWTSecret = defaultJWTSecret
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Env = "production"
	c.JWTSecret = "short"
	assert.Error(t, c.Validate())

	c = validConfig()
	c.Env = "production"
	c.DBPassword = "password"
	assert.Error(t, c.Validate())
}

func TestLoadConfig_EnvOverridesAndNormalization(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("AUTH_MODE", "Session")
	t.Setenv("SESSION_TTL", "90m")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, AuthModeSession, c.AuthMode)
	assert.Equal(t, 90*time.Minute, c.SessionTTL)
	assert.Equal(t, 16, c.ImageMaxUploadSizeMB)
	assert.Equal(t, 16*1024*1024, c.ImageMaxUploadBytes())
	assert.Equal(t, "session_id", c.SessionCookieName)
}
