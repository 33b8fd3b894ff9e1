package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("SECRET_KEY", "")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, devSecretKey, cfg.SecretKey)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenExpire)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenExpire)
	assert.Equal(t, 30, cfg.InvoiceDueDays)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "5")
	t.Setenv("INVOICE_DUE_DAYS", "14")
	t.Setenv("LOGIN_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("SECRET_KEY", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.AccessTokenExpire)
	assert.Equal(t, 14, cfg.InvoiceDueDays)
	assert.Equal(t, 5, cfg.LoginMaxAttempts)
	assert.Equal(t, "s3cret", cfg.SecretKey)
}

func TestLoadRequiresSecretInRelease(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	t.Setenv("SECRET_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}
