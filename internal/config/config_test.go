package config_test

import (
	"testing"
	"time"

	"github.com/DrewHollis/gatehouse/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("SESSION_SECRET", "a-sufficiently-long-test-secret")
	t.Setenv("DB_PASSWORD", "postgres")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "gatehouse", cfg.Database.Name)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 5, cfg.Auth.LoginMaxAttempts)
	assert.Equal(t, 60*time.Second, cfg.Auth.LoginAttemptDecay)
	assert.Equal(t, 5, cfg.Auth.LockThreshold)
	assert.Equal(t, 15*time.Minute, cfg.Auth.LockDuration)
	assert.Equal(t, 90*24*time.Hour, cfg.Auth.DevicePurgeAge)
}

func TestLoad_MissingSessionSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("DB_PASSWORD", "postgres")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_WeakSessionSecretRejected(t *testing.T) {
	t.Setenv("SESSION_SECRET", "short")
	t.Setenv("DB_PASSWORD", "postgres")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOGIN_MAX_ATTEMPTS", "3")
	t.Setenv("LOCK_DURATION", "30m")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.0/12")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Auth.LoginMaxAttempts)
	assert.Equal(t, 30*time.Minute, cfg.Auth.LockDuration)
	assert.Equal(t, []string{"10.0.0.0/8", "172.16.0.0/12"}, cfg.Server.TrustedProxies)
}

func TestDatabaseConfigDSN(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Name: "gatehouse", SSLMode: "disable",
	}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=gatehouse sslmode=disable", cfg.DSN())
}
