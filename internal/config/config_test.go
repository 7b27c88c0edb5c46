package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsPrefixedEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ACCOUNTS_DEFAULT_ROLE", "reader")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "reader", cfg.Accounts.DefaultRole)
	assert.Equal(t, "@hourly", cfg.Tasks.SessionPurgeCron)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	require.Error(t, err)
}

func TestValidateRejectsBadCron(t *testing.T) {
	cfg := LoadTestConfig()
	cfg.Redis.Enabled = true
	cfg.Tasks.Enabled = true
	cfg.Tasks.SessionPurgeCron = "every now and then"

	require.Error(t, cfg.Validate())
}

func TestValidateTasksNeedRedis(t *testing.T) {
	cfg := LoadTestConfig()
	cfg.Tasks.Enabled = true

	require.Error(t, cfg.Validate())
}

func TestRedisAddr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.Addr())
}

func TestPublicHost(t *testing.T) {
	assert.Equal(t, "api.example.com", ServerConfig{PublicURL: "https://api.example.com"}.PublicHost())
	assert.Equal(t, "localhost:8080", ServerConfig{Host: "localhost", Port: 8080}.PublicHost())
}
