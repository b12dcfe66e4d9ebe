package infra

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Gateway.Environment)
	assert.False(t, cfg.Gateway.EchoMode)
	assert.Equal(t, 5*time.Second, cfg.Gateway.ForwardTimeout)
	assert.Equal(t, 30, cfg.Audit.RetentionDays)
	assert.Equal(t, 30*24*time.Hour, cfg.Audit.Retention())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("GATEWAY_ECHO_MODE", "true")
	t.Setenv("GATEWAY_ENVIRONMENT", "production")
	t.Setenv("AUDIT_RETENTION_DAYS", "7")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.Gateway.EchoMode)
	assert.Equal(t, "production", cfg.Gateway.Environment)
	assert.Equal(t, 7, cfg.Audit.RetentionDays)
}

func TestLoadConfig_EnvOnlyKeys(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/linc")
	t.Setenv("REDIS_PASSWORD", "s3cret")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("SERVER_HOST", "0.0.0.0")
	t.Setenv("AUTH_PUBLIC_KEY_PATH", "/etc/linc/jwt.pub")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "postgres://u:p@db:5432/linc", cfg.Database.URL)
	assert.Equal(t, "s3cret", cfg.Redis.Password)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "/etc/linc/jwt.pub", cfg.Auth.PublicKeyPath)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
}

func TestLoadConfig_RejectsUnknownEnvironment(t *testing.T) {
	t.Setenv("GATEWAY_ENVIRONMENT", "staging")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "staging")
}

func TestConfigValidate_NonPositiveRetention(t *testing.T) {
	cfg := &Config{
		Gateway:      GatewayConfig{Environment: "production", ForwardTimeout: time.Second},
		Orchestrator: OrchestratorConfig{ExtractionTimeout: time.Second},
		Audit:        AuditConfig{RetentionDays: 0},
	}
	assert.Error(t, cfg.Validate())
}

func TestRedisKeys(t *testing.T) {
	assert.Equal(t, "linc:logs:2026-10-18:abc", LogKey("2026-10-18", "abc"))
	assert.Equal(t, "linc:logs:2026-10-18:*", LogDatePattern("2026-10-18"))
	assert.Equal(t, "linc:tokens:ff", TokenKey("ff"))
}
