package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_DefaultsAndEnv(t *testing.T) {
	t.Setenv("BETWIZ_JWT_SECRET", "s3cret")
	t.Setenv("BETWIZ_MONGO_DB_NAME", "betwiz_test")
	t.Setenv("BETWIZ_STORAGE_AUTH_CODES", StoreRedis)
	t.Setenv("BETWIZ_OAUTH_LOGIN_URL", "https://betwiz.example/login")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, "betwiz_test", cfg.MongoDBName)
	assert.Equal(t, StoreRedis, cfg.Storage.AuthCodes)
	assert.Equal(t, "https://betwiz.example/login", cfg.OAuth.LoginURL)
	assert.Equal(t, "betting_events:read betting_events:subscribe", cfg.OAuth.RefreshScope)
	assert.Equal(t, time.Minute, cfg.SweepInterval)
	assert.True(t, cfg.AuditLog)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "betwiz_oauth.yaml")
	content := []byte(`
http_addr: ":9090"
jwt_secret: from-file
sweep_interval: 30s
storage:
  auth_codes: bbolt
oauth:
  refresh_scope: "read"
  client_secret_hashing: bcrypt
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, StoreBBolt, cfg.Storage.AuthCodes)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, "read", cfg.OAuth.RefreshScope)
	assert.Equal(t, "bcrypt", cfg.OAuth.ClientSecretHashing)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("BETWIZ_JWT_SECRET", "")
	_, err := LoadConfig("")
	assert.ErrorContains(t, err, "jwt_secret")

	t.Setenv("BETWIZ_JWT_SECRET", "x")
	t.Setenv("BETWIZ_STORAGE_AUTH_CODES", "postgres")
	_, err = LoadConfig("")
	assert.ErrorContains(t, err, "storage.auth_codes")
}
