package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("FRONTEND_URL", "https://postify.example/")
	t.Setenv("ALLOWED_ORIGINS", "https://postify.example,http://localhost:3000")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://postify.example", cfg.FrontendURL)
	assert.Equal(t, []string{"https://postify.example", "http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, "0 0 1 * *", cfg.QuotaResetSchedule)
	assert.True(t, cfg.QuotaResetEnabled)
	assert.Equal(t, 2*time.Minute, cfg.BlogCacheTTL)
	assert.Equal(t, int64(999), cfg.BasicPriceCents)
	assert.Equal(t, int64(1999), cfg.PremiumPriceCents)
	assert.Equal(t, 168*time.Hour, cfg.TokenPurgeGrace)
}

func TestLoadConfig_RequiresJWTSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_UnknownEnv(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "staging")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestStorageConfigured(t *testing.T) {
	cfg := &Config{
		R2AccountID:       "acct",
		R2AccessKeyID:     "key",
		R2SecretAccessKey: "secret",
		R2BucketName:      "bucket",
	}
	assert.False(t, cfg.StorageConfigured())

	cfg.R2PublicURL = "https://cdn.example.com"
	assert.True(t, cfg.StorageConfigured())
}

func TestDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "postify", DBSSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=postify port=5432 sslmode=disable", cfg.DSN())
}
