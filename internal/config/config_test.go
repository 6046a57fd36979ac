package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_ENV_PATH", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "secret")
	t.Setenv("MYSQL_DSN", "user:pass@tcp(localhost:3306)/relay?parseTime=true")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("STORAGE_DRIVER", "")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.ListenAddr)
	assert.Equal(t, "INR", cfg.PaymentCurrency)
	assert.Equal(t, StorageDriverDisk, cfg.StorageDriver)
	assert.Equal(t, 60*time.Second, cfg.UploadCleanup)
	assert.Equal(t, 4000, cfg.PromptMaxChars)
	assert.False(t, cfg.PromptTruncate)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "https://api.openai.com", cfg.OpenAIBaseURL)
	assert.False(t, cfg.AIEnabled())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_MissingSecretsAreListed(t *testing.T) {
	setRequired(t)
	t.Setenv("RAZORPAY_KEY_SECRET", "")
	t.Setenv("MYSQL_DSN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RAZORPAY_KEY_SECRET")
	assert.Contains(t, err.Error(), "MYSQL_DSN")
	assert.NotContains(t, err.Error(), "OPENAI_API_KEY")
}

func TestLoad_S3RequiresBucketSettings(t *testing.T) {
	setRequired(t)
	t.Setenv("STORAGE_DRIVER", "s3")
	t.Setenv("S3_REGION", "us-east-1")
	t.Setenv("S3_ACCESS_KEY", "")
	t.Setenv("S3_SECRET_KEY", "")
	t.Setenv("S3_BUCKET", "")
	t.Setenv("S3_PUBLIC_BASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3_BUCKET")
	assert.NotContains(t, err.Error(), "S3_REGION")
}

func TestLoad_UnknownStorageDriver(t *testing.T) {
	setRequired(t)
	t.Setenv("STORAGE_DRIVER", "ftp")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage driver")
}

func TestLoad_EnvFileOverlay(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "relay.env")
	require.NoError(t, os.WriteFile(path, []byte("OPENAI_API_KEY=sk-test\nPROMPT_TRUNCATE=true\n"), 0o600))
	t.Setenv("CONFIG_ENV_PATH", path)
	t.Setenv("PROMPT_TRUNCATE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.AIEnabled())
	assert.True(t, cfg.PromptTruncate)
}

func TestNormalizeBaseURL(t *testing.T) {
	fallback := "https://api.openai.com"
	assert.Equal(t, fallback, normalizeBaseURL("  ", fallback))
	assert.Equal(t, "https://proxy.local", normalizeBaseURL("proxy.local", fallback))
	assert.Equal(t, "http://localhost:8080", normalizeBaseURL("http://localhost:8080/", fallback))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"https://a.app", "https://b.app"}, splitList(" https://a.app, ,https://b.app "))
	assert.Nil(t, splitList(""))
}
