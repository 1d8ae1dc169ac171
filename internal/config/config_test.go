package config_test

import (
	"testing"
	"time"

	"github.com/kiranshivaraju/aichecker/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnv is a helper that sets environment variables for a test and restores them after.
func setEnv(t *testing.T, env map[string]string) {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
}

// validEnv returns the minimum set of valid environment variables.
func validEnv() map[string]string {
	return map[string]string{
		"FINCHAT_BASE_URL": "https://finchat-api.example.dev",
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	setEnv(t, validEnv())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "https://finchat-api.example.dev", cfg.FinChat.BaseURL)
	assert.Equal(t, "v1", cfg.FinChat.Protocol)
	assert.Equal(t, "ai-detector-v2", cfg.FinChat.COTSlug)
}

func TestLoad_CustomPort(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("AICHECKER_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_MissingBaseURL(t *testing.T) {
	t.Setenv("FINCHAT_BASE_URL", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.False(t, cfg.FinChat.Configured())
}

func TestLoad_BaseURLMustStartWithHTTP(t *testing.T) {
	t.Setenv("FINCHAT_BASE_URL", "ftp://finchat.example.dev")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FINCHAT_BASE_URL")
}

func TestLoad_BaseURLTrailingSlashStripped(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("FINCHAT_BASE_URL", "https://finchat-api.example.dev/")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "https://finchat-api.example.dev", cfg.FinChat.BaseURL)
}

func TestLoad_InvalidProtocol(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("FINCHAT_PROTOCOL", "v3")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FINCHAT_PROTOCOL")
}

func TestLoad_V2RequiresSessionID(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("FINCHAT_PROTOCOL", "v2")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FINCHAT_SESSION_ID")
}

func TestLoad_V2WithSessionID(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("FINCHAT_PROTOCOL", "v2")
	t.Setenv("FINCHAT_SESSION_ID", "69055d25658abfb8d334cfd6")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "v2", cfg.FinChat.Protocol)
	assert.Equal(t, "69055d25658abfb8d334cfd6", cfg.FinChat.SessionID)
}

func TestLoad_InvalidParamName(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("FINCHAT_PARAM_NAME", "sentence")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FINCHAT_PARAM_NAME")
}

func TestLoad_ParagraphParamName(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("FINCHAT_PARAM_NAME", "paragraph")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "paragraph", cfg.FinChat.ParamName)
}

func TestLoad_PollingDefaults(t *testing.T) {
	setEnv(t, validEnv())

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.FinChat.PollInterval)
	assert.Equal(t, 200, cfg.FinChat.MaxAttempts)
	assert.Equal(t, 1200*time.Second, cfg.FinChat.PollTimeout)
	assert.Equal(t, 30*time.Second, cfg.FinChat.HTTPTimeout)
}

func TestLoad_CustomPollingBudget(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("FINCHAT_POLL_INTERVAL_SECS", "2")
	t.Setenv("FINCHAT_MAX_ATTEMPTS", "50")
	t.Setenv("FINCHAT_POLL_TIMEOUT_SECS", "600")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.FinChat.PollInterval)
	assert.Equal(t, 50, cfg.FinChat.MaxAttempts)
	assert.Equal(t, 600*time.Second, cfg.FinChat.PollTimeout)
}

func TestLoad_InvalidMaxAttempts(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("FINCHAT_MAX_ATTEMPTS", "-1")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FINCHAT_MAX_ATTEMPTS")
}

func TestLoad_TokenIsOptional(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("FINCHAT_API_TOKEN", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.FinChat.APIToken)
}

func TestLoad_RedisIsOptional(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("REDIS_URL", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Redis.URL)
}

func TestLoad_CORSDefaults(t *testing.T) {
	setEnv(t, validEnv())

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_CORSOriginList(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("AICHECKER_CORS_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"https://app.example.com", "https://staging.example.com"},
		cfg.CORS.AllowedOrigins,
	)
}

func TestLoad_JobsDefaults(t *testing.T) {
	setEnv(t, validEnv())

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Jobs.MaxConcurrent)
	assert.Equal(t, 30*time.Minute, cfg.Jobs.StatusTTL)
}

func TestLoad_BoundedWorkers(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("AICHECKER_MAX_CONCURRENT_JOBS", "4")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Jobs.MaxConcurrent)
}

func TestLoad_NegativeWorkerBound(t *testing.T) {
	setEnv(t, validEnv())
	t.Setenv("AICHECKER_MAX_CONCURRENT_JOBS", "-2")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AICHECKER_MAX_CONCURRENT_JOBS")
}
