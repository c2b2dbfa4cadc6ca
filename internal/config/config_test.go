package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RESEND_API_KEY", "")
	t.Setenv("REALTIME_DEBOUNCE", "")
	t.Setenv("STATS_POLL_INTERVAL", "")
	t.Setenv("PUBLIC_BASE_URL", "https://ops.example.org/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 250*time.Millisecond, cfg.Realtime.DebounceWindow)
	assert.Equal(t, 30*time.Second, cfg.Realtime.StatsPollInterval)
	assert.Equal(t, 1, cfg.Notification.MaxWorkers)
	assert.Empty(t, cfg.Notification.EmailAPIKey)
	assert.Equal(t, "https://ops.example.org", cfg.App.PublicBaseURL)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RESEND_API_KEY", "re_test")
	t.Setenv("NOTIFY_MAX_WORKERS", "4")
	t.Setenv("REALTIME_DEBOUNCE", "100ms")
	t.Setenv("STATS_POLL_INTERVAL", "1m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "re_test", cfg.Notification.EmailAPIKey)
	assert.Equal(t, 4, cfg.Notification.MaxWorkers)
	assert.Equal(t, 100*time.Millisecond, cfg.Realtime.DebounceWindow)
	assert.Equal(t, time.Minute, cfg.Realtime.StatsPollInterval)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("REALTIME_DEBOUNCE", "soon")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "primary")

	_, err := Load()
	require.Error(t, err)
}

func TestAppConfig_RequestTimeout(t *testing.T) {
	assert.Equal(t, time.Duration(0), AppConfig{}.RequestTimeout())
	assert.Equal(t, 5*time.Second, AppConfig{RequestTimeoutSeconds: 5}.RequestTimeout())
	assert.Equal(t, "0.0.0.0:8080", AppConfig{Host: "0.0.0.0", Port: "8080"}.Addr())
}
